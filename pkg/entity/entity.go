// Package entity implements the heuristic that maps GUID-shaped tokens in a
// free-text message onto named identifier slots. It is deliberately dumb:
// keyword windows and score margins only, and any near-tie is reported as
// ambiguous instead of guessed.
package entity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// windowSize is the number of tokens inspected on each side of a GUID
// candidate when counting role trigger words.
const windowSize = 4

// adjacencyBonus is added when the slot's root word directly precedes the
// candidate in the message ("device 1111-...").
const adjacencyBonus = 2

// assignMargin is the minimum lead over the runner-up required before a slot
// is assigned. Anything closer is ambiguous.
const assignMargin = 2

var (
	guidRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	tokenRe = regexp.MustCompile(`[A-Za-z0-9_-]+`)
)

// roleKeywords are the trigger words counted inside a candidate's window for
// each known slot role.
var roleKeywords = map[string][]string{
	"device_id":  {"device", "machine", "endpoint", "computer"},
	"account_id": {"account", "tenant", "user", "principal", "aad"},
	"context_id": {"context", "ctx"},
	"policy_id":  {"policy", "payload", "config", "configuration"},
}

// Candidate is one GUID-shaped token found in the message, with its token
// window and per-role trigger-word counts.
type Candidate struct {
	GUID       string         `json:"guid"`
	TokenIndex int            `json:"-"`
	Window     string         `json:"window"`
	RoleScores map[string]int `json:"scores"`
}

// ScoredCandidate pairs a candidate GUID with its score for one slot.
type ScoredCandidate struct {
	GUID  string `json:"guid"`
	Score int    `json:"score"`
}

// Ambiguity records a slot that could not be assigned, with the full scored
// candidate list so the caller can ask the user.
type Ambiguity struct {
	Slot       string            `json:"slot"`
	Candidates []ScoredCandidate `json:"candidates"`
}

// Resolution is the outcome of resolving one message against a slot list.
type Resolution struct {
	Resolved    map[string]string `json:"resolved"`
	Candidates  []Candidate       `json:"candidates"`
	Ambiguities []Ambiguity       `json:"ambiguities"`
}

// Resolver scores GUID candidates against identifier slots.
type Resolver struct {
	log logrus.FieldLogger
}

// NewResolver creates a resolver.
func NewResolver(log logrus.FieldLogger) *Resolver {
	return &Resolver{
		log: log.WithField("component", "entity_resolver"),
	}
}

// ExtractCandidates tokenizes the message and returns every GUID-shaped token
// with its surrounding window and role scores.
func ExtractCandidates(message string) []Candidate {
	tokens := tokenRe.FindAllString(message, -1)

	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}

	var candidates []Candidate

	for i, tok := range tokens {
		if !guidRe.MatchString(tok) {
			continue
		}

		start := i - windowSize
		if start < 0 {
			start = 0
		}

		end := i + windowSize + 1
		if end > len(tokens) {
			end = len(tokens)
		}

		window := lower[start:end]
		scores := make(map[string]int)

		for role, keywords := range roleKeywords {
			count := 0

			for _, kw := range keywords {
				for _, w := range window {
					if w == kw {
						count++

						break
					}
				}
			}

			if count > 0 {
				scores[role] = count
			}
		}

		candidates = append(candidates, Candidate{
			GUID:       tok,
			TokenIndex: i,
			Window:     strings.Join(tokens[start:end], " "),
			RoleScores: scores,
		})
	}

	return candidates
}

// Resolve assigns message candidates to the needed slots. A slot is assigned
// only when one candidate scores positive and leads the runner-up by the
// margin; everything closer is recorded as ambiguous. A candidate is never
// assigned to more than one slot.
func (r *Resolver) Resolve(message string, slots []string) Resolution {
	candidates := ExtractCandidates(message)
	res := Resolution{
		Resolved:   make(map[string]string),
		Candidates: candidates,
	}

	if len(candidates) == 0 || len(slots) == 0 {
		return res
	}

	if len(candidates) == 1 && len(slots) == 1 {
		res.Resolved[slots[0]] = candidates[0].GUID
		r.log.WithFields(logrus.Fields{
			"slot": slots[0],
			"guid": candidates[0].GUID,
		}).Debug("Single candidate assigned directly")

		return res
	}

	messageLower := strings.ToLower(message)
	taken := make(map[string]bool)

	for _, slot := range slots {
		scored := make([]ScoredCandidate, 0, len(candidates))

		for _, c := range candidates {
			if taken[c.GUID] {
				continue
			}

			score := c.RoleScores[slot]
			if rootAdjacent(messageLower, slot, c.GUID) {
				score += adjacencyBonus
			}

			scored = append(scored, ScoredCandidate{GUID: c.GUID, Score: score})
		}

		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})

		if len(scored) == 0 {
			res.Ambiguities = append(res.Ambiguities, Ambiguity{Slot: slot})

			continue
		}

		runnerUp := -1
		if len(scored) > 1 {
			runnerUp = scored[1].Score
		}

		if scored[0].Score > 0 && scored[0].Score-runnerUp >= assignMargin {
			res.Resolved[slot] = scored[0].GUID
			taken[scored[0].GUID] = true
			r.log.WithFields(logrus.Fields{
				"slot":  slot,
				"guid":  scored[0].GUID,
				"score": scored[0].Score,
			}).Debug("Slot resolved")

			continue
		}

		res.Ambiguities = append(res.Ambiguities, Ambiguity{Slot: slot, Candidates: scored})
		r.log.WithField("slot", slot).Debug("Slot ambiguous")
	}

	return res
}

// rootAdjacent reports whether the slot's root word ("device" for device_id)
// appears immediately before the candidate GUID, separated only by
// punctuation or whitespace.
func rootAdjacent(messageLower, slot, guid string) bool {
	root, _, ok := strings.Cut(slot, "_")
	if !ok || root == "" {
		return false
	}

	re, err := regexp.Compile(root + `[^a-z0-9]*` + regexp.QuoteMeta(strings.ToLower(guid)))
	if err != nil {
		return false
	}

	return re.MatchString(messageLower)
}
