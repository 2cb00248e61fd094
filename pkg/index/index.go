// Package index builds the search and lookup structures over parsed
// scenarios: exact slug/alias lookup, query-id lookup, and a ranked keyword
// search. Search returns lightweight summaries only; full query text is
// reserved for the explicit get-scenario path.
package index

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

var wordRe = regexp.MustCompile(`\w+`)

// entry is one indexed scenario with its precomputed keyword sets.
type entry struct {
	scenario   types.Scenario
	order      int // insertion order, used as the stable tie-breaker
	slug       string
	titleLower string
	domain     string
	aliases    []string // lowercased

	titleWords       map[string]bool
	explicitKeywords map[string]bool // from scenario metadata
	derivedKeywords  map[string]bool // title words, slug tokens, domain, alias tokens
	allKeywords      map[string]bool
}

// queryRef locates a step inside an indexed scenario.
type queryRef struct {
	entryIdx int
	stepIdx  int
}

// Index provides ranked search and exact lookup over scenarios.
type Index struct {
	log       logrus.FieldLogger
	entries   []*entry
	bySlug    map[string]*entry
	byQueryID map[string]queryRef
}

// New builds an index from parsed scenarios. Scenarios without steps are
// discarded; only scenarios with at least one executable step are retrievable.
func New(log logrus.FieldLogger, scenarios []types.Scenario) *Index {
	idx := &Index{
		log:       log.WithField("component", "scenario_index"),
		bySlug:    make(map[string]*entry, len(scenarios)),
		byQueryID: make(map[string]queryRef),
	}

	for _, sc := range scenarios {
		if len(sc.Steps) == 0 {
			idx.log.WithField("slug", sc.Slug).Debug("Discarding scenario without steps")

			continue
		}

		idx.add(sc)
	}

	idx.log.WithFields(logrus.Fields{
		"scenario_count": len(idx.entries),
		"query_count":    len(idx.byQueryID),
	}).Info("Scenario index built")

	return idx
}

func (idx *Index) add(sc types.Scenario) {
	e := &entry{
		scenario:         sc,
		order:            len(idx.entries),
		slug:             strings.ToLower(sc.Slug),
		titleLower:       strings.ToLower(sc.Title),
		domain:           strings.ToLower(sc.Domain),
		titleWords:       map[string]bool{},
		explicitKeywords: map[string]bool{},
		derivedKeywords:  map[string]bool{},
		allKeywords:      map[string]bool{},
	}

	for _, alias := range sc.Aliases {
		e.aliases = append(e.aliases, strings.ToLower(strings.TrimSpace(alias)))
	}

	for _, kw := range sc.Keywords {
		e.explicitKeywords[strings.ToLower(strings.TrimSpace(kw))] = true
	}

	for _, w := range tokenize(e.titleLower) {
		if len(w) > 1 {
			e.titleWords[w] = true
		}
	}

	// Derived keywords: everything searchable that the author did not list
	// explicitly. Seeded from title, slug, domain, and aliases.
	derived := append([]string{}, tokenize(e.titleLower)...)
	derived = append(derived, tokenize(strings.ReplaceAll(e.slug, "-", " "))...)

	if e.domain != "" {
		derived = append(derived, e.domain)
	}

	for _, alias := range e.aliases {
		derived = append(derived, tokenize(alias)...)
	}

	for _, w := range derived {
		if len(w) > 1 && !e.explicitKeywords[w] {
			e.derivedKeywords[w] = true
		}
	}

	for kw := range e.explicitKeywords {
		e.allKeywords[kw] = true
	}

	for kw := range e.derivedKeywords {
		e.allKeywords[kw] = true
	}

	idx.entries = append(idx.entries, e)
	idx.bySlug[e.slug] = e

	for i, step := range sc.Steps {
		idx.byQueryID[step.QueryID] = queryRef{entryIdx: e.order, stepIdx: i}
	}
}

// scored pairs an entry with its search score.
type scored struct {
	entry *entry
	score int
}

// Search returns scenario summaries ranked by the weighted scoring rules.
// An empty query with no domain filter returns nothing; search is never a
// list-everything operation.
func (idx *Index) Search(query, domain string) []types.ScenarioSummary {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	domainLower := strings.ToLower(strings.TrimSpace(domain))

	if queryLower == "" && domainLower == "" {
		return nil
	}

	tokenList := tokenize(queryLower)
	tokens := make(map[string]bool, len(tokenList))

	for _, t := range tokenList {
		tokens[t] = true
	}

	normalized := normalizeKey(queryLower)
	results := make([]scored, 0)

	for _, e := range idx.entries {
		if domainLower != "" && e.domain != domainLower {
			continue
		}

		in := &ruleInput{
			query:          queryLower,
			normalized:     normalized,
			tokens:         tokens,
			tokenList:      tokenList,
			scenario:       e,
			domainFiltered: domainLower != "",
			counted:        map[string]bool{},
		}

		score := 0
		for _, r := range scoringRules {
			score += r.weight * r.hits(in)
		}

		if score > 0 {
			results = append(results, scored{entry: e, score: score})
		}
	}

	// Descending score; insertion order breaks ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	summaries := make([]types.ScenarioSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, r.entry.scenario.Summarize())
	}

	idx.log.WithFields(logrus.Fields{
		"query":   query,
		"domain":  domain,
		"matches": len(summaries),
	}).Debug("Scenario search completed")

	return summaries
}

// GetByKey resolves a slug or alias to its scenario: exact slug first, then
// separator-normalized slug, then normalized alias. Returns nil on miss.
func (idx *Index) GetByKey(slugOrAlias string) *types.Scenario {
	if e, ok := idx.bySlug[slugOrAlias]; ok {
		return &e.scenario
	}

	normalized := normalizeKey(strings.ToLower(strings.TrimSpace(slugOrAlias)))
	if e, ok := idx.bySlug[normalized]; ok {
		return &e.scenario
	}

	lower := strings.ToLower(strings.TrimSpace(slugOrAlias))

	for _, e := range idx.entries {
		for _, alias := range e.aliases {
			if lower == alias || normalized == normalizeKey(alias) {
				return &e.scenario
			}
		}
	}

	return nil
}

// GetByQueryID resolves a query ID to its owning scenario and step.
func (idx *Index) GetByQueryID(queryID string) (*types.Scenario, *types.QueryStep) {
	ref, ok := idx.byQueryID[queryID]
	if !ok {
		return nil, nil
	}

	e := idx.entries[ref.entryIdx]

	return &e.scenario, &e.scenario.Steps[ref.stepIdx]
}

// All returns summaries of every indexed scenario in document order. This is
// the explicit listing operation; Search never returns everything.
func (idx *Index) All() []types.ScenarioSummary {
	summaries := make([]types.ScenarioSummary, 0, len(idx.entries))

	for _, e := range idx.entries {
		summaries = append(summaries, e.scenario.Summarize())
	}

	return summaries
}

// promptKeywordLimit caps the keywords shown per scenario in PromptText.
const promptKeywordLimit = 5

// PromptText renders a compact scenario listing suitable for inclusion in an
// orchestrator prompt: one line per scenario with slug, description, and the
// first few keywords.
func (idx *Index) PromptText() string {
	var b strings.Builder

	b.WriteString("Available diagnostic scenarios:\n")

	for _, e := range idx.entries {
		summary := e.scenario.Summarize()

		keywords := summary.Keywords
		if len(keywords) > promptKeywordLimit {
			keywords = keywords[:promptKeywordLimit]
		}

		b.WriteString("- ")
		b.WriteString(summary.Slug)
		b.WriteString(": ")
		b.WriteString(summary.Description)

		if len(keywords) > 0 {
			b.WriteString(" (keywords: ")
			b.WriteString(strings.Join(keywords, ", "))
			b.WriteString(")")
		}

		b.WriteString("\n")
	}

	return b.String()
}

// Count returns the number of indexed scenarios.
func (idx *Index) Count() int {
	return len(idx.entries)
}

// normalizeKey collapses case and word separators so "Device Details",
// "device_details" and "device-details" all compare equal.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")

	return s
}

func tokenize(s string) []string {
	return wordRe.FindAllString(s, -1)
}
