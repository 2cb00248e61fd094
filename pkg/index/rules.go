package index

import "strings"

// Scoring weights. Each rule's contribution is weight * hits; keeping the
// tiers as named data lets every rule be tuned and tested on its own.
const (
	weightExactSlug       = 100
	weightExactAlias      = 80
	weightTitleSubstring  = 50
	weightDomainToken     = 25
	weightTitleWord       = 30
	weightTitleWordDomain = 10
	weightExplicitKeyword = 15
	weightDerivedKeyword  = 8
	weightPartialKeyword  = 5
	weightTechnicalTerm   = 20
)

// technicalTerms is the curated jargon set that outranks ordinary keywords:
// protocol names, product abbreviations, and failure-mode shorthand that users
// type verbatim when they know exactly what they are chasing.
var technicalTerms = map[string]bool{
	"dcv1":      true,
	"dcv2":      true,
	"esp":       true,
	"ztd":       true,
	"jamf":      true,
	"mam":       true,
	"autopilot": true,
	"conflict":  true,
	"conflicts": true,
}

// ruleInput carries one candidate scenario's precomputed matching state
// through the rule list. Rules run in order; later rules may read flags set
// by earlier ones (domainHit, counted).
type ruleInput struct {
	query      string // lowercased, trimmed
	normalized string // lowercased with separators collapsed to '-'
	tokens     map[string]bool
	tokenList  []string

	scenario *entry

	domainFiltered bool // an explicit domain filter was requested and matched
	domainHit      bool
	counted        map[string]bool // keywords already credited by earlier rules
}

// rule is one named scoring tier.
type rule struct {
	name   string
	weight int
	hits   func(in *ruleInput) int
}

// scoringRules are evaluated top to bottom for every candidate scenario and
// their weighted hits summed. Candidates with a total of zero are dropped.
var scoringRules = []rule{
	{
		name:   "exact_slug",
		weight: weightExactSlug,
		hits: func(in *ruleInput) int {
			if in.query == in.scenario.slug || in.normalized == in.scenario.slug {
				return 1
			}

			return 0
		},
	},
	{
		name:   "exact_alias",
		weight: weightExactAlias,
		hits: func(in *ruleInput) int {
			// Only the first matching alias counts.
			for _, alias := range in.scenario.aliases {
				if in.query == alias || in.normalized == normalizeKey(alias) {
					return 1
				}
			}

			return 0
		},
	},
	{
		name:   "title_substring",
		weight: weightTitleSubstring,
		hits: func(in *ruleInput) int {
			title := in.scenario.titleLower
			if in.query != "" && (strings.Contains(title, in.query) || strings.Contains(in.query, title)) {
				return 1
			}

			return 0
		},
	},
	{
		name:   "domain_token",
		weight: weightDomainToken,
		hits: func(in *ruleInput) int {
			if in.domainFiltered {
				in.domainHit = true

				return 0 // the filter already gated candidates; no extra score
			}

			if in.scenario.domain != "" && in.tokens[in.scenario.domain] {
				in.domainHit = true

				return 1
			}

			return 0
		},
	},
	{
		name:   "title_word",
		weight: weightTitleWord,
		hits:   titleWordHits,
	},
	{
		name:   "title_word_domain_bonus",
		weight: weightTitleWordDomain,
		hits: func(in *ruleInput) int {
			if !in.domainHit {
				return 0
			}

			return titleWordHits(in)
		},
	},
	{
		name:   "explicit_keyword",
		weight: weightExplicitKeyword,
		hits: func(in *ruleInput) int {
			hits := 0

			for kw := range in.scenario.explicitKeywords {
				if in.tokens[kw] || (strings.Contains(kw, " ") && strings.Contains(in.query, kw)) {
					in.counted[kw] = true
					hits++
				}
			}

			return hits
		},
	},
	{
		name:   "derived_keyword",
		weight: weightDerivedKeyword,
		hits: func(in *ruleInput) int {
			hits := 0

			for kw := range in.scenario.derivedKeywords {
				if in.counted[kw] {
					continue
				}

				if in.tokens[kw] {
					in.counted[kw] = true
					hits++
				}
			}

			return hits
		},
	},
	{
		name:   "partial_keyword",
		weight: weightPartialKeyword,
		hits: func(in *ruleInput) int {
			hits := 0

			// At most one partial credit per query word.
			for _, word := range in.tokenList {
				if len(word) <= 3 || in.counted[word] {
					continue
				}

				if in.scenario.hasPartialKeyword(word) {
					hits++
				}
			}

			return hits
		},
	},
	{
		name:   "technical_term",
		weight: weightTechnicalTerm,
		hits: func(in *ruleInput) int {
			hits := 0

			for term := range technicalTerms {
				if in.tokens[term] && in.scenario.allKeywords[term] {
					hits++
				}
			}

			return hits
		},
	},
}

func titleWordHits(in *ruleInput) int {
	hits := 0

	for word := range in.scenario.titleWords {
		if in.tokens[word] {
			hits++
		}
	}

	return hits
}

// hasPartialKeyword reports whether any indexed keyword partially matches the
// query word in either direction, excluding exact equality (exact matches are
// credited by the keyword rules).
func (e *entry) hasPartialKeyword(word string) bool {
	for kw := range e.allKeywords {
		if kw == word {
			continue
		}

		if strings.Contains(kw, word) || strings.Contains(word, kw) {
			return true
		}
	}

	return false
}
