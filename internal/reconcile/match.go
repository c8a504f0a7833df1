package reconcile

import (
	"regexp"
	"sort"
	"strings"

	"internship-portal/internal/models"

	"github.com/agext/levenshtein"
)

// SuggestionDistance is the largest edit distance still offered as a
// "did you mean" hint.
const SuggestionDistance = 5

var punctuationSpacing = regexp.MustCompile(`\s*([()/,&-])\s*`)

// NormalizeName collapses whitespace, removes spacing around parentheses and
// separators, and lowercases, so "Data Science (AI / ML)" and
// "data science(ai/ml)" compare equal.
func NormalizeName(name string) string {
	s := strings.Join(strings.Fields(name), " ")
	s = punctuationSpacing.ReplaceAllString(s, "$1")
	return strings.ToLower(s)
}

// Unresolved describes a listed name without an exact canonical match.
type Unresolved struct {
	Input string `json:"input"`
	// Suggestion is empty when nothing was within SuggestionDistance.
	Suggestion string `json:"suggestion,omitempty"`
	Distance   int    `json:"distance,omitempty"`
	// NotOfferedTo names the student's branch when the input is a canonical
	// domain that branch cannot choose.
	NotOfferedTo string `json:"not_offered_to,omitempty"`
}

type candidate struct {
	normalized string
	domain     models.Domain
}

// Matcher resolves free-text names against a fixed set of canonical domains.
type Matcher struct {
	exact      map[string]models.Domain
	candidates []candidate
}

func NewMatcher(domains []models.Domain) *Matcher {
	m := &Matcher{exact: make(map[string]models.Domain, len(domains))}
	for _, d := range domains {
		key := NormalizeName(d.Name)
		if _, dup := m.exact[key]; dup {
			continue
		}
		m.exact[key] = d
		m.candidates = append(m.candidates, candidate{normalized: key, domain: d})
	}
	sort.Slice(m.candidates, func(i, j int) bool {
		return m.candidates[i].normalized < m.candidates[j].normalized
	})
	return m
}

// Exact returns the canonical domain whose normalized name equals name.
func (m *Matcher) Exact(name string) (*models.Domain, bool) {
	d, ok := m.exact[NormalizeName(name)]
	if !ok {
		return nil, false
	}
	return &d, true
}

// Resolve returns the canonical domain for name, or a description of the miss
// carrying the closest canonical name when one is near enough. It never
// substitutes the suggestion for the input.
func (m *Matcher) Resolve(name string) (*models.Domain, *Unresolved) {
	key := NormalizeName(name)
	if d, ok := m.exact[key]; ok {
		return &d, nil
	}

	miss := &Unresolved{Input: name}
	best := -1
	for _, c := range m.candidates {
		dist := levenshtein.Distance(key, c.normalized, nil)
		if dist > SuggestionDistance {
			continue
		}
		// candidates are sorted, so ties keep the alphabetically first
		if best == -1 || dist < best {
			best = dist
			miss.Suggestion = c.domain.Name
			miss.Distance = dist
		}
	}
	return nil, miss
}
