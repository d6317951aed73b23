// Package threshold implements the static keyword-class similarity
// threshold policy: a deterministic, lowercase keyword-set lookup with
// no learned or configurable component.
package threshold

import "strings"

// class pairs a keyword set with the similarity threshold it selects.
type class struct {
	keywords []string
	tau      float64
}

// classes is checked in order; the first class with a keyword that
// appears as a substring of the lowercased search_text wins. defaultTau
// applies when none does.
var classes = []class{
	{
		keywords: []string{"food", "meal", "pasta", "pizza", "steak", "sushi", "coffee", "ramen", "burger"},
		tau:      0.24,
	},
	{
		keywords: []string{"person", "people", "family", "portrait", "selfie", "face", "man", "woman"},
		tau:      0.28,
	},
	{
		keywords: []string{"beach", "mountain", "city", "park", "street", "ocean", "lake", "bridge"},
		tau:      0.25,
	},
	{
		keywords: []string{"walking", "running", "swimming", "playing", "cooking", "reading", "travel"},
		tau:      0.25,
	},
}

// defaultTau applies when search_text matches none of the keyword
// classes above.
const defaultTau = 0.26

// Tau returns the similarity threshold for searchText: the first
// matching keyword class's tau, or the default. Deterministic: the same
// searchText always yields the same τ.
func Tau(searchText string) float64 {
	lower := strings.ToLower(searchText)
	for _, c := range classes {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.tau
			}
		}
	}
	return defaultTau
}
