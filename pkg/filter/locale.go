package filter

import "strings"

// administrativeSuffixes is the longest-first list of Korean
// administrative-unit suffixes the location filter strips to produce
// name variants.
var administrativeSuffixes = []string{
	"특별자치도", "특별자치시", "광역시", "특별시", "자치도", "자치시", "도", "시", "군", "구",
}

// addBackSuffixes are appended to the stripped base to recover its
// most common canonical forms.
var addBackSuffixes = []string{"시", "도"}

// locationVariants expands a place name into its administrative-suffix
// variants: the name itself, its base with the longest matching
// administrative suffix stripped, and that base with {시, 도}
// reappended. "제주도" -> {제주도, 제주, 제주시}.
func locationVariants(name string) []string {
	seen := map[string]bool{name: true}
	order := []string{name}

	base := name
	for _, suf := range administrativeSuffixes {
		if strings.HasSuffix(base, suf) {
			stripped := strings.TrimSuffix(base, suf)
			if stripped == "" {
				break
			}
			if !seen[stripped] {
				seen[stripped] = true
				order = append(order, stripped)
			}
			base = stripped
			break
		}
	}

	for _, ab := range addBackSuffixes {
		candidate := base + ab
		if !seen[candidate] {
			seen[candidate] = true
			order = append(order, candidate)
		}
	}

	return order
}
