package search

import (
	"strings"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

// genericKeywords is the fixed set of topically-empty tokens the
// classifier discards when deciding whether a query plan carries
// "meaningful" keywords.
var genericKeywords = map[string]bool{
	"여행": true, "travel": true,
	"풍경": true, "landscape": true, "scenic": true,
	"관광": true, "tour": true, "trip": true, "vacation": true,
	"사진": true, "photo": true, "picture": true, "image": true,
	"nature": true, "자연": true,
	"view": true, "뷰": true, "경치": true,
	"island": true, "섬": true,
}

// meaningfulKeywords returns plan.Keywords minus any token whose
// lowercase form contains one of the plan's location names, and minus
// any token in the generic keyword set.
func meaningfulKeywords(plan domain.QueryPlan) []string {
	out := make([]string, 0, len(plan.Keywords))

outer:
	for _, kw := range plan.Keywords {
		lower := strings.ToLower(kw)

		if plan.Location != nil {
			for _, name := range plan.Location.Names {
				if name != "" && strings.Contains(lower, strings.ToLower(name)) {
					continue outer
				}
			}
		}
		if genericKeywords[lower] {
			continue
		}
		out = append(out, kw)
	}
	return out
}
