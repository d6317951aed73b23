package parser

import (
	"strings"
	"time"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

// fallbackPlan builds the deterministic QueryPlan the parser falls
// back to when the LLM call fails or returns invalid JSON: search_text
// defaults to the raw utterance, every structural field starts empty,
// then a small set of rule-based hints and relative-date phrases are
// recognized verbatim.
func fallbackPlan(utterance string, now time.Time) domain.QueryPlan {
	plan := domain.QueryPlan{SearchText: utterance}

	applyRelativeDate(&plan, utterance, now)

	if strings.Contains(utterance, "파스타") {
		plan.SearchText = "pasta italian food"
	}
	if strings.Contains(utterance, "엄마") {
		plan.People = append(plan.People, "엄마")
	}

	return plan
}

// applyRelativeDate recognizes the fixed set of relative-date phrases
// the parser's LLM instruction also resolves against "today", so the
// fallback stays consistent with the LLM path when it does fire.
func applyRelativeDate(plan *domain.QueryPlan, utterance string, now time.Time) {
	switch {
	case strings.Contains(utterance, "작년 여름"):
		lastYear := now.Year() - 1
		start := dateString(lastYear, time.June, 1)
		end := dateString(lastYear, time.August, 31)
		plan.TimeRange = domain.TimeRange{Start: &start, End: &end}

	case strings.Contains(utterance, "작년"):
		lastYear := now.Year() - 1
		start := dateString(lastYear, time.January, 1)
		end := dateString(lastYear, time.December, 31)
		plan.TimeRange = domain.TimeRange{Start: &start, End: &end}

	case strings.Contains(utterance, "올해"):
		start := dateString(now.Year(), time.January, 1)
		end := dateString(now.Year(), time.December, 31)
		plan.TimeRange = domain.TimeRange{Start: &start, End: &end}

	case strings.Contains(utterance, "몇 년 전"):
		start := dateString(now.Year()-5, time.January, 1)
		end := dateString(now.Year(), time.December, 31)
		plan.TimeRange = domain.TimeRange{Start: &start, End: &end}
	}
}

func dateString(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
