package domain

import "strings"

// CompareTakenAt orders two taken_at strings using the lossy
// string-prefix semantics the engine intentionally preserves: the
// stored value may be a full RFC 3339 timestamp or a bare date
// ("2024-07-15"), and both compare correctly against each other and
// against range bounds of either shape because ISO-8601 orders
// lexicographically by construction. Timezone information beyond what
// the prefix comparison captures is silently lost.
//
// Returns -1, 0, or 1 the way strings.Compare does.
func CompareTakenAt(a, b string) int {
	return strings.Compare(a, b)
}

// TakenAtInRange reports whether takenAt satisfies [start, end]
// inclusively, treating a nil bound as unbounded on that side. Each
// bound is compared over the common-length prefix of the two strings,
// so a full timestamp falls within a date-only bound on its own day.
// An absent takenAt is handled by the caller: this helper is only ever
// invoked once takenAt is known to be non-nil, matching the time
// filter's "missing taken_at excluded only when a bound is set" rule.
func TakenAtInRange(takenAt string, start, end *string) bool {
	comparePrefix := func(a, b string) int {
		n := min(len(a), len(b))
		return CompareTakenAt(a[:n], b[:n])
	}
	if start != nil && comparePrefix(takenAt, *start) < 0 {
		return false
	}
	if end != nil && comparePrefix(takenAt, *end) > 0 {
		return false
	}
	return true
}

// TakenAtDate returns the date-only prefix of a taken_at string
// ("2024-07-15T10:00:00Z" -> "2024-07-15"), used by find_same_day's
// day-window comparisons which operate on calendar days regardless of
// whether the stored value carries a time component.
func TakenAtDate(takenAt string) string {
	if i := strings.IndexByte(takenAt, 'T'); i >= 0 {
		return takenAt[:i]
	}
	if len(takenAt) >= 10 {
		return takenAt[:10]
	}
	return takenAt
}
