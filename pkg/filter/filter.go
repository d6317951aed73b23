// Package filter implements the metadata filter: the time, hybrid
// location, and people predicates the search engine narrows its
// candidate set with. Time and location apply before ranking, people
// after. Location matching combines a Haversine GPS radius check with
// Korean place-name suffix normalization, plus
// github.com/antzucaro/matchr's Jaro-Winkler score as an additive
// fuzzy backstop on top of substring matching.
package filter

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/geo"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for the fuzzy
// backstop to accept a location-name match that substring matching
// missed.
const fuzzyThreshold = 0.92

// ByTime keeps photos whose taken_at satisfies tr, excluding photos
// with no taken_at only when at least one bound is set.
func ByTime(photos []domain.Photo, tr domain.TimeRange) []domain.Photo {
	if tr.Start == nil && tr.End == nil {
		return photos
	}
	out := make([]domain.Photo, 0, len(photos))
	for _, p := range photos {
		if p.TakenAt == nil {
			continue
		}
		if domain.TakenAtInRange(*p.TakenAt, tr.Start, tr.End) {
			out = append(out, p)
		}
	}
	return out
}

// ByLocation keeps photos matching loc via the hybrid GPS-subset /
// name-subset union. A nil loc is a no-op (the caller skips this stage
// entirely when QueryPlan.Location is absent).
func ByLocation(photos []domain.Photo, loc *domain.LocationQuery) []domain.Photo {
	if loc == nil {
		return photos
	}

	variantSet := make(map[string]bool)
	for _, name := range loc.Names {
		for _, v := range locationVariants(name) {
			variantSet[strings.ToLower(v)] = true
		}
	}

	kept := make(map[domain.PhotoId]bool)
	out := make([]domain.Photo, 0, len(photos))

	for _, p := range photos {
		if p.GPS != nil && loc.Coords != nil {
			center := geo.Coordinate{Lat: loc.Coords.Lat, Lon: loc.Coords.Lon}
			point := geo.Coordinate{Lat: p.GPS.Lat, Lon: p.GPS.Lon}
			if geo.WithinRadiusKM(center, point, loc.Coords.RadiusKM) {
				if !kept[p.ID] {
					kept[p.ID] = true
					out = append(out, p)
				}
				continue
			}
		}

		if p.GPS == nil && p.LocationName != "" && matchesAnyVariant(p.LocationName, variantSet) {
			if !kept[p.ID] {
				kept[p.ID] = true
				out = append(out, p)
			}
		}
	}

	return out
}

// matchesAnyVariant reports whether locationName matches any of
// variants: primarily case-insensitive substring, with a Jaro-Winkler
// fuzzy backstop that only ever adds matches substring comparison
// missed, never removes one it found.
func matchesAnyVariant(locationName string, variants map[string]bool) bool {
	lowerName := strings.ToLower(locationName)
	for v := range variants {
		if strings.Contains(lowerName, v) {
			return true
		}
	}
	for v := range variants {
		if matchr.JaroWinkler(lowerName, v, false) >= fuzzyThreshold {
			return true
		}
	}
	return false
}

// PersonsLookup resolves the set of person names attached to a photo,
// satisfied by *store.Store.PersonsFor.
type PersonsLookup interface {
	PersonsFor(ctx context.Context, id domain.PhotoId) (map[string]bool, error)
}

// ByPeople keeps results whose photo has at least one face matching
// one of people. Applied after semantic ranking, per the engine's
// filter ordering.
func ByPeople(ctx context.Context, results []domain.SearchResult, people []string, lookup PersonsLookup) []domain.SearchResult {
	if len(people) == 0 {
		return results
	}
	wanted := make(map[string]bool, len(people))
	for _, p := range people {
		wanted[p] = true
	}

	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		persons, err := lookup.PersonsFor(ctx, r.ID)
		if err != nil {
			continue
		}
		for name := range persons {
			if wanted[name] {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
