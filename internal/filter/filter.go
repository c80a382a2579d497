// Package filter derives the visible subset of the catalog from a set
// of criteria. Apply is a pure function: criteria are rebuilt from the
// caller's state on every invocation and nothing here holds state.
package filter

import (
	"math"
	"sort"
	"strings"
	"time"

	"eventcal/internal/geo"
	"eventcal/internal/model"
)

// Criteria is the full set of filter parameters for one application.
// Empty place/type sets mean "no restriction", never "exclude all".
// Nil price bounds are unset; events with unknown price bypass the
// bounds entirely.
type Criteria struct {
	// StartDate / EndDate bound the inclusive date range, YYYY-MM-DD,
	// empty for unbounded. The end bound is extended to 06:00 of the
	// following day so evening events spilling past midnight stay in.
	StartDate string
	EndDate   string

	Places []string
	Types  []string

	MinPrice *float64
	MaxPrice *float64

	// Search is matched case-insensitively against title and place name.
	Search string

	// Distance constraint. Only applied when enabled and both the user
	// coordinate and the event coordinate are present; events with
	// missing location data are never excluded by distance.
	DistanceEnabled bool
	UserLat         *float64
	UserLng         *float64
	RadiusKm        float64
}

// Stats counts how many events each predicate rejected during one
// Apply. Predicates short-circuit, so an event only counts against the
// first one it fails.
type Stats struct {
	Date     int
	Place    int
	Price    int
	Type     int
	Search   int
	Distance int
	Passed   int
}

// endBoundExtensionHour extends the end date to cover evening events
// that run past midnight: the range closes at 06:00 the next day.
const endBoundExtensionHour = 6

// Apply filters events by c and returns the surviving subset in sorted
// order. The input slice is not modified.
func Apply(events []model.Event, c Criteria) []model.Event {
	out, _ := ApplyWithStats(events, c)
	return out
}

// ApplyWithStats is Apply plus a per-predicate rejection breakdown.
func ApplyWithStats(events []model.Event, c Criteria) ([]model.Event, Stats) {
	var stats Stats

	placeSet := toSet(c.Places)
	typeSet := toSet(c.Types)
	search := strings.ToLower(strings.TrimSpace(c.Search))

	startBound, hasStart := model.ParseDate(c.StartDate)
	endBound, hasEnd := model.ParseDate(c.EndDate)
	if hasEnd {
		endBound = endBound.AddDate(0, 0, 1).Add(endBoundExtensionHour * time.Hour)
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		start, startValid := model.ParseDateTime(ev.StartDateTime)

		// Date range. Events with an unparseable date pass; the sort
		// pushes them last instead.
		if startValid {
			if hasStart && start.Before(startBound) {
				stats.Date++
				continue
			}
			if hasEnd && start.After(endBound) {
				stats.Date++
				continue
			}
		}

		if len(placeSet) > 0 {
			if _, ok := placeSet[ev.PlaceName]; !ok {
				stats.Place++
				continue
			}
		}

		if ev.Price != nil {
			if c.MinPrice != nil && *ev.Price < *c.MinPrice {
				stats.Price++
				continue
			}
			if c.MaxPrice != nil && *ev.Price > *c.MaxPrice {
				stats.Price++
				continue
			}
		}

		if len(typeSet) > 0 {
			if _, ok := typeSet[ev.Type]; !ok {
				stats.Type++
				continue
			}
		}

		if search != "" {
			title := strings.ToLower(ev.Title)
			place := strings.ToLower(ev.PlaceName)
			if !strings.Contains(title, search) && !strings.Contains(place, search) {
				stats.Search++
				continue
			}
		}

		if c.DistanceEnabled && c.UserLat != nil && c.UserLng != nil && ev.Lat != nil && ev.Lng != nil {
			d := geo.HaversineKm(*c.UserLat, *c.UserLng, *ev.Lat, *ev.Lng)
			if d > c.RadiusKm {
				stats.Distance++
				continue
			}
		}

		stats.Passed++
		out = append(out, ev)
	}

	Sort(out)
	return out, stats
}

// Sort orders events in place by the display order: valid dates
// ascending with unparseable dates last, then price ascending with
// unknown price as +Inf, then place name ascending case-insensitively.
// The sort is stable.
func Sort(events []model.Event) {
	type keyed struct {
		ev    model.Event
		valid bool
		start int64
		price float64
		place string
	}

	items := make([]keyed, len(events))
	for i, ev := range events {
		k := keyed{ev: ev, place: strings.ToLower(ev.PlaceName), price: math.Inf(1)}
		if start, ok := model.ParseDateTime(ev.StartDateTime); ok {
			k.valid = true
			k.start = start.Unix()
		}
		if ev.Price != nil {
			k.price = *ev.Price
		}
		items[i] = k
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.valid != b.valid {
			return a.valid
		}
		if a.valid && a.start != b.start {
			return a.start < b.start
		}
		if a.price != b.price {
			return a.price < b.price
		}
		return a.place < b.place
	})

	for i := range items {
		events[i] = items[i].ev
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
