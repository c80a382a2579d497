// Package catalog builds the canonical event set: it fetches the events
// and places datasets, joins them, deduplicates and normalizes. The
// resulting slice is immutable for the life of the process.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"

	"golang.org/x/sync/errgroup"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

// Sources names the two dataset inputs for one load.
type Sources struct {
	Events Source
	Places Source
}

// price tolerates the shapes the scraped data carries: a JSON number,
// null, or junk (strings, NaN markers). Anything that is not a finite
// number decodes to nil, the "unknown price" sentinel. Zero is a real
// price and means free.
type price struct {
	value *float64
}

func (p *price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		// Non-numeric price data is unknown, not an error.
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	p.value = &n
	return nil
}

// rawEvent is the wire shape of one events.json record.
type rawEvent struct {
	Title         string `json:"title"`
	StartDateTime string `json:"start_datetime"`
	SourceWebsite string `json:"source_website"`
	Type          string `json:"type"`
	Price         price  `json:"price"`
	URL           string `json:"url"`
	Duplicated    bool   `json:"duplicated"`
}

// Load fetches both datasets, joins events against places, dedupes and
// normalizes. Either dataset failing to load is fatal: no partial event
// set is ever produced.
func Load(ctx context.Context, f *Fetcher, src Sources) ([]model.Event, error) {
	var eventsBody, placesBody []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := f.Fetch(gctx, src.Events)
		if err != nil {
			return fmt.Errorf("load events dataset: %w", err)
		}
		eventsBody = body
		return nil
	})
	g.Go(func() error {
		body, err := f.Fetch(gctx, src.Places)
		if err != nil {
			return fmt.Errorf("load places dataset: %w", err)
		}
		placesBody = body
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var raw []rawEvent
	if err := json.Unmarshal(eventsBody, &raw); err != nil {
		return nil, fmt.Errorf("decode events dataset: %w", err)
	}
	var places []model.Place
	if err := json.Unmarshal(placesBody, &places); err != nil {
		return nil, fmt.Errorf("decode places dataset: %w", err)
	}

	events := merge(raw, places)
	events = dedupe(events)
	events = normalize(events)

	withCoords := 0
	for _, ev := range events {
		if ev.Lat != nil && ev.Lng != nil {
			withCoords++
		}
	}
	appLog.Info("catalog loaded",
		"events", len(events),
		"places", len(places),
		"with_coordinates", withCoords,
	)
	return events, nil
}

// merge joins each event with the place whose URL matches the event's
// originating source. Unresolved events get the default place label,
// no coordinates and the default icon.
func merge(raw []rawEvent, places []model.Place) []model.Event {
	byURL := make(map[string]model.Place, len(places))
	for _, p := range places {
		byURL[p.URL] = p
	}

	events := make([]model.Event, 0, len(raw))
	for _, r := range raw {
		ev := model.Event{
			Title:         r.Title,
			StartDateTime: r.StartDateTime,
			SourceWebsite: r.SourceWebsite,
			Type:          r.Type,
			Price:         r.Price.value,
			URL:           r.URL,
			Duplicated:    r.Duplicated,
		}
		if p, ok := byURL[r.SourceWebsite]; ok {
			ev.PlaceName = p.Name
			ev.Lat = p.Lat
			ev.Lng = p.Lng
			if p.Icon != "" {
				ev.Icon = path.Join("data/icons", p.Icon)
			} else {
				ev.Icon = model.DefaultIconPath
			}
		} else {
			ev.PlaceName = model.DefaultPlaceName
			ev.Icon = model.DefaultIconPath
		}
		events = append(events, ev)
	}
	return events
}

// dedupe collapses events sharing title and start datetime, keeping the
// first occurrence in source order.
func dedupe(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, ev := range events {
		key := ev.DedupeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// normalize fills defaults for missing fields, then drops events that
// still have no start datetime: they cannot be scheduled or filtered.
func normalize(events []model.Event) []model.Event {
	out := events[:0]
	for _, ev := range events {
		if ev.Title == "" {
			ev.Title = model.DefaultTitle
		}
		if ev.Type == "" {
			ev.Type = model.DefaultType
		}
		if ev.PlaceName == "" {
			ev.PlaceName = model.DefaultPlaceName
		}
		if ev.URL == "" {
			ev.URL = model.DefaultURL
		}
		if ev.Icon == "" {
			ev.Icon = model.DefaultIconPath
		}
		if ev.StartDateTime == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}
