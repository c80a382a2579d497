package model

import "strings"

// Defaults applied by the catalog loader when a source record is missing
// a field. Kept here so the loader, the web adapter and the exporters
// agree on what an "unknown" value looks like.
const (
	DefaultTitle     = "Sin título"
	DefaultPlaceName = "Lugar no especificado"
	DefaultType      = "other"
	DefaultURL       = "#"
	DefaultIconPath  = "data/icons/default-place.jpg"
)

// keySep separates identity key components. Unit separator rather than
// a printable character so titles containing dashes cannot collide.
const keySep = "\x1f"

// Event is a single cultural event after the loader has joined it with
// its place record and normalized missing fields. The set of loaded
// events is immutable once built; edits are applied as an overlay at
// export time only.
type Event struct {
	Title         string `json:"title"`
	StartDateTime string `json:"start_datetime"`
	SourceWebsite string `json:"source_website,omitempty"`

	// Price is nil when the source did not carry a usable price.
	// A price of 0 is a real value and means "free".
	Price *float64 `json:"price"`

	Type string `json:"type"`
	URL  string `json:"url"`

	// Resolved from the place join. Lat/Lng are nil when the place is
	// unknown or carries no coordinates.
	PlaceName string   `json:"placeName"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Icon      string   `json:"icon"`

	Duplicated bool `json:"duplicated,omitempty"`
}

// Key returns the identity key used for selection, edits and reports:
// title + start datetime + place name. After deduplication the first
// two components are already unique, so the three-field key is too.
func (e Event) Key() string {
	return strings.Join([]string{e.Title, e.StartDateTime, e.PlaceName}, keySep)
}

// DedupeKey is the two-field key deduplication collapses on. Two events
// sharing title and start datetime are considered the same event even
// when their place records differ; the first occurrence wins.
func (e Event) DedupeKey() string {
	return e.Title + keySep + e.StartDateTime
}

// Place is a venue record as loaded from places.json. URL is the join
// key against Event.SourceWebsite.
type Place struct {
	URL  string   `json:"url"`
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Icon string   `json:"icon,omitempty"`
}

// Edit is a user-entered partial override for a selected event, keyed
// by the event's identity key and persisted independently of the
// in-memory event list. Nil fields leave the original value untouched.
// Edits never carry icon data; the original's resolved icon always
// survives the merge.
type Edit struct {
	Title         *string  `json:"title,omitempty"`
	StartDateTime *string  `json:"start_datetime,omitempty"`
	PlaceName     *string  `json:"placeName,omitempty"`
	Type          *string  `json:"type,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	URL           *string  `json:"url,omitempty"`
}

// Apply merges the edit over ev, edit fields winning, and returns the
// merged event. The event's resolved icon is preserved unconditionally.
func (ed Edit) Apply(ev Event) Event {
	if ed.Title != nil {
		ev.Title = *ed.Title
	}
	if ed.StartDateTime != nil {
		ev.StartDateTime = *ed.StartDateTime
	}
	if ed.PlaceName != nil {
		ev.PlaceName = *ed.PlaceName
	}
	if ed.Type != nil {
		ev.Type = *ed.Type
	}
	if ed.Price != nil {
		ev.Price = ed.Price
	}
	if ed.URL != nil {
		ev.URL = *ed.URL
	}
	return ev
}

// typeDisplayNames maps free-text category values to their Spanish
// display labels. Unknown categories pass through verbatim.
var typeDisplayNames = map[string]string{
	"music":      "Música",
	"theater":    "Teatro",
	"art":        "Arte",
	"dance":      "Danza",
	"literature": "Literatura",
	"film":       "Cine",
	"workshop":   "Taller",
	"exhibition": "Exposición",
	"festival":   "Festival",
	"conference": "Conferencia",
	"party":      "Fiesta",
	"show":       "Show",
	"lecture":    "Conferencia",
	"discussion": "Debate",
	"march":      "Marcha",
	"other":      "Otro",

	// Categories that arrive already in Spanish, normalized to their
	// accented display forms.
	"Musica":      "Música",
	"Teatro":      "Teatro",
	"Arte":        "Arte",
	"Danza":       "Danza",
	"Literatura":  "Literatura",
	"Cine":        "Cine",
	"Taller":      "Taller",
	"Exposicion":  "Exposición",
	"Festival":    "Festival",
	"Conferencia": "Conferencia",
	"Fiesta":      "Fiesta",
	"Show":        "Show",
	"Debate":      "Debate",
	"Marcha":      "Marcha",
	"Otros":       "Otros",
}

// TypeDisplayName resolves a category value to its display label.
func TypeDisplayName(t string) string {
	if name, ok := typeDisplayNames[t]; ok {
		return name
	}
	return t
}
