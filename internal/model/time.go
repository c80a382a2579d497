package model

import (
	"time"
)

// Datetime values in the catalog are local wall-clock strings in
// YYYY-MM-DD[THH:MM[:SS]] form. They are materialized in UTC so that no
// timezone conversion can ever shift the numeric components; the zone
// is a carrier, not a meaning.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDateTime parses a wall-clock datetime string. The second return
// value is false when the string cannot be parsed even by the
// best-effort fallback; callers must treat that as a first-class
// "unknown date" sentinel, not an error.
func ParseDateTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	// Best-effort generic parse for malformed strings; keep the wall
	// clock and discard the offset.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseDate parses a YYYY-MM-DD date string at 00:00:00.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
