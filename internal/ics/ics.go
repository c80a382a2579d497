// Package ics renders the export list as an iCalendar file. The writer
// is deliberately hand-rolled: the output format is pinned down to the
// exact escaping and timestamp shape the published calendars carry, so
// every byte here is explicit. The test suite parses the output back
// with a full iCalendar implementation to keep it honest.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

// Filename is the fixed download name for the calendar artifact.
const Filename = "eventos-culturales.ics"

// ContentType is the MIME type served with the artifact.
const ContentType = "text/calendar"

const (
	prodID = "-//Cultural Events BA//ES"
	// eventDuration is the fixed synthetic duration: the source data
	// has no end times.
	eventDuration = 2 * time.Hour
)

// Generate renders the events as a complete VCALENDAR document.
func Generate(events []model.Event) []byte {
	var b strings.Builder
	Write(&b, events)
	return []byte(b.String())
}

// Write streams the VCALENDAR document to w. Events whose start
// datetime cannot be parsed are skipped: an unschedulable event has no
// meaningful representation in a calendar file.
func Write(w io.Writer, events []model.Event) {
	writeLine(w, "BEGIN:VCALENDAR")
	writeLine(w, "VERSION:2.0")
	writeLine(w, "PRODID:"+prodID)
	writeLine(w, "CALSCALE:GREGORIAN")
	writeLine(w, "METHOD:PUBLISH")

	for _, ev := range events {
		start, ok := model.ParseDateTime(ev.StartDateTime)
		if !ok {
			appLog.Error("skipping event with unparseable datetime in calendar export", nil,
				"title", ev.Title, "start_datetime", ev.StartDateTime)
			continue
		}
		end := start.Add(eventDuration)

		writeLine(w, "BEGIN:VEVENT")
		writeLine(w, "UID:event-"+uuid.NewString())
		writeLine(w, "DTSTART:"+formatCompactUTC(start))
		writeLine(w, "DTEND:"+formatCompactUTC(end))
		writeLine(w, "SUMMARY:"+Escape(ev.Title))
		writeLine(w, "DESCRIPTION:"+Escape(description(ev)))
		writeLine(w, "LOCATION:"+Escape(ev.PlaceName))
		if hasURL(ev) {
			writeLine(w, "URL:"+ev.URL)
		}
		writeLine(w, "END:VEVENT")
	}

	writeLine(w, "END:VCALENDAR")
}

// description synthesizes the DESCRIPTION field: place, type display
// name, price-or-free, and the event URL when one exists.
func description(ev model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evento cultural en %s. Tipo: %s. ", ev.PlaceName, model.TypeDisplayName(ev.Type))
	if ev.Price != nil && *ev.Price > 0 {
		fmt.Fprintf(&b, "Precio: $%s", formatPrice(*ev.Price))
	} else {
		b.WriteString("Gratis")
	}
	if hasURL(ev) {
		b.WriteString("\n\nMás información: " + ev.URL)
	}
	return b.String()
}

// hasURL reports whether the event carries a real URL rather than the
// placeholder anchor the loader fills in.
func hasURL(ev model.Event) bool {
	return ev.URL != "" && ev.URL != model.DefaultURL
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.2f", p)
}

// formatCompactUTC renders a wall-clock timestamp in the compact UTC
// form YYYYMMDDTHHMMSSZ. Wall-clock values are materialized in UTC by
// the parser, so no conversion happens here.
func formatCompactUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// Escape applies iCalendar TEXT escaping: backslash, semicolon and
// comma get a leading backslash, and literal newlines become the
// two-character sequence \n.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', ';', ',':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			// CR alone or as part of CRLF never survives into TEXT.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeLine emits one content line with the CRLF terminator iCalendar
// requires.
func writeLine(w io.Writer, line string) {
	io.WriteString(w, line+"\r\n")
}
