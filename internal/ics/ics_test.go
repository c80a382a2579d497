package ics

import (
	"strings"
	"testing"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestEscape(t *testing.T) {
	assert.Equal(t, `Jazz\; Night`, Escape("Jazz; Night"))
	assert.Equal(t, `a\,b\\c`, Escape(`a,b\c`))
	assert.Equal(t, `line1\nline2`, Escape("line1\nline2"))
	assert.Equal(t, `line1\nline2`, Escape("line1\r\nline2"))
	assert.Equal(t, "sin cambios", Escape("sin cambios"))
}

func TestGenerateStructure(t *testing.T) {
	events := []model.Event{
		{
			Title:         "Jazz; Night",
			StartDateTime: "2024-03-10T21:30:00",
			PlaceName:     "Teatro Colón",
			Type:          "music",
			Price:         fp(1500),
			URL:           "https://colon.ar/jazz",
		},
	}
	out := string(Generate(events))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "PRODID:-//Cultural Events BA//ES\r\n")
	assert.Contains(t, out, "METHOD:PUBLISH\r\n")
	assert.Contains(t, out, "DTSTART:20240310T213000Z\r\n")
	assert.Contains(t, out, "DTEND:20240310T233000Z\r\n")
	assert.Contains(t, out, `SUMMARY:Jazz\; Night`)
	assert.Contains(t, out, "UID:event-")
	assert.Contains(t, out, "URL:https://colon.ar/jazz\r\n")
	assert.Contains(t, out, "Precio: $1500")
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
}

func TestGenerateFreeAndPlaceholderURL(t *testing.T) {
	events := []model.Event{
		{Title: "Gratis al aire libre", StartDateTime: "2024-03-10T18:00:00", PlaceName: "Parque", Type: "music", Price: fp(0), URL: "#"},
	}
	out := string(Generate(events))

	assert.Contains(t, out, "Gratis")
	assert.NotContains(t, out, "Precio:")
	// The placeholder anchor never becomes a URL property or a link line.
	assert.NotContains(t, out, "URL:#")
	assert.NotContains(t, out, "Más información")
}

func TestGenerateSkipsUnparseableDates(t *testing.T) {
	events := []model.Event{
		{Title: "ok", StartDateTime: "2024-03-10T20:00:00", PlaceName: "x"},
		{Title: "roto", StartDateTime: "fecha a confirmar", PlaceName: "x"},
	}
	out := string(Generate(events))
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.NotContains(t, out, "roto")
}

// TestGenerateParsesBack feeds the output through a full iCalendar
// implementation to catch structural mistakes the string assertions
// would miss.
func TestGenerateParsesBack(t *testing.T) {
	events := []model.Event{
		{Title: "Jazz con amigos", StartDateTime: "2024-03-10T21:30:00", PlaceName: "Teatro Colón", Type: "music", Price: fp(1500.5), URL: "https://colon.ar/jazz"},
		{Title: "Feria del libro", StartDateTime: "2024-04-01", PlaceName: "La Rural", Type: "literature"},
	}

	cal, err := ical.ParseCalendar(strings.NewReader(string(Generate(events))))
	require.NoError(t, err)

	parsed := cal.Events()
	require.Len(t, parsed, 2)

	first := parsed[0]
	summary := first.GetProperty(ical.ComponentPropertySummary)
	require.NotNil(t, summary)
	assert.Equal(t, "Jazz con amigos", summary.Value)

	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.Equal(t, 21, start.Hour())
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 2.0, end.Sub(start).Hours())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1500", formatPrice(1500))
	assert.Equal(t, "1500.50", formatPrice(1500.5))
}
