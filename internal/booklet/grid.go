package booklet

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"eventcal/internal/model"
	"eventcal/internal/template"
)

// Spanish calendar vocabulary for the rendered grids.
var (
	monthNames = [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	dayHeaders = [...]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}
)

// gridPageWidth is the CSS pixel width of the rendered grid document.
// The capture viewport matches it; the PDF scales the image to the
// page's content width afterwards.
const gridPageWidth = 760

// chipFontBase is the base font size in px for event chips before the
// length-based shrink steps.
const chipFontBase = 8

var fontSizeRe = regexp.MustCompile(`font-size:\s*\d+px`)

// GroupByMonth buckets events by the (year, month) of their parsed
// start and returns the bucket keys in chronological order. Events
// whose datetime cannot be parsed have no month and are left out.
func GroupByMonth(events []model.Event) (map[string][]model.Event, []string) {
	grouped := make(map[string][]model.Event)
	for _, ev := range events {
		start, ok := model.ParseDateTime(ev.StartDateTime)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%04d-%02d", start.Year(), int(start.Month()))
		grouped[key] = append(grouped[key], ev)
	}
	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return grouped, keys
}

// MonthGridHTML renders one month as a complete HTML document: a
// Sunday-first seven-column table with one cell per day, day numbers
// and per-day event chips, styled entirely from the template's style
// strings. The document is what the capture renderer screenshots.
func MonthGridHTML(year int, month time.Month, events []model.Event, tpl template.Template) string {
	st := tpl.Styles

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := firstDay.AddDate(0, 1, -1).Day()
	startDayOfWeek := int(firstDay.Weekday()) // 0 = Sunday

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html><html><head><meta charset="utf-8"><style>body{margin:0;background:#ffffff;}</style></head><body><div style="width:%dpx;padding:8px;box-sizing:border-box;">`, gridPageWidth)
	fmt.Fprintf(&b, `<h2 style="%s">%s %d</h2>`, html.EscapeString(st.HeaderStyle), monthNames[int(month)-1], year)
	fmt.Fprintf(&b, `<table style="%s"><thead><tr>`, html.EscapeString(st.TableStyle))
	for _, day := range dayHeaders {
		fmt.Fprintf(&b, `<th style="%s">%s</th>`, html.EscapeString(st.ThStyle), day)
	}
	b.WriteString(`</tr></thead><tbody>`)

	day := 1
	weeks := (daysInMonth + startDayOfWeek + 6) / 7
	for week := 0; week < weeks; week++ {
		b.WriteString("<tr>")
		for dow := 0; dow < 7; dow++ {
			if (week == 0 && dow < startDayOfWeek) || day > daysInMonth {
				fmt.Fprintf(&b, `<td style="%s background-color: #f8f9fa;"></td>`, html.EscapeString(st.TdStyle))
				continue
			}
			fmt.Fprintf(&b, `<td style="%s"><div style="%s">%d</div>`,
				html.EscapeString(st.TdStyle), html.EscapeString(st.DayNumberStyle), day)
			for _, ev := range eventsOnDay(events, day) {
				b.WriteString(eventChip(ev, st.EventStyle))
			}
			b.WriteString("</td>")
			day++
		}
		b.WriteString("</tr>")
	}

	b.WriteString(`</tbody></table></div></body></html>`)
	return b.String()
}

// eventsOnDay returns the month's events starting on the given
// day-of-month, in input order.
func eventsOnDay(events []model.Event, day int) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if start, ok := model.ParseDateTime(ev.StartDateTime); ok && start.Day() == day {
			out = append(out, ev)
		}
	}
	return out
}

// eventChip renders one compact event chip: "HH:MM - title", wrapped
// to the grid budget, with the font size substituted into the
// template's event style.
func eventChip(ev model.Event, eventStyle string) string {
	start, _ := model.ParseDateTime(ev.StartDateTime)
	label := fmt.Sprintf("%s - %s", start.Format("15:04"), ev.Title)

	wrapped := FormatLabel(label, gridLabelBudget)
	size := FontSize(label, chipFontBase)
	style := fontSizeRe.ReplaceAllString(eventStyle, fmt.Sprintf("font-size: %dpx", size))

	body := strings.ReplaceAll(html.EscapeString(wrapped), "\n", "<br>")
	return fmt.Sprintf(`<div style="%s">%s</div>`, html.EscapeString(style), body)
}
