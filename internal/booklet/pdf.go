package booklet

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"github.com/go-pdf/fpdf"

	"eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/template"
)

// Renderer turns an HTML document into a PNG image. The production
// implementation drives headless Chromium; tests substitute a stub so
// the booklet logic runs without a browser.
type Renderer interface {
	RenderPNG(ctx context.Context, html string) ([]byte, error)
}

// Page geometry. A4 portrait with 15 mm margins on every side.
const (
	pageMarginMM = 15
	a4WidthMM    = 210
	a4HeightMM   = 297
)

// Generator assembles the printable booklet: a title page with the
// full event list, then one rasterized month grid per page.
type Generator struct {
	renderer Renderer
}

// NewGenerator returns a Generator that rasterizes month grids through
// the given renderer.
func NewGenerator(r Renderer) *Generator {
	return &Generator{renderer: r}
}

// Filename returns the download filename for a booklet generated at
// the given time.
func Filename(now time.Time) string {
	return fmt.Sprintf("calendario_eventos_%s.pdf", now.Format("2006-01-02"))
}

// Generate builds the booklet PDF for the given events using the
// template's styles for the month grids. Any grid that fails to render
// aborts the whole export; a partial booklet is never returned.
func (g *Generator) Generate(ctx context.Context, events []model.Event, tpl template.Template) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	pdf.SetAutoPageBreak(true, pageMarginMM)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	g.titlePage(pdf, tr, events)

	grouped, keys := GroupByMonth(events)
	for _, key := range keys {
		var year int
		var month time.Month
		fmt.Sscanf(key, "%d-%d", &year, (*int)(&month))

		html := MonthGridHTML(year, month, grouped[key], tpl)
		png, err := g.renderer.RenderPNG(ctx, html)
		if err != nil {
			return nil, fmt.Errorf("render month %s: %w", key, err)
		}
		if err := g.monthPage(pdf, tr, year, month, png); err != nil {
			return nil, fmt.Errorf("embed month %s: %w", key, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	log.Debug("booklet generated", "events", len(events), "months", len(keys), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// titlePage writes the cover: title, generation date, event count and
// the wrapped event list, page-breaking as needed.
func (g *Generator) titlePage(pdf *fpdf.Fpdf, tr func(string) string, events []model.Event) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, tr("Mi Calendario de Eventos"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Generado el %s", time.Now().Format("2006-01-02"))), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Total de eventos: %d", len(events))), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr("Lista de Eventos:"), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "", 10)
	contentWidth := a4WidthMM - 2*pageMarginMM
	for _, ev := range events {
		line := fmt.Sprintf("%s - %s (%s)", displayDate(ev), ev.Title, ev.PlaceName)
		// SplitText expects UTF-8 input; translating to cp1252 first
		// would feed it bytes outside the core-font width table.
		for _, part := range pdf.SplitText(line, float64(contentWidth)) {
			pdf.CellFormat(0, 5.5, tr(part), "", 1, "L", false, 0, "")
		}
		pdf.Ln(1)
	}
}

// monthPage embeds one rendered month grid on its own page, scaled to
// the content width and shrunk further if it would overflow the
// content height. Images are never scaled up.
func (g *Generator) monthPage(pdf *fpdf.Fpdf, tr func(string) string, year int, month time.Month, png []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("decode png: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("decode png: empty image")
	}

	pdf.AddPage()

	contentW := float64(a4WidthMM - 2*pageMarginMM)
	contentH := float64(a4HeightMM - 2*pageMarginMM)

	w := contentW
	h := w * float64(cfg.Height) / float64(cfg.Width)
	if h > contentH {
		h = contentH
		w = h * float64(cfg.Width) / float64(cfg.Height)
	}

	name := fmt.Sprintf("month-%04d-%02d", year, int(month))
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	x := pageMarginMM + (contentW-w)/2
	pdf.ImageOptions(name, x, pageMarginMM, w, h, false, opts, 0, "")
	if pdf.Err() {
		return pdf.Error()
	}
	return nil
}

// displayDate is the date part shown in the cover list. Unparseable
// datetimes fall back to the raw string.
func displayDate(ev model.Event) string {
	if start, ok := model.ParseDateTime(ev.StartDateTime); ok {
		return start.Format("2006-01-02 15:04")
	}
	return ev.StartDateTime
}
