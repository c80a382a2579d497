package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/booklet"
	"eventcal/internal/config"
	"eventcal/internal/model"
	"eventcal/internal/report"
	"eventcal/internal/selection"
	"eventcal/internal/storage"
	"eventcal/internal/template"
)

// okRenderer returns a minimal PNG without touching a browser.
type okRenderer struct{ err error }

func (r okRenderer) RenderPNG(context.Context, string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fp(v float64) *float64 { return &v }

func catalogFixture() []model.Event {
	return []model.Event{
		{Title: "Jazz", StartDateTime: "2024-03-10T21:30:00", PlaceName: "Teatro Colón", Type: "music", Price: fp(1500), URL: "https://colon.ar/jazz", Lat: fp(-34.601), Lng: fp(-58.383), Icon: "data/icons/colon.jpg"},
		{Title: "Hamlet", StartDateTime: "2024-03-11T20:00:00", PlaceName: "Teatro San Martín", Type: "theater", Price: fp(0), URL: "#", Icon: model.DefaultIconPath},
		{Title: "Feria del libro", StartDateTime: "2024-04-25T11:00:00", PlaceName: "La Rural", Type: "literature", Icon: model.DefaultIconPath},
	}
}

func newTestServer(t *testing.T, renderErr error) *Server {
	t.Helper()
	kv, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	cfg := config.DefaultConfig()
	return NewServer(
		cfg,
		catalogFixture(),
		selection.New(kv),
		report.NewLog(kv),
		template.NewRegistry(),
		booklet.NewGenerator(okRenderer{err: renderErr}),
	)
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(data))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestEventsUnfiltered(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[eventsResponse](t, w)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.Filtered)
	require.Len(t, resp.Events, 3)
	// Display order: date ascending.
	assert.Equal(t, "Jazz", resp.Events[0].Title)
	assert.Equal(t, "Música", resp.Events[0].TypeDisplay)
}

func TestEventsFilteredWithStats(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/events?types=music,theater&end=2024-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[eventsResponse](t, w)
	assert.Equal(t, 2, resp.Filtered)
	assert.Equal(t, 1, resp.Stats.Date)
}

func TestEventsBadParams(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/events?min_price=mucho", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFacets(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/facets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[facetsResponse](t, w)
	assert.Equal(t, []string{"La Rural", "Teatro Colón", "Teatro San Martín"}, resp.Places)
	require.Len(t, resp.Types, 3)
	assert.Equal(t, facetType{Value: "literature", Display: "Literatura"}, resp.Types[0])
}

func TestSelectionToggleAndList(t *testing.T) {
	s := newTestServer(t, nil)
	key := catalogFixture()[0].Key()

	w := do(t, s, http.MethodPost, "/api/selection/toggle", map[string]string{"key": key})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, true, resp["selected"])

	w = do(t, s, http.MethodGet, "/api/selection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Events []eventDTO `json:"events"`
		Count  int        `json:"count"`
	}](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Jazz", list.Events[0].Title)

	// Unknown keys are rejected before touching the store.
	w = do(t, s, http.MethodPost, "/api/selection/toggle", map[string]string{"key": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/selection/toggle", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	key := catalogFixture()[0].Key()
	target := "/api/edits/" + url.PathEscape(key)

	w := do(t, s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "{}", w.Body.String())

	w = do(t, s, http.MethodPut, target, map[string]any{
		"title": "Jazz (confirmado)",
		"date":  "2024-03-12",
		"time":  "22:00",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	edit := decode[model.Edit](t, w)
	require.NotNil(t, edit.Title)
	assert.Equal(t, "Jazz (confirmado)", *edit.Title)
	require.NotNil(t, edit.StartDateTime)
	assert.Equal(t, "2024-03-12T22:00:00", *edit.StartDateTime)
}

func TestEditValidation(t *testing.T) {
	s := newTestServer(t, nil)
	target := "/api/edits/" + url.PathEscape(catalogFixture()[0].Key())

	// Date without time.
	w := do(t, s, http.MethodPut, target, map[string]any{"date": "2024-03-12"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unparseable recomposed datetime.
	w = do(t, s, http.MethodPut, target, map[string]any{"date": "2024-13-40", "time": "99:99"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPut, "/api/edits/desconocido", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportSubmission(t *testing.T) {
	s := newTestServer(t, nil)
	key := catalogFixture()[1].Key()

	w := do(t, s, http.MethodPost, "/api/reports", map[string]string{
		"key":         key,
		"errorType":   "wrong_place",
		"description": "El teatro está en refacción",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	saved := decode[report.Report](t, w)
	assert.Equal(t, "Hamlet", saved.EventTitle)
	assert.Equal(t, report.StatusPending, saved.Status)

	// Missing description: 422, nothing stored.
	w = do(t, s, http.MethodPost, "/api/reports", map[string]string{
		"key":       key,
		"errorType": "wrong_place",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/api/reports", map[string]string{
		"key":         "nope",
		"errorType":   "wrong_place",
		"description": "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportICS(t *testing.T) {
	s := newTestServer(t, nil)
	key := catalogFixture()[0].Key()
	do(t, s, http.MethodPost, "/api/selection/toggle", map[string]string{"key": key})

	w := do(t, s, http.MethodGet, "/api/export/calendar.ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "eventos-culturales.ics")
	assert.Contains(t, w.Body.String(), "SUMMARY:Jazz")
	assert.Equal(t, 1, strings.Count(w.Body.String(), "BEGIN:VEVENT"))
}

func TestExportPDF(t *testing.T) {
	s := newTestServer(t, nil)
	key := catalogFixture()[0].Key()
	do(t, s, http.MethodPost, "/api/selection/toggle", map[string]string{"key": key})

	w := do(t, s, http.MethodGet, "/api/export/calendar.pdf?template=modern", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "calendario_eventos_")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestExportPDFFailureHasNoPartialBody(t *testing.T) {
	s := newTestServer(t, errors.New("no browser"))
	key := catalogFixture()[0].Key()
	do(t, s, http.MethodPost, "/api/selection/toggle", map[string]string{"key": key})

	w := do(t, s, http.MethodGet, "/api/export/calendar.pdf", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "%PDF-")
}

func TestExportEmptySelectionRejected(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/api/export/calendar.ics", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotContains(t, w.Body.String(), "BEGIN:VCALENDAR")

	w = do(t, s, http.MethodGet, "/api/export/calendar.pdf", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotContains(t, w.Body.String(), "%PDF-")
}

func TestStartServerStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, nil)
	s.cfg.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, s) }()

	// Let the listener come up, then cancel; StartServer must return.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server still running after context cancellation")
	}
}

func TestBasicAuth(t *testing.T) {
	kv, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secreto"}
	s := NewServer(cfg, catalogFixture(), selection.New(kv), report.NewLog(kv), template.NewRegistry(), booklet.NewGenerator(okRenderer{}))

	// /health stays open.
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	r.SetBasicAuth("admin", "secreto")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
