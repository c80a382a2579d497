// Package web exposes the catalog, filter and export pipeline over a
// small local HTTP API. The server owns no mutable catalog state: the
// event list is loaded once at startup and every response is a pure
// function of that list, the request and the injected stores.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventcal/internal/booklet"
	"eventcal/internal/config"
	"eventcal/internal/filter"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/report"
	"eventcal/internal/selection"
	"eventcal/internal/template"
)

// Server provides the HTTP API over an immutable event list and the
// injected stores.
type Server struct {
	cfg       *config.Config
	events    []model.Event
	byKey     map[string]model.Event
	selection *selection.Store
	reports   *report.Log
	templates *template.Registry
	booklets  *booklet.Generator
	mux       *http.ServeMux
}

// NewServer constructs a Server over the loaded catalog. The event
// slice is not copied; callers must not mutate it afterwards.
func NewServer(cfg *config.Config, events []model.Event, sel *selection.Store, reports *report.Log, templates *template.Registry, booklets *booklet.Generator) *Server {
	byKey := make(map[string]model.Event, len(events))
	for _, ev := range events {
		byKey[ev.Key()] = ev
	}
	s := &Server{
		cfg:       cfg,
		events:    events,
		byKey:     byKey,
		selection: sel,
		reports:   reports,
		templates: templates,
		booklets:  booklets,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="EventCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// shutdownTimeout bounds the graceful drain of in-flight requests
// once the context is cancelled.
const shutdownTimeout = 5 * time.Second

// StartServer runs an HTTP server bound to cfg.Listen until ctx is
// cancelled, then drains in-flight requests and returns.
func StartServer(ctx context.Context, s *Server) error {
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)

	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("graceful shutdown failed, closing", err)
			return srv.Close()
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/facets", s.handleFacets)
	s.mux.HandleFunc("POST /api/selection/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/selection", s.handleSelection)
	s.mux.HandleFunc("PUT /api/edits/{key}", s.handleSaveEdit)
	s.mux.HandleFunc("GET /api/edits/{key}", s.handleGetEdit)
	s.mux.HandleFunc("POST /api/reports", s.handleSubmitReport)
	s.mux.HandleFunc("GET /api/export/calendar.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /api/export/calendar.pdf", s.handleExportPDF)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is the JSON view of one event. Pointer fields keep "absent"
// distinguishable from zero in the payload.
type eventDTO struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	StartDateTime string   `json:"start_datetime"`
	Price         *float64 `json:"price"`
	Type          string   `json:"type"`
	TypeDisplay   string   `json:"type_display"`
	URL           string   `json:"url"`
	PlaceName     string   `json:"placeName"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	Icon          string   `json:"icon"`
	Selected      bool     `json:"selected"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events   []eventDTO   `json:"events"`
	Total    int          `json:"total"`
	Filtered int          `json:"filtered"`
	Stats    filter.Stats `json:"stats"`
}

// handleEvents applies the query's filter criteria to the loaded
// catalog and returns the surviving events in display order, plus the
// rejection breakdown for the statistics panel.
//
// GET /api/events?start=&end=&places=&types=&min_price=&max_price=&q=&lat=&lng=&radius_km=
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filtered, stats := filter.ApplyWithStats(s.events, c)

	dtos := make([]eventDTO, 0, len(filtered))
	for _, ev := range filtered {
		key := ev.Key()
		selected, err := s.selection.IsSelected(key)
		if err != nil {
			appLog.Error("selection lookup failed", err, "key", key)
			writeError(w, http.StatusInternalServerError, "selection store unavailable")
			return
		}
		dtos = append(dtos, toDTO(ev, selected))
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:   dtos,
		Total:    len(s.events),
		Filtered: len(filtered),
		Stats:    stats,
	})
}

// criteriaFromQuery builds filter criteria from the request query.
// Numeric parameters must parse when present; list parameters are
// comma-separated.
func criteriaFromQuery(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()
	c := filter.Criteria{
		StartDate: q.Get("start"),
		EndDate:   q.Get("end"),
		Places:    splitList(q.Get("places")),
		Types:     splitList(q.Get("types")),
		Search:    q.Get("q"),
	}

	var err error
	if c.MinPrice, err = parseFloatParam(q.Get("min_price"), "min_price"); err != nil {
		return c, err
	}
	if c.MaxPrice, err = parseFloatParam(q.Get("max_price"), "max_price"); err != nil {
		return c, err
	}
	if c.UserLat, err = parseFloatParam(q.Get("lat"), "lat"); err != nil {
		return c, err
	}
	if c.UserLng, err = parseFloatParam(q.Get("lng"), "lng"); err != nil {
		return c, err
	}
	if radius := q.Get("radius_km"); radius != "" {
		v, err := strconv.ParseFloat(radius, 64)
		if err != nil {
			return c, fmt.Errorf("invalid radius_km: %q", radius)
		}
		c.RadiusKm = v
		c.DistanceEnabled = c.UserLat != nil && c.UserLng != nil
	}
	return c, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloatParam(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, s)
	}
	return &v, nil
}

// facetsResponse lists the distinct filterable values in the catalog.
type facetsResponse struct {
	Places []string    `json:"places"`
	Types  []facetType `json:"types"`
}

type facetType struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// handleFacets returns the distinct place names and event types, both
// sorted, with display labels for the types.
func (s *Server) handleFacets(w http.ResponseWriter, _ *http.Request) {
	placeSet := make(map[string]struct{})
	typeSet := make(map[string]struct{})
	for _, ev := range s.events {
		placeSet[ev.PlaceName] = struct{}{}
		typeSet[ev.Type] = struct{}{}
	}

	places := make([]string, 0, len(placeSet))
	for p := range placeSet {
		places = append(places, p)
	}
	sort.Strings(places)

	typeValues := make([]string, 0, len(typeSet))
	for t := range typeSet {
		typeValues = append(typeValues, t)
	}
	sort.Strings(typeValues)
	types := make([]facetType, 0, len(typeValues))
	for _, t := range typeValues {
		types = append(types, facetType{Value: t, Display: model.TypeDisplayName(t)})
	}

	writeJSON(w, http.StatusOK, facetsResponse{Places: places, Types: types})
}

// handleToggle flips one event's membership in the selection.
//
// POST /api/selection/toggle {"key": "<identity key>"}
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if _, ok := s.byKey[req.Key]; !ok {
		writeError(w, http.StatusNotFound, "unknown event key")
		return
	}

	selected, err := s.selection.Toggle(req.Key)
	if err != nil {
		appLog.Error("selection toggle failed", err, "key", req.Key)
		writeError(w, http.StatusInternalServerError, "selection store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": req.Key, "selected": selected})
}

// handleSelection returns the export list: selected events in catalog
// order with edits merged in. Stale keys are skipped, never errors.
func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	list, err := s.selection.ExportList(s.events)
	if err != nil {
		appLog.Error("export list failed", err)
		writeError(w, http.StatusInternalServerError, "selection store unavailable")
		return
	}
	dtos := make([]eventDTO, 0, len(list))
	for _, ev := range list {
		dtos = append(dtos, toDTO(ev, true))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": dtos, "count": len(dtos)})
}

// editRequest is the PUT /api/edits/{key} payload. Date and Time are
// accepted as separate form-style parts and recomposed into the
// canonical start_datetime; either both or neither must be present.
type editRequest struct {
	Title     *string  `json:"title,omitempty"`
	Date      *string  `json:"date,omitempty"`
	Time      *string  `json:"time,omitempty"`
	PlaceName *string  `json:"placeName,omitempty"`
	Type      *string  `json:"type,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	URL       *string  `json:"url,omitempty"`
}

// handleSaveEdit stores a partial override for an event. The event must
// exist in the loaded catalog; the edit only takes effect in export
// lists.
func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := s.byKey[key]; !ok {
		writeError(w, http.StatusNotFound, "unknown event key")
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid edit payload")
		return
	}

	edit := model.Edit{
		Title:     req.Title,
		PlaceName: req.PlaceName,
		Type:      req.Type,
		Price:     req.Price,
		URL:       req.URL,
	}

	if (req.Date == nil) != (req.Time == nil) {
		writeError(w, http.StatusBadRequest, "date and time must be edited together")
		return
	}
	if req.Date != nil {
		recomposed := *req.Date + "T" + *req.Time + ":00"
		if _, ok := model.ParseDateTime(recomposed); !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid datetime: %q", recomposed))
			return
		}
		edit.StartDateTime = &recomposed
	}

	if err := s.selection.SaveEdit(key, edit); err != nil {
		appLog.Error("edit save failed", err, "key", key)
		writeError(w, http.StatusInternalServerError, "edit store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, edit)
}

// handleGetEdit returns the stored edit for an event, or an empty
// object when none exists.
func (s *Server) handleGetEdit(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := s.byKey[key]; !ok {
		writeError(w, http.StatusNotFound, "unknown event key")
		return
	}
	edit, err := s.selection.Edit(key)
	if err != nil {
		appLog.Error("edit lookup failed", err, "key", key)
		writeError(w, http.StatusInternalServerError, "edit store unavailable")
		return
	}
	if edit == nil {
		writeJSON(w, http.StatusOK, model.Edit{})
		return
	}
	writeJSON(w, http.StatusOK, edit)
}

// reportRequest is the POST /api/reports payload.
type reportRequest struct {
	Key         string `json:"key"`
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	UserEmail   string `json:"userEmail,omitempty"`
}

// handleSubmitReport validates and appends an error report about one
// catalog event. Validation failures return 422 with no state change.
func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid report payload")
		return
	}
	ev, ok := s.byKey[req.Key]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown event key")
		return
	}

	saved, err := s.reports.Submit(ev, report.Report{
		ErrorType:   req.ErrorType,
		Description: req.Description,
		UserEmail:   req.UserEmail,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleExportICS streams the selection as an iCalendar attachment.
func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	list, err := s.selection.ExportList(s.events)
	if err != nil {
		appLog.Error("ics export: export list failed", err)
		writeError(w, http.StatusInternalServerError, "selection store unavailable")
		return
	}

	if len(list) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no events selected")
		return
	}

	body := ics.Generate(list)
	w.Header().Set("Content-Type", ics.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ics.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleExportPDF generates the booklet for the current selection. The
// PDF is fully built before the first response byte so a generation
// failure never leaks a partial document.
//
// GET /api/export/calendar.pdf?template=<name>
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	list, err := s.selection.ExportList(s.events)
	if err != nil {
		appLog.Error("pdf export: export list failed", err)
		writeError(w, http.StatusInternalServerError, "selection store unavailable")
		return
	}

	if len(list) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no events selected")
		return
	}

	tpl := s.templates.Get(r.URL.Query().Get("template"))
	pdf, err := s.booklets.Generate(r.Context(), list, tpl)
	if err != nil {
		appLog.Error("pdf export: generation failed", err, "template", tpl.Name)
		writeError(w, http.StatusInternalServerError, "failed to generate booklet")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", booklet.Filename(time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func toDTO(ev model.Event, selected bool) eventDTO {
	return eventDTO{
		Key:           ev.Key(),
		Title:         ev.Title,
		StartDateTime: ev.StartDateTime,
		Price:         ev.Price,
		Type:          ev.Type,
		TypeDisplay:   model.TypeDisplayName(ev.Type),
		URL:           ev.URL,
		PlaceName:     ev.PlaceName,
		Lat:           ev.Lat,
		Lng:           ev.Lng,
		Icon:          ev.Icon,
		Selected:      selected,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
