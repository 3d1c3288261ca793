package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"schedview/internal/config"
	"schedview/internal/ics"
	"schedview/internal/layout"
	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/report"
	"schedview/internal/scheduler"
)

// App is the running application as seen by the server. View runs fn with
// exclusive access to the scheduler; Refresh reloads every source.
type App interface {
	View(fn func(*scheduler.Scheduler) error) error
	Refresh(ctx context.Context) error
}

// Server provides HTTP APIs and page previews for a scheduler.
type Server struct {
	cfg     *config.Config
	app     App
	palette model.CategoryPalette
	mux     *http.ServeMux

	// Rendered pages, dropped whenever the scheduler repaints.
	previewMu    sync.Mutex
	previewGen   uint64
	previewCache map[int][]byte
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, app App) (*Server, error) {
	palette, err := cfg.CategoryPalette()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:          cfg,
		app:          app,
		palette:      palette,
		mux:          http.NewServeMux(),
		previewCache: make(map[int][]byte),
	}
	s.registerRoutes()
	return s, nil
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

// Invalidate drops cached previews. Hook it to the scheduler's repaint.
func (s *Server) Invalidate() {
	s.previewMu.Lock()
	s.previewGen++
	clear(s.previewCache)
	s.previewMu.Unlock()
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
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
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="schedview", charset="UTF-8"`)
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

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/schedules", s.handleSchedules)
	s.mux.HandleFunc("GET /api/hit", s.handleHit)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// schedulesResponse is the JSON response shape for /api/schedules.
type schedulesResponse struct {
	View        string        `json:"view"`
	Style       string        `json:"style"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Pages       int           `json:"pages"`
	Schedules   []scheduleDTO `json:"schedules"`
}

// scheduleDTO is a JSON-friendly view of a schedule.
type scheduleDTO struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Notes       string    `json:"notes,omitempty"`
	Category    string    `json:"category,omitempty"`
	Color       string    `json:"color"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Done        bool      `json:"done"`
	Complete    *float64  `json:"complete,omitempty"`
	Page        int       `json:"page,omitempty"`
}

func (s *Server) toDTO(sc *model.Schedule, pages map[uuid.UUID]int) scheduleDTO {
	sc = sc.Root()
	return scheduleDTO{
		ID:          sc.ID.String(),
		Description: sc.Description,
		Notes:       sc.Notes,
		Category:    sc.Category,
		Color:       model.HexColor(sc.ColorFor(s.palette)),
		Start:       sc.Start,
		End:         sc.End,
		Done:        sc.Done,
		Complete:    sc.Complete,
		Page:        pages[sc.ID],
	}
}

// handleSchedules lists the schedules inside the displayed period with the
// page each one landed on in the current frame.
func (s *Server) handleSchedules(w http.ResponseWriter, _ *http.Request) {
	var resp schedulesResponse
	err := s.app.View(func(sc *scheduler.Scheduler) error {
		resp.View = sc.ViewType().String()
		resp.Style = sc.Style().String()
		resp.PeriodStart, resp.PeriodEnd = sc.Period()
		resp.Pages = sc.PageCount()

		var pages map[uuid.UUID]int
		if f := sc.Frame(); f != nil {
			pages = f.Pages
		}
		resp.Schedules = []scheduleDTO{}
		for _, item := range sc.Schedules() {
			if sc.Overlaps(item) {
				resp.Schedules = append(resp.Schedules, s.toDTO(item, pages))
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// hitResponse is the JSON response shape for /api/hit.
type hitResponse struct {
	Time     time.Time    `json:"time"`
	Schedule *scheduleDTO `json:"schedule,omitempty"`
}

// handleHit resolves a point on the current frame.
//
// GET /api/hit?x=120&y=300
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y are required numbers")
		return
	}

	var resp hitResponse
	var found bool
	_ = s.app.View(func(sc *scheduler.Scheduler) error {
		hit := sc.Find(layout.Point{X: x, Y: y})
		if hit.Empty() {
			return nil
		}
		found = true
		resp.Time = hit.Time
		if hit.IsSchedule() {
			dto := s.toDTO(hit.Schedule, nil)
			resp.Schedule = &dto
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, "nothing at point")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh reloads all sources synchronously.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Refresh(r.Context()); err != nil {
		appLog.Error("refresh via API failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// handlePreview renders one page of the current view at the configured
// surface size.
//
// GET /preview.png?page=2
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page := parseIntDefault(r.URL.Query().Get("page"), 1)

	s.previewMu.Lock()
	cached, ok := s.previewCache[page]
	s.previewMu.Unlock()
	if ok {
		writePNG(w, cached)
		return
	}

	var (
		buf bytes.Buffer
		gen uint64
	)
	err := s.app.View(func(sc *scheduler.Scheduler) error {
		s.previewMu.Lock()
		gen = s.previewGen
		s.previewMu.Unlock()

		p, err := report.New(sc, s.cfg.SurfaceSize())
		if err != nil {
			return err
		}
		return p.WritePNG(&buf, page, s.palette, s.cfg.Surface.Mono)
	})
	switch {
	case errors.Is(err, report.ErrNoSuchPage):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		appLog.Error("preview render failed", err, "page", page)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	s.previewMu.Lock()
	if gen == s.previewGen {
		s.previewCache[page] = buf.Bytes()
	}
	s.previewMu.Unlock()

	writePNG(w, buf.Bytes())
}

// handleExport serves every schedule as an ICS calendar.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	err := s.app.View(func(sc *scheduler.Scheduler) error {
		return ics.Export(&buf, sc.Schedules())
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writePNG(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
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
