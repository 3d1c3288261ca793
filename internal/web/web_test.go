package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/config"
	"schedview/internal/layout"
	"schedview/internal/model"
	"schedview/internal/scheduler"
)

var day = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

type fakeApp struct {
	mu         sync.Mutex
	sched      *scheduler.Scheduler
	refreshes  int
	refreshErr error
}

func (a *fakeApp) View(fn func(*scheduler.Scheduler) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.sched)
}

func (a *fakeApp) Refresh(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshes++
	return a.refreshErr
}

func newServer(t *testing.T, mutate func(*config.Config)) (*Server, *fakeApp) {
	t.Helper()
	sched, err := scheduler.New(
		scheduler.WithClock(func() time.Time { return day }),
		scheduler.WithDate(day),
		scheduler.WithViewType(layout.ViewDaily),
		scheduler.WithSize(layout.Size{W: 400, H: 600}),
	)
	require.NoError(t, err)

	standup := model.NewSchedule(day.Add(9*time.Hour), day.Add(10*time.Hour))
	standup.Description = "Standup"
	standup.Category = "Work"
	later := model.NewSchedule(day.AddDate(0, 0, 3), day.AddDate(0, 0, 3).Add(time.Hour))
	later.Description = "Later"
	require.NoError(t, sched.AddAll([]*model.Schedule{standup, later}))

	cfg := config.DefaultConfig()
	cfg.Surface = config.SurfaceConfig{Width: 400, Height: 600}
	if mutate != nil {
		mutate(cfg)
	}

	app := &fakeApp{sched: sched}
	s, err := NewServer(cfg, app)
	require.NoError(t, err)
	return s, app
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t, nil)
	rec := do(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSchedulesListsDisplayedPeriod(t *testing.T) {
	s, _ := newServer(t, nil)
	rec := do(s, http.MethodGet, "/api/schedules")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schedulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "daily", resp.View)
	assert.Equal(t, "vertical", resp.Style)
	assert.Equal(t, day, resp.PeriodStart.UTC())
	require.Len(t, resp.Schedules, 1)
	assert.Equal(t, "Standup", resp.Schedules[0].Description)
	assert.Equal(t, 1, resp.Schedules[0].Page)
	assert.Equal(t, model.HexColor(model.DefaultPalette().Lookup("Work")), resp.Schedules[0].Color)
}

func TestHit(t *testing.T) {
	s, app := newServer(t, nil)

	var center layout.Point
	var id string
	require.NoError(t, app.View(func(sc *scheduler.Scheduler) error {
		f := sc.Frame()
		require.Len(t, f.Schedules, 1)
		b := f.Schedules[0].Bounds()
		center = layout.Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
		id = f.Schedules[0].Schedule.Root().ID.String()
		return nil
	}))

	rec := do(s, http.MethodGet, fmt.Sprintf("/api/hit?x=%g&y=%g", center.X, center.Y))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp hitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Schedule)
	assert.Equal(t, id, resp.Schedule.ID)

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/hit?x=-5&y=-5").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/hit?x=a").Code)
}

func TestPreviewCachesUntilInvalidated(t *testing.T) {
	s, _ := newServer(t, nil)

	rec := do(s, http.MethodGet, "/preview.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 600), img.Bounds())

	s.previewMu.Lock()
	assert.Len(t, s.previewCache, 1)
	s.previewMu.Unlock()

	again := do(s, http.MethodGet, "/preview.png?page=1")
	assert.Equal(t, rec.Body.Bytes(), again.Body.Bytes())

	s.Invalidate()
	s.previewMu.Lock()
	assert.Empty(t, s.previewCache)
	s.previewMu.Unlock()

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/preview.png?page=9").Code)
}

func TestRefresh(t *testing.T) {
	s, app := newServer(t, nil)

	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/refresh").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodGet, "/api/refresh").Code)

	app.refreshErr = errors.New("feed down")
	assert.Equal(t, http.StatusBadGateway, do(s, http.MethodPost, "/api/refresh").Code)
	assert.Equal(t, 2, app.refreshes)
}

func TestExport(t *testing.T) {
	s, _ := newServer(t, nil)
	rec := do(s, http.MethodGet, "/calendar.ics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Standup")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Later")
}

func TestBasicAuth(t *testing.T) {
	s, _ := newServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/schedules").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/schedules", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newServer(t, func(c *config.Config) { c.Listen = "127.0.0.1:0" })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, s) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
