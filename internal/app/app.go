// Package app wires configuration, ICS sources, the scheduler and page
// rendering into one running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"schedview/internal/config"
	"schedview/internal/drawer"
	"schedview/internal/ics"
	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/report"
	"schedview/internal/scheduler"
)

// App owns the scheduler. All access goes through View so that cron
// refreshes and HTTP requests never interleave.
type App struct {
	cfg     *config.Config
	loc     *time.Location
	palette model.CategoryPalette
	fetcher *ics.Fetcher

	mu    sync.Mutex
	sched *scheduler.Scheduler
}

// New builds the scheduler described by cfg. Extra options are applied
// last and override the configured values.
func New(cfg *config.Config, extra ...scheduler.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()
	hours, _ := cfg.Hours()
	view, _ := cfg.ViewType()
	style, _ := cfg.LayoutStyle()
	strategy, _ := cfg.Strategy()
	palette, _ := cfg.CategoryPalette()

	d, err := drawer.New(cfg.Drawer, cfg.SurfaceSize(), palette)
	if err != nil {
		return nil, err
	}
	if r, ok := d.(*drawer.Raster); ok {
		r.Mono = cfg.Surface.Mono
	}

	now := func() time.Time { return time.Now().In(loc) }
	opts := []scheduler.Option{
		scheduler.WithClock(now),
		scheduler.WithDate(now()),
		scheduler.WithViewType(view),
		scheduler.WithStyle(style),
		scheduler.WithWeekStart(cfg.FirstWeekday()),
		scheduler.WithWorkingHours(hours),
		scheduler.WithShowWorkHour(cfg.ShowOnlyWorkHours),
		scheduler.WithPeriodCount(cfg.PeriodCount),
		scheduler.WithPeriodWidth(cfg.PeriodWidth),
		scheduler.WithStrategy(strategy),
		scheduler.WithDrawer(d),
		scheduler.WithSize(cfg.SurfaceSize()),
	}
	sched, err := scheduler.New(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		loc:     loc,
		palette: palette,
		fetcher: ics.NewFetcher(cfg.CacheDir),
		sched:   sched,
	}, nil
}

// View runs fn with exclusive access to the scheduler.
func (a *App) View(fn func(*scheduler.Scheduler) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.sched)
}

func (a *App) sources() []ics.Source {
	out := make([]ics.Source, 0, len(a.cfg.ICS))
	for _, c := range a.cfg.ICS {
		out = append(out, ics.Source{ID: c.ID, URL: c.URL, Category: c.Category})
	}
	return out
}

// Refresh fetches every source and replaces the scheduler's schedules with
// what was parsed. When no source produced anything the previous schedules
// are kept. Per-source failures are joined into the returned error.
func (a *App) Refresh(ctx context.Context) error {
	started := time.Now()
	sources := a.sources()

	results, errs := a.fetcher.FetchAll(ctx, sources)
	if len(results) == 0 && len(sources) > 0 {
		return fmt.Errorf("app: no source available: %w", errors.Join(errs...))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start, end := a.sched.Period()
	opts := ics.ParseOptions{Location: a.loc, RangeStart: start, RangeEnd: end}

	var list []*model.Schedule
	seen := make(map[uuid.UUID]bool)
	for _, res := range results {
		parsed, err := ics.Parse(res.Source, res.Body, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("app: source %s: %w", res.Source.ID, err))
			continue
		}
		for _, s := range parsed {
			// Overridden instances share the UID of their series.
			if seen[s.ID] {
				appLog.Debug("duplicate schedule dropped", "source", res.Source.ID, "id", s.ID)
				continue
			}
			seen[s.ID] = true
			list = append(list, s)
		}
	}

	if err := a.sched.Replace(list); err != nil {
		return fmt.Errorf("app: replace schedules: %w", err)
	}

	appLog.Info("refresh completed",
		"sources", len(sources),
		"fetched", len(results),
		"schedules", len(list),
		"pages", a.sched.PageCount(),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return errors.Join(errs...)
}

// SetDate moves the displayed period to the one containing t.
func (a *App) SetDate(t time.Time) error {
	return a.View(func(s *scheduler.Scheduler) error { return s.SetDate(t.In(a.loc)) })
}

// Render writes one PNG per page of the current view into dir, plus packed
// ink planes when configured, and returns the written paths. Files are
// replaced atomically; stale pages from a previous render with more pages
// are removed.
func (a *App) Render(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	err := a.View(func(s *scheduler.Scheduler) error {
		p, err := report.New(s, a.cfg.SurfaceSize())
		if err != nil {
			return err
		}
		for n := 1; n <= p.Pages(); n++ {
			path := filepath.Join(dir, pageName(n))
			if err := writeFile(path, func(w io.Writer) error {
				return p.WritePNG(w, n, a.palette, a.cfg.Surface.Mono)
			}); err != nil {
				return err
			}
			paths = append(paths, path)

			if a.cfg.Surface.Planes {
				planes, err := writePlanes(p, n, dir, a.palette)
				if err != nil {
					return err
				}
				paths = append(paths, planes...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stale, _ := filepath.Glob(filepath.Join(dir, "page-*"))
	for _, path := range stale {
		if !slices.Contains(paths, path) {
			_ = os.Remove(path)
		}
	}

	appLog.Info("render completed", "dir", dir, "files", len(paths))
	return paths, nil
}

// ExportICS writes every schedule to path as an ICS calendar.
func (a *App) ExportICS(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = a.View(func(s *scheduler.Scheduler) error {
		return ics.Export(f, s.Schedules())
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func pageName(n int) string {
	return fmt.Sprintf("page-%02d.png", n)
}

func writePlanes(p *report.Printout, n int, dir string, palette model.CategoryPalette) ([]string, error) {
	black, red, err := p.Planes(n, palette)
	if err != nil {
		return nil, err
	}
	var paths []string
	for suffix, plane := range map[string][]byte{"black": black, "red": red} {
		path := filepath.Join(dir, fmt.Sprintf("page-%02d.%s.bin", n, suffix))
		if err := writeFile(path, func(w io.Writer) error {
			_, err := w.Write(plane)
			return err
		}); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths, nil
}

// writeFile replaces path atomically with what fill writes.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".page-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
