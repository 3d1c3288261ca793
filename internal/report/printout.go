// Package report prints a scheduler view page by page onto a fixed surface.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"schedview/internal/drawer"
	"schedview/internal/layout"
	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/timeutil"
)

var (
	ErrNoSuchPage   = errors.New("report: no such page")
	ErrEmptySurface = errors.New("report: empty surface")
)

// Source is the read side of a scheduler.
type Source interface {
	Date() time.Time
	ViewType() layout.ViewType
	Style() layout.Style
	WeekStart() timeutil.WeekStart
	PeriodCount() int
	PeriodWidth() float64
	ShowWorkHour() bool
	WorkingHours() layout.WorkHours
	Strategy() layout.Strategy
	Schedules() []*model.Schedule
}

// Printout is a snapshot of a view split into pages for one surface size.
type Printout struct {
	opts      layout.Options
	date      time.Time
	schedules []*model.Schedule
	surface   layout.Size

	pages     map[uuid.UUID]int
	pageCount int
}

// New snapshots src and runs a screen pass on surface to assign every
// schedule to a page.
func New(src Source, surface layout.Size) (*Printout, error) {
	if surface.W <= 0 || surface.H <= 0 {
		return nil, ErrEmptySurface
	}

	p := &Printout{
		opts: layout.Options{
			View:              src.ViewType(),
			Style:             src.Style(),
			WeekStart:         src.WeekStart(),
			PeriodCount:       src.PeriodCount(),
			PeriodWidth:       src.PeriodWidth(),
			ShowOnlyWorkHours: src.ShowWorkHour(),
			WorkHours:         src.WorkingHours(),
			Strategy:          src.Strategy(),
			DrawHeaders:       true,
		},
		date:      src.Date(),
		schedules: src.Schedules(),
		surface:   surface,
	}

	d := drawer.NewBase(model.DefaultPalette())
	f, err := layout.NewPainter(p.opts).Paint(d, p.schedules, p.date, p.bounds())
	if err != nil {
		return nil, fmt.Errorf("report: paginate: %w", err)
	}
	p.pages = f.Pages
	p.pageCount = f.PageCount
	f.Release(d)

	appLog.Info("report: paginated",
		"view", p.opts.View,
		"style", p.opts.Style,
		"schedules", len(p.schedules),
		"pages", p.pageCount,
	)
	return p, nil
}

func (p *Printout) bounds() layout.Rect {
	return layout.Rect{W: p.surface.W, H: p.surface.H}
}

func (p *Printout) Pages() int {
	return p.pageCount
}

func (p *Printout) HasPage(n int) bool {
	return n >= 1 && n <= p.pageCount
}

// PageInfo returns the printable page range: first and last page, and the
// selected range, which is every page.
func (p *Printout) PageInfo() (minPage, maxPage, from, to int) {
	return 1, p.pageCount, 1, p.pageCount
}

// PageOf returns the page an original schedule was assigned to.
func (p *Printout) PageOf(s *model.Schedule) (int, bool) {
	if s == nil {
		return 0, false
	}
	n, ok := p.pages[s.Root().ID]
	return n, ok
}

// PrintPage paints page n with d. The caller releases the returned frame
// with Release(d) once the output is consumed.
func (p *Printout) PrintPage(n int, d layout.Drawer) (*layout.Frame, error) {
	if !p.HasPage(n) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoSuchPage, n, p.pageCount)
	}
	if c, ok := d.(interface{ Reset(layout.Size) }); ok {
		c.Reset(p.surface)
	}

	opts := p.opts
	opts.PageNumber = n
	opts.Pages = p.pages
	f, err := layout.NewPainter(opts).Paint(d, p.schedules, p.date, p.bounds())
	if err != nil {
		return nil, fmt.Errorf("report: page %d: %w", n, err)
	}
	return f, nil
}

// WritePNG prints page n onto a fresh raster and encodes it to w. Mono
// output is reduced to the e-paper ink palette.
func (p *Printout) WritePNG(w io.Writer, n int, palette model.CategoryPalette, mono bool) error {
	r := drawer.NewRaster(int(p.surface.W), int(p.surface.H), palette)
	r.Mono = mono

	f, err := p.PrintPage(n, r)
	if err != nil {
		return err
	}
	defer f.Release(r)

	if err := r.EncodePNG(w); err != nil {
		return fmt.Errorf("report: encode page %d: %w", n, err)
	}
	return nil
}

// Planes prints page n and packs it into black and red 1bpp planes for a
// tri-color panel.
func (p *Printout) Planes(n int, palette model.CategoryPalette) (black, red []byte, err error) {
	r := drawer.NewRaster(int(p.surface.W), int(p.surface.H), palette)

	f, err := p.PrintPage(n, r)
	if err != nil {
		return nil, nil, err
	}
	defer f.Release(r)

	black, red = drawer.PackPlanes(drawer.Quantize(r.Image()))
	return black, red, nil
}
