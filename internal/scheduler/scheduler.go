// Package scheduler is the view-model behind a calendar view: it owns the
// schedule list and view state, repaints through the layout painter on every
// change, and answers hit tests against the last completed frame.
//
// A Scheduler is not safe for concurrent use; callers serialize access.
package scheduler

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"schedview/internal/drawer"
	"schedview/internal/layout"
	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/timeutil"
)

// View moves accepted by SetViewType besides the three view types.
const (
	ViewToday layout.ViewType = 4
	ViewPrev  layout.ViewType = 6
	ViewNext  layout.ViewType = 7
)

var (
	ErrInvalidViewType    = errors.New("scheduler: invalid view type")
	ErrInvalidStyle       = errors.New("scheduler: invalid style")
	ErrInvalidWeekStart   = errors.New("scheduler: invalid week start")
	ErrInvalidDate        = errors.New("scheduler: invalid date")
	ErrInvalidPeriodCount = errors.New("scheduler: period count must be at least 1")
	ErrInvalidPeriodWidth = errors.New("scheduler: period width below minimum")
	ErrInvalidStrategy    = errors.New("scheduler: invalid grouping strategy")
	ErrNilDrawer          = errors.New("scheduler: nil drawer")
	ErrNilSchedule        = errors.New("scheduler: nil schedule")
	ErrInvalidSchedule    = errors.New("scheduler: schedule starts after it ends")
	ErrDuplicateSchedule  = errors.New("scheduler: schedule already added")
	ErrScheduleNotFound   = errors.New("scheduler: schedule not found")
	ErrIndexOutOfRange    = errors.New("scheduler: index out of range")
	ErrNotResizable       = errors.New("scheduler: period width is not resizable")
)

// DefaultHighlight is the background of today's column.
var DefaultHighlight = color.NRGBA{R: 0xff, G: 0xf4, B: 0xcc, A: 0xff}

// Scheduler holds the view state and the schedules it lays out.
type Scheduler struct {
	date         time.Time
	view         layout.ViewType
	style        layout.Style
	weekStart    timeutil.WeekStart
	periodCount  int
	periodWidth  float64
	showWorkHour bool
	workHours    layout.WorkHours
	strategy     layout.Strategy
	resizable    bool
	drawHeaders  bool
	highlight    color.Color
	drawer       layout.Drawer
	size         layout.Size
	now          func() time.Time

	schedules []*model.Schedule
	cancels   map[*model.Schedule]func()

	hours []time.Duration

	frame       *layout.Frame
	frameDrawer layout.Drawer
	lastErr     error
	minSize     *layout.Size

	batchDepth int
	dirty      bool
	building   bool

	handlers handlers
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler) error

func WithDate(t time.Time) Option       { return func(s *Scheduler) error { return s.SetDate(t) } }
func WithDrawer(d layout.Drawer) Option { return func(s *Scheduler) error { return s.SetDrawer(d) } }
func WithSize(size layout.Size) Option  { return func(s *Scheduler) error { return s.SetSize(size) } }
func WithStyle(st layout.Style) Option  { return func(s *Scheduler) error { return s.SetStyle(st) } }

func WithViewType(v layout.ViewType) Option {
	return func(s *Scheduler) error { return s.SetViewType(v) }
}

func WithWeekStart(ws timeutil.WeekStart) Option {
	return func(s *Scheduler) error { return s.SetWeekStart(ws) }
}

func WithWorkingHours(w layout.WorkHours) Option {
	return func(s *Scheduler) error { return s.SetWorkingHours(w) }
}

func WithShowWorkHour(show bool) Option {
	return func(s *Scheduler) error { return s.SetShowWorkHour(show) }
}

func WithPeriodCount(n int) Option {
	return func(s *Scheduler) error { return s.SetPeriodCount(n) }
}

func WithPeriodWidth(w float64) Option {
	return func(s *Scheduler) error { return s.SetPeriodWidth(w) }
}

func WithStrategy(st layout.Strategy) Option {
	return func(s *Scheduler) error { return s.SetStrategy(st) }
}

// WithClock replaces time.Now for today highlighting and the Today move.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// New builds a scheduler showing today's week with default work hours and a
// geometry-only drawer, then applies opts. The first paint runs after all
// options are applied.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		view:         layout.ViewWeekly,
		style:        layout.StyleVertical,
		weekStart:    timeutil.WeekStartMonday,
		periodCount:  1,
		periodWidth:  layout.DaySizeMin.W,
		showWorkHour: true,
		workHours:    layout.DefaultWorkHours(),
		strategy:     layout.StrategyTransitive,
		drawHeaders:  true,
		highlight:    DefaultHighlight,
		drawer:       drawer.NewBase(model.DefaultPalette()),
		size:         layout.Size{W: 800, H: 600},
		now:          time.Now,
		cancels:      make(map[*model.Schedule]func()),
		building:     true,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	// The date follows the injected clock unless an option set it.
	if s.date.IsZero() {
		s.date = timeutil.CopyDate(s.now())
	}
	s.building = false
	s.hours = s.workHours.DisplayedHours(s.showWorkHour)

	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// refresh recomputes derived state and repaints, or defers the repaint to
// the end of the open batch.
func (s *Scheduler) refresh() error {
	s.minSize = nil
	if s.building {
		return nil
	}
	s.hours = s.workHours.DisplayedHours(s.showWorkHour)
	if s.batchDepth > 0 {
		s.dirty = true
		return nil
	}
	return s.repaint()
}

func (s *Scheduler) options() layout.Options {
	return layout.Options{
		View:              s.view,
		Style:             s.style,
		WeekStart:         s.weekStart,
		PeriodCount:       s.periodCount,
		ShowOnlyWorkHours: s.showWorkHour,
		WorkHours:         s.workHours,
		Strategy:          s.strategy,
		PeriodWidth:       s.periodWidth,
		DrawHeaders:       s.drawHeaders,
		Highlight:         s.highlight,
		Now:               s.now,
	}
}

// canvas is implemented by drawers that hold pixels between passes.
type canvas interface {
	Reset(size layout.Size)
}

// repaint paints a new frame and swaps it in only when the pass completed.
// On failure the previous frame stays current.
func (s *Scheduler) repaint() error {
	if s.size.W <= 0 || s.size.H <= 0 {
		return nil
	}
	if c, ok := s.drawer.(canvas); ok {
		c.Reset(s.size)
	}

	f, err := layout.NewPainter(s.options()).Paint(s.drawer, s.schedules, s.date, layout.Rect{W: s.size.W, H: s.size.H})
	if err != nil {
		s.lastErr = err
		appLog.Error("scheduler: repaint failed", err, "view", s.view, "date", s.date.Format("2006-01-02"))
		return fmt.Errorf("scheduler: repaint: %w", err)
	}

	prev, prevDrawer := s.frame, s.frameDrawer
	s.frame, s.frameDrawer = f, s.drawer
	s.lastErr = nil
	prev.Release(prevDrawer)

	appLog.Debug("scheduler: repainted",
		"view", s.view,
		"style", s.style,
		"schedules", len(f.Schedules),
		"pages", f.PageCount,
	)
	s.handlers.repainted(f)
	return nil
}

// Refresh forces a repaint with the current state.
func (s *Scheduler) Refresh() error {
	return s.refresh()
}

// Err is the error of the last failed repaint, nil after a good one.
func (s *Scheduler) Err() error {
	return s.lastErr
}

// Batch is a scoped guard that defers repaints until End.
type Batch struct {
	s    *Scheduler
	done bool
}

// BeginBatch opens a batch. Mutations inside it repaint once, when the
// outermost batch ends. Batches nest.
func (s *Scheduler) BeginBatch() *Batch {
	s.batchDepth++
	return &Batch{s: s}
}

// End closes the batch and repaints if anything changed. Calling End twice
// is harmless.
func (b *Batch) End() error {
	if b.done {
		return nil
	}
	b.done = true
	b.s.batchDepth--
	if b.s.batchDepth == 0 && b.s.dirty {
		b.s.dirty = false
		return b.s.repaint()
	}
	return nil
}

// Close lets a batch be used with defer.
func (b *Batch) Close() error {
	return b.End()
}

// Frame is the last completed frame, nil before the first paint.
func (s *Scheduler) Frame() *layout.Frame {
	return s.frame
}

// PageCount is the number of pages of the current frame.
func (s *Scheduler) PageCount() int {
	if s.frame == nil {
		return 1
	}
	return s.frame.PageCount
}

// MinSize is the smallest surface the current view fits in. The value is
// cached until the next state change.
func (s *Scheduler) MinSize() (layout.Size, error) {
	if s.minSize != nil {
		return *s.minSize, nil
	}

	d := drawer.NewBase(model.DefaultPalette())
	opts := s.options()
	opts.PageHeight = 1 << 20
	f, err := layout.NewPainter(opts).Paint(d, s.schedules, s.date, layout.Rect{})
	if err != nil {
		return layout.Size{}, err
	}
	size := f.Size
	f.Release(d)

	s.minSize = &size
	return size, nil
}
