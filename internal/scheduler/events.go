package scheduler

import (
	"math"
	"time"

	"schedview/internal/layout"
	"schedview/internal/model"
)

// Event is raised by clicks on the view. Exactly one of Schedule and Time
// is set.
type Event struct {
	Schedule *model.Schedule
	Time     time.Time
	Point    layout.Point
}

type handlers struct {
	activated    []func(Event)
	doubleClick  []func(Event)
	rightClick   []func(Event)
	periodWidth  []func(float64)
	repaintFuncs []func(*layout.Frame)
}

func (h *handlers) repainted(f *layout.Frame) {
	for _, fn := range h.repaintFuncs {
		fn(f)
	}
}

// OnActivated registers fn for single clicks on a schedule or time cell.
func (s *Scheduler) OnActivated(fn func(Event)) {
	s.handlers.activated = append(s.handlers.activated, fn)
}

func (s *Scheduler) OnDoubleClick(fn func(Event)) {
	s.handlers.doubleClick = append(s.handlers.doubleClick, fn)
}

func (s *Scheduler) OnRightClick(fn func(Event)) {
	s.handlers.rightClick = append(s.handlers.rightClick, fn)
}

// OnPeriodWidthChanged registers fn for header-drag resizes.
func (s *Scheduler) OnPeriodWidthChanged(fn func(width float64)) {
	s.handlers.periodWidth = append(s.handlers.periodWidth, fn)
}

// OnRepaint registers fn to run after every completed paint.
func (s *Scheduler) OnRepaint(fn func(*layout.Frame)) {
	s.handlers.repaintFuncs = append(s.handlers.repaintFuncs, fn)
}

// Find hit-tests p against the last completed frame.
func (s *Scheduler) Find(p layout.Point) layout.Hit {
	return s.frame.Find(p)
}

// FindSchedule returns the original schedule drawn at p, or nil.
func (s *Scheduler) FindSchedule(p layout.Point) *model.Schedule {
	return s.frame.Find(p).Schedule
}

// Click raises an activated event for whatever is at p. It reports false
// when p hits nothing.
func (s *Scheduler) Click(p layout.Point) bool {
	return s.raise(p, s.handlers.activated)
}

func (s *Scheduler) DoubleClick(p layout.Point) bool {
	return s.raise(p, s.handlers.doubleClick)
}

func (s *Scheduler) RightClick(p layout.Point) bool {
	return s.raise(p, s.handlers.rightClick)
}

func (s *Scheduler) raise(p layout.Point, fns []func(Event)) bool {
	hit := s.frame.Find(p)
	if hit.Empty() {
		return false
	}
	ev := Event{Schedule: hit.Schedule, Time: hit.Time, Point: p}
	for _, fn := range fns {
		fn(ev)
	}
	return true
}

// headerGrip is how close to a column edge a drag has to start.
const headerGrip = 3

// HeaderAt returns the index of the draggable column edge under p.
func (s *Scheduler) HeaderAt(p layout.Point) (int, bool) {
	if s.frame == nil || !s.resizable {
		return 0, false
	}
	for i, hb := range s.frame.HeaderBounds {
		if math.Abs(p.X-hb.X) <= headerGrip && hb.Y <= p.Y && p.Y <= hb.Y+hb.H {
			return i, true
		}
	}
	return 0, false
}

// DragHeader resizes the period columns by dragging the edge under from to
// to.X. Every column left of the edge takes an equal share of the move.
func (s *Scheduler) DragHeader(from, to layout.Point) error {
	i, ok := s.HeaderAt(from)
	if !ok {
		return ErrNotResizable
	}
	return s.DragPeriodWidth(s.periodWidth + (to.X-from.X)/float64(i+1))
}

// DragPeriodWidth sets the period width from a header drag, clamped to
// MinPeriodWidth, and raises period-width-changed.
func (s *Scheduler) DragPeriodWidth(width float64) error {
	if !s.resizable {
		return ErrNotResizable
	}
	width = max(width, layout.MinPeriodWidth)
	if width == s.periodWidth {
		return nil
	}
	s.periodWidth = width
	err := s.refresh()
	for _, fn := range s.handlers.periodWidth {
		fn(width)
	}
	return err
}

// RefreshSchedule returns the rectangles sc occupies in the current frame,
// the area to redraw after a change to sc alone.
func (s *Scheduler) RefreshSchedule(sc *model.Schedule) []layout.Rect {
	return s.frame.BoundsOf(sc)
}
