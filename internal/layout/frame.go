package layout

import (
	"time"

	"github.com/google/uuid"

	"schedview/internal/model"
)

// ScheduleCoord is the rectangle a (cloned) schedule was drawn in.
type ScheduleCoord struct {
	Schedule *model.Schedule
	Min, Max Point
}

func (c ScheduleCoord) Bounds() Rect {
	return Rect{X: c.Min.X, Y: c.Min.Y, W: c.Max.X - c.Min.X, H: c.Max.Y - c.Min.Y}
}

// CellCoord is the rectangle of one time cell.
type CellCoord struct {
	Time     time.Time
	Min, Max Point
}

func (c CellCoord) Bounds() Rect {
	return Rect{X: c.Min.X, Y: c.Min.Y, W: c.Max.X - c.Min.X, H: c.Max.Y - c.Min.Y}
}

// HeaderBound is a draggable day-column edge in horizontal headers.
type HeaderBound struct {
	X, Y, H float64
}

// Frame is the output of one complete paint pass.
type Frame struct {
	Schedules    []ScheduleCoord
	Cells        []CellCoord
	HeaderBounds []HeaderBound

	// Pages maps original schedule IDs to the page they land on. Only
	// screen passes fill it.
	Pages      map[uuid.UUID]int
	PageCount  int
	PageLimits []float64

	// Size is the minimum size the content needs.
	Size Size
}

func newFrame() *Frame {
	return &Frame{
		Pages:     make(map[uuid.UUID]int),
		PageCount: 1,
	}
}

// Release ends the life of every clone in the frame, handing each to d
// first when d pairs resources with them.
func (f *Frame) Release(d Drawer) {
	if f == nil {
		return
	}
	for _, c := range f.Schedules {
		release(d, c.Schedule)
	}
}

// Hit is the result of a hit test: a schedule, a time cell, or nothing.
type Hit struct {
	Schedule *model.Schedule
	Time     time.Time
}

func (h Hit) Empty() bool {
	return h.Schedule == nil && h.Time.IsZero()
}

func (h Hit) IsSchedule() bool {
	return h.Schedule != nil
}

func (h Hit) IsTime() bool {
	return h.Schedule == nil && !h.Time.IsZero()
}

// Find returns the original schedule whose rectangle contains p, else the
// time cell containing p, else an empty Hit.
func (f *Frame) Find(p Point) Hit {
	if f == nil {
		return Hit{}
	}
	for _, c := range f.Schedules {
		if c.Bounds().Contains(p) {
			return Hit{Schedule: c.Schedule.Root()}
		}
	}
	for _, c := range f.Cells {
		if c.Bounds().Contains(p) {
			return Hit{Time: c.Time}
		}
	}
	return Hit{}
}

// BoundsOf returns every rectangle drawn for the original s.
func (f *Frame) BoundsOf(s *model.Schedule) []Rect {
	if f == nil || s == nil {
		return nil
	}
	var out []Rect
	for _, c := range f.Schedules {
		if c.Schedule.Root() == s {
			out = append(out, c.Bounds())
		}
	}
	return out
}
