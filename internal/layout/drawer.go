package layout

import (
	"image/color"
	"time"

	"schedview/internal/model"
)

// Drawer is the rendering backend used by the Painter. Header and hour
// methods return the size they consumed; schedule methods return the
// rectangle the schedule occupies so it can be cached for hit testing.
type Drawer interface {
	DrawDayHeader(day time.Time, r Rect, highlight color.Color) Size
	DrawMonthHeader(day time.Time, r Rect) Size
	DrawSimpleDayHeader(day time.Time, r Rect, highlight color.Color) Size
	DrawHours(r Rect, style Style, hours []time.Duration, includeText bool) Size
	DrawDayBackground(r Rect, highlight color.Color)

	// DrawScheduleVertical draws s inside the lane r of the single day day.
	DrawScheduleVertical(s *model.Schedule, day time.Time, mask Mask, r Rect) (Rect, error)
	// DrawScheduleHorizontal draws s on a row of r spanning daysCount days from start.
	DrawScheduleHorizontal(s *model.Schedule, start time.Time, daysCount int, mask Mask, r Rect) (Rect, error)
	// DrawSchedulesCompact draws as many schedules as fit in a month cell and
	// returns the ones displayed. A zero day is a padding cell.
	DrawSchedulesCompact(day time.Time, schedules []*model.Schedule, r Rect, highlight color.Color) []ScheduleCoord
}

// Releaser is implemented by drawers that attach resources to the transient
// clones they draw.
type Releaser interface {
	ReleaseSchedule(s *model.Schedule)
}

func release(d Drawer, s *model.Schedule) {
	if r, ok := d.(Releaser); ok {
		r.ReleaseSchedule(s)
	}
	s.Release()
}
