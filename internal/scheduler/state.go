package scheduler

import (
	"fmt"
	"image/color"
	"slices"
	"time"

	"schedview/internal/layout"
	"schedview/internal/model"
	"schedview/internal/timeutil"
)

func (s *Scheduler) SetDate(t time.Time) error {
	if !timeutil.IsValid(t) {
		return ErrInvalidDate
	}
	s.date = timeutil.CopyDateTime(t)
	return s.refresh()
}

// SetViewType switches between daily, weekly and monthly views, or moves
// the displayed period with ViewToday, ViewPrev and ViewNext.
func (s *Scheduler) SetViewType(v layout.ViewType) error {
	switch v {
	case layout.ViewDaily, layout.ViewWeekly, layout.ViewMonthly:
		s.view = v
	case ViewToday:
		s.date = timeutil.CopyDate(s.now())
	case ViewPrev:
		s.date = s.shift(-1)
	case ViewNext:
		s.date = s.shift(1)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidViewType, int(v))
	}
	return s.refresh()
}

// shift moves the date by one view unit: a day, a week, or the length of
// the current month.
func (s *Scheduler) shift(dir int) time.Time {
	switch s.view {
	case layout.ViewDaily:
		return timeutil.AddDays(s.date, dir)
	case layout.ViewWeekly:
		return timeutil.AddDays(s.date, 7*dir)
	default:
		return timeutil.AddDays(s.date, dir*timeutil.DaysInMonth(s.date))
	}
}

func (s *Scheduler) SetStyle(st layout.Style) error {
	if !st.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStyle, int(st))
	}
	s.style = st
	return s.refresh()
}

func (s *Scheduler) SetWeekStart(ws timeutil.WeekStart) error {
	if ws != timeutil.WeekStartSunday && ws != timeutil.WeekStartMonday {
		return fmt.Errorf("%w: %d", ErrInvalidWeekStart, int(ws))
	}
	s.weekStart = ws
	return s.refresh()
}

// SetWorkHours moves the work day bounds to whole hours, keeping the pause.
func (s *Scheduler) SetWorkHours(startHour, endHour int) error {
	w := s.workHours
	w.Start = time.Duration(startHour) * time.Hour
	w.End = time.Duration(endHour) * time.Hour
	return s.SetWorkingHours(w)
}

// SetPauseHours moves the pause to whole hours, keeping the work day bounds.
func (s *Scheduler) SetPauseHours(startHour, endHour int) error {
	w := s.workHours
	w.PauseStart = time.Duration(startHour) * time.Hour
	w.PauseEnd = time.Duration(endHour) * time.Hour
	return s.SetWorkingHours(w)
}

func (s *Scheduler) SetWorkingHours(w layout.WorkHours) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.workHours = w
	return s.refresh()
}

// SetShowWorkHour limits the time axis to the worked intervals when set.
func (s *Scheduler) SetShowWorkHour(show bool) error {
	s.showWorkHour = show
	return s.refresh()
}

func (s *Scheduler) SetPeriodCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPeriodCount, n)
	}
	s.periodCount = n
	return s.refresh()
}

func (s *Scheduler) SetPeriodWidth(w float64) error {
	if w < layout.MinPeriodWidth {
		return fmt.Errorf("%w: %.0f < %d", ErrInvalidPeriodWidth, w, layout.MinPeriodWidth)
	}
	s.periodWidth = w
	return s.refresh()
}

// SetResizable allows header dragging to change the period width.
func (s *Scheduler) SetResizable(resizable bool) {
	s.resizable = resizable
}

// SetDrawHeaders is false when the headers live on a separate panel.
func (s *Scheduler) SetDrawHeaders(draw bool) error {
	s.drawHeaders = draw
	return s.refresh()
}

// SetHighlight sets today's background; nil disables highlighting.
func (s *Scheduler) SetHighlight(c color.Color) error {
	s.highlight = c
	return s.refresh()
}

func (s *Scheduler) SetDrawer(d layout.Drawer) error {
	if d == nil {
		return ErrNilDrawer
	}
	s.drawer = d
	return s.refresh()
}

func (s *Scheduler) SetStrategy(st layout.Strategy) error {
	if !st.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStrategy, int(st))
	}
	s.strategy = st
	return s.refresh()
}

// SetSize sets the surface the view is painted on. An empty size suspends
// painting.
func (s *Scheduler) SetSize(size layout.Size) error {
	s.size = size
	return s.refresh()
}

// Add appends sc and repaints when it falls into the displayed period.
func (s *Scheduler) Add(sc *model.Schedule) error {
	if err := s.checkNew(sc); err != nil {
		return err
	}
	s.add(sc)
	if !s.Overlaps(sc) {
		s.minSize = nil
		return nil
	}
	return s.refresh()
}

// AddAll appends every schedule with a single repaint. Nothing is added if
// any schedule is rejected.
func (s *Scheduler) AddAll(list []*model.Schedule) error {
	seen := make(map[*model.Schedule]bool, len(list))
	for i, sc := range list {
		if err := s.checkNew(sc); err != nil {
			return fmt.Errorf("schedule %d: %w", i, err)
		}
		if seen[sc] {
			return fmt.Errorf("schedule %d: %w", i, ErrDuplicateSchedule)
		}
		seen[sc] = true
	}
	for _, sc := range list {
		s.add(sc)
	}
	return s.refresh()
}

func (s *Scheduler) checkNew(sc *model.Schedule) error {
	if sc == nil {
		return ErrNilSchedule
	}
	if !sc.Valid() {
		return ErrInvalidSchedule
	}
	if _, ok := s.cancels[sc]; ok {
		return ErrDuplicateSchedule
	}
	return nil
}

func (s *Scheduler) add(sc *model.Schedule) {
	s.schedules = append(s.schedules, sc)
	s.cancels[sc] = sc.Subscribe(func(*model.Schedule) {
		_ = s.refresh()
	})
}

func (s *Scheduler) DeleteAt(i int) error {
	if i < 0 || i >= len(s.schedules) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.schedules))
	}
	s.remove(i)
	return s.refresh()
}

func (s *Scheduler) DeleteSchedule(sc *model.Schedule) error {
	if sc == nil {
		return ErrNilSchedule
	}
	i := slices.Index(s.schedules, sc)
	if i < 0 {
		return ErrScheduleNotFound
	}
	s.remove(i)
	return s.refresh()
}

func (s *Scheduler) DeleteAll() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	clear(s.cancels)
	s.schedules = nil
	return s.refresh()
}

// Replace swaps the whole schedule list with a single repaint. The list is
// checked before anything is removed.
func (s *Scheduler) Replace(list []*model.Schedule) error {
	seen := make(map[*model.Schedule]bool, len(list))
	for i, sc := range list {
		switch {
		case sc == nil:
			return fmt.Errorf("schedule %d: %w", i, ErrNilSchedule)
		case !sc.Valid():
			return fmt.Errorf("schedule %d: %w", i, ErrInvalidSchedule)
		case seen[sc]:
			return fmt.Errorf("schedule %d: %w", i, ErrDuplicateSchedule)
		}
		seen[sc] = true
	}

	b := s.BeginBatch()
	defer b.End()

	if err := s.DeleteAll(); err != nil {
		return err
	}
	if err := s.AddAll(list); err != nil {
		return err
	}
	return b.End()
}

func (s *Scheduler) remove(i int) {
	sc := s.schedules[i]
	if cancel, ok := s.cancels[sc]; ok {
		cancel()
		delete(s.cancels, sc)
	}
	s.schedules = slices.Delete(s.schedules, i, i+1)
}

func (s *Scheduler) Date() time.Time                { return s.date }
func (s *Scheduler) ViewType() layout.ViewType      { return s.view }
func (s *Scheduler) Style() layout.Style            { return s.style }
func (s *Scheduler) WeekStart() timeutil.WeekStart  { return s.weekStart }
func (s *Scheduler) PeriodCount() int               { return s.periodCount }
func (s *Scheduler) PeriodWidth() float64           { return s.periodWidth }
func (s *Scheduler) ShowWorkHour() bool             { return s.showWorkHour }
func (s *Scheduler) WorkingHours() layout.WorkHours { return s.workHours }
func (s *Scheduler) Strategy() layout.Strategy      { return s.strategy }
func (s *Scheduler) Resizable() bool                { return s.resizable }
func (s *Scheduler) DrawHeaders() bool              { return s.drawHeaders }
func (s *Scheduler) Drawer() layout.Drawer          { return s.drawer }
func (s *Scheduler) Size() layout.Size              { return s.size }

// Schedules returns a copy of the schedule list.
func (s *Scheduler) Schedules() []*model.Schedule {
	return slices.Clone(s.schedules)
}

// DisplayedHours is the list of half-hour slots on the time axis.
func (s *Scheduler) DisplayedHours() []time.Duration {
	return slices.Clone(s.hours)
}

// Period returns the displayed window [start, end).
func (s *Scheduler) Period() (start, end time.Time) {
	switch s.view {
	case layout.ViewDaily:
		start = timeutil.CopyDate(s.date)
		return start, timeutil.AddDays(start, s.periodCount)
	case layout.ViewWeekly:
		start = timeutil.FirstDayOfWeek(s.date, s.weekStart)
		return start, timeutil.AddDays(start, 7*s.periodCount)
	default:
		start = timeutil.FirstOfMonth(s.date)
		return start, start.AddDate(0, 1, 0)
	}
}

// IsDateInRange reports whether t falls in the displayed period.
func (s *Scheduler) IsDateInRange(t time.Time) bool {
	start, end := s.Period()
	return !t.Before(start) && t.Before(end)
}

// IsScheduleInRange reports whether sc lies entirely inside the displayed
// period.
func (s *Scheduler) IsScheduleInRange(sc *model.Schedule) bool {
	if sc == nil {
		return false
	}
	start, end := s.Period()
	return !sc.Start.Before(start) && !sc.End.After(end)
}

// Overlaps reports whether any part of sc is painted in the displayed
// period, with the same rule the painter clips by.
func (s *Scheduler) Overlaps(sc *model.Schedule) bool {
	if sc == nil {
		return false
	}
	start, end := s.Period()
	return sc.Start.Before(end) && !start.After(sc.End)
}
