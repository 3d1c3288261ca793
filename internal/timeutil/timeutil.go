// Package timeutil holds the value-semantic date arithmetic used by the
// layout engine. None of these helpers mutate their input.
package timeutil

import "time"

// WeekStart selects the first day of a calendar week.
type WeekStart int

const (
	WeekStartSunday WeekStart = 0
	WeekStartMonday WeekStart = 1
)

// Weekday returns the weekday a week starts on.
func (ws WeekStart) Weekday() time.Weekday {
	if ws == WeekStartMonday {
		return time.Monday
	}
	return time.Sunday
}

func (ws WeekStart) String() string {
	if ws == WeekStartMonday {
		return "monday"
	}
	return "sunday"
}

// IsValid reports whether t is a usable timestamp. The zero time is the
// invalid sentinel.
func IsValid(t time.Time) bool {
	return !t.IsZero()
}

// CopyDate returns t's calendar date at midnight in t's location.
func CopyDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CopyDateTime returns an independent copy of t down to the millisecond.
// An invalid input yields the invalid sentinel instead of an error.
func CopyDateTime(t time.Time) time.Time {
	if !IsValid(t) {
		return time.Time{}
	}
	ms := t.Nanosecond() / int(time.Millisecond) * int(time.Millisecond)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), ms, t.Location())
}

// AddDays moves t by n calendar days keeping the wall clock.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AtTimeOfDay returns day's date with the wall clock set to offset past midnight.
func AtTimeOfDay(day time.Time, offset time.Duration) time.Time {
	return CopyDate(day).Add(offset)
}

// TimeOfDay returns how far past midnight t is.
func TimeOfDay(t time.Time) time.Duration {
	return t.Sub(CopyDate(t))
}

// FirstDayOfWeek returns midnight of the first day of the week containing t.
func FirstDayOfWeek(t time.Time, ws WeekStart) time.Time {
	diff := (int(t.Weekday()) - int(ws.Weekday()) + 7) % 7
	return AddDays(CopyDate(t), -diff)
}

// SameWeekday moves t to the given weekday inside the week containing t,
// keeping the wall clock.
func SameWeekday(t time.Time, day time.Weekday, ws WeekStart) time.Time {
	first := FirstDayOfWeek(t, ws)
	offset := (int(day) - int(ws.Weekday()) + 7) % 7
	return AddDays(first, offset).Add(TimeOfDay(t))
}

// SameDate reports whether a and b fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FirstOfMonth returns midnight of the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// MonthCalendar returns the month as rows of seven day numbers, starting on
// ws. Days belonging to neighbouring months are 0.
func MonthCalendar(year int, month time.Month, ws WeekStart) [][7]int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := (int(first.Weekday()) - int(ws.Weekday()) + 7) % 7
	days := DaysInMonth(first)

	var weeks [][7]int
	var week [7]int
	col := lead
	for d := 1; d <= days; d++ {
		week[col] = d
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
