package layout

import (
	"errors"
	"fmt"
	"time"

	"schedview/internal/model"
	"schedview/internal/timeutil"
)

var (
	// ErrDegenerateWorkingHours is returned when the working intervals add
	// up to no time at all, which would make every size a division by zero.
	ErrDegenerateWorkingHours = errors.New("layout: working hours have zero total span")
	// ErrInvalidWorkHours is returned for out-of-order work-day bounds.
	ErrInvalidWorkHours = errors.New("layout: invalid work hours")
)

const halfHour = 30 * time.Minute

// Interval is a time-of-day range [Start, End).
type Interval struct {
	Start time.Duration
	End   time.Duration
}

func (iv Interval) Len() time.Duration {
	return iv.End - iv.Start
}

// Mask is an ascending list of disjoint working intervals.
type Mask []Interval

// Validate checks ordering, disjointness and a non-zero total.
func (m Mask) Validate() error {
	var total time.Duration
	for i, iv := range m {
		if iv.Start < 0 || iv.End > 24*time.Hour || iv.End < iv.Start {
			return fmt.Errorf("%w: interval %d is %v-%v", ErrInvalidWorkHours, i, iv.Start, iv.End)
		}
		if i > 0 && iv.Start < m[i-1].End {
			return fmt.Errorf("%w: interval %d overlaps its predecessor", ErrInvalidWorkHours, i)
		}
		total += iv.Len()
	}
	if total <= 0 {
		return ErrDegenerateWorkingHours
	}
	return nil
}

// Total is the worked time of one day.
func (m Mask) Total() time.Duration {
	var total time.Duration
	for _, iv := range m {
		total += iv.Len()
	}
	return total
}

// WorkHours is the work day with a single pause, as offsets from midnight.
type WorkHours struct {
	Start      time.Duration
	PauseStart time.Duration
	PauseEnd   time.Duration
	End        time.Duration
}

// DefaultWorkHours is 08:00-18:00 with a 13:00-14:00 pause.
func DefaultWorkHours() WorkHours {
	return WorkHours{
		Start:      8 * time.Hour,
		PauseStart: 13 * time.Hour,
		PauseEnd:   14 * time.Hour,
		End:        18 * time.Hour,
	}
}

// Validate enforces Start < PauseStart <= PauseEnd < End within one day.
func (w WorkHours) Validate() error {
	if w.Start < 0 || w.End > 24*time.Hour {
		return fmt.Errorf("%w: %v-%v is outside a day", ErrInvalidWorkHours, w.Start, w.End)
	}
	if !(w.Start < w.PauseStart && w.PauseStart <= w.PauseEnd && w.PauseEnd < w.End) {
		return fmt.Errorf("%w: need start < pause start <= pause end < end, got %v %v %v %v",
			ErrInvalidWorkHours, w.Start, w.PauseStart, w.PauseEnd, w.End)
	}
	return nil
}

// Mask returns the morning and afternoon intervals when showOnlyWorkHours is
// set, otherwise the whole work day including the pause.
func (w WorkHours) Mask(showOnlyWorkHours bool) Mask {
	if !showOnlyWorkHours {
		return Mask{{Start: w.Start, End: w.End}}
	}
	m := Mask{{Start: w.Start, End: w.PauseStart}}
	if w.PauseEnd < w.End {
		m = append(m, Interval{Start: w.PauseEnd, End: w.End})
	}
	return m
}

// DisplayedHours lists the half-hour cell starts shown along the time axis.
func (w WorkHours) DisplayedHours(showOnlyWorkHours bool) []time.Duration {
	var out []time.Duration
	for _, iv := range w.Mask(showOnlyWorkHours) {
		for t := iv.Start; t < iv.End; t += halfHour {
			out = append(out, t)
		}
	}
	return out
}

// Extent is a projection onto the time axis, scaled to pixels.
type Extent struct {
	// Size is the worked time covered by the schedule.
	Size float64
	// Offset is the worked time between the period start and the schedule start.
	Offset float64
	// Total is the worked time of the whole period.
	Total float64
}

// Project maps [start, end) onto the working intervals of days consecutive
// days beginning at periodStart's date. Only worked time counts: a schedule
// spanning the pause loses the pause, a schedule outside every interval has
// zero size. Values are scaled so that Total equals totalSize.
func Project(start, end time.Time, mask Mask, periodStart time.Time, days int, totalSize float64) (Extent, error) {
	if days < 1 {
		days = 1
	}
	day0 := timeutil.CopyDate(periodStart)

	var span, before, total time.Duration
	for d := 0; d < days; d++ {
		day := timeutil.AddDays(day0, d)
		for _, iv := range mask {
			ws := timeutil.AtTimeOfDay(day, iv.Start)
			we := timeutil.AtTimeOfDay(day, iv.End)
			total += we.Sub(ws)

			if b := minTime(start, we).Sub(ws); b > 0 {
				before += b
			}

			lo := maxTime(start, ws)
			hi := minTime(end, we)
			if hi.After(lo) {
				span += hi.Sub(lo)
			}
		}
	}

	if total <= 0 {
		return Extent{}, ErrDegenerateWorkingHours
	}

	scale := func(d time.Duration) float64 {
		return totalSize * float64(d) / float64(total)
	}
	return Extent{
		Size:   scale(span),
		Offset: scale(before),
		Total:  totalSize,
	}, nil
}

// ScheduleSize is the extent of s along the time axis of the day s starts
// on, given totalSize pixels for that day's worked time.
func ScheduleSize(s *model.Schedule, mask Mask, totalSize float64) (float64, error) {
	ext, err := Project(s.Start, s.End, mask, s.Start, 1, totalSize)
	if err != nil {
		return 0, err
	}
	return ext.Size, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
