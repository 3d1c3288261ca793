package layout

import (
	"time"

	"schedview/internal/model"
)

// SchedulesInPeriod returns clones of the schedules intersecting [start, end),
// trimmed to the window. A schedule is kept when it starts before end and
// ends at or after start. Output follows input order; each clone resolves to
// its original through Original().
func SchedulesInPeriod(schedules []*model.Schedule, start, end time.Time) []*model.Schedule {
	var out []*model.Schedule
	for _, s := range schedules {
		if !s.Start.Before(end) {
			continue
		}
		if start.After(s.End) {
			continue
		}

		c := s.Clone()
		if start.After(s.Start) {
			c.Start = start
		}
		if s.End.After(end) {
			c.End = end
		}
		out = append(out, c)
	}
	return out
}
