package ics

import (
	"io"

	ical "github.com/arran4/golang-ical"

	"schedview/internal/model"
)

// Export writes schedules as a PUBLISH calendar with one VEVENT each, using
// the schedule ID as UID. Clones are exported as their original.
func Export(w io.Writer, schedules []*model.Schedule) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//schedview//EN")

	for _, s := range schedules {
		if s == nil {
			continue
		}
		s = s.Root()

		evt := cal.AddEvent(s.ID.String())
		evt.SetStartAt(s.Start)
		evt.SetEndAt(s.End)
		evt.SetSummary(s.Description)
		if s.Notes != "" {
			evt.SetDescription(s.Notes)
		}
		if s.Category != "" {
			evt.SetProperty(ical.ComponentPropertyCategories, s.Category)
		}
		if s.Color.A != 0 {
			evt.SetProperty(propColor, model.HexColor(s.Color))
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
