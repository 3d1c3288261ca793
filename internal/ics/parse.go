package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "schedview/internal/log"
	"schedview/internal/model"
	"schedview/internal/timeutil"
)

// Property names without a constant in every library version.
const (
	propColor           ical.ComponentProperty = "COLOR"
	propDue             ical.ComponentProperty = "DUE"
	propPercentComplete ical.ComponentProperty = "PERCENT-COMPLETE"
)

// ParseOptions controls how components become schedules.
type ParseOptions struct {
	// Location is the zone schedules are converted to. If nil, time.Local
	// is used.
	Location *time.Location

	// RangeStart / RangeEnd keep only schedules intersecting the window.
	// A zero bound is open.
	RangeStart time.Time
	RangeEnd   time.Time
}

// Parse turns one ICS payload into schedules.
//
//   - VEVENT becomes a schedule spanning DTSTART..DTEND; cancelled events
//     are dropped.
//   - VTODO becomes a schedule spanning DTSTART..DUE with completion taken
//     from PERCENT-COMPLETE and STATUS.
//   - All-day values cover whole days in the display location.
//   - RRULE is not expanded; only the first instance is kept.
//
// Components that fail to parse are logged and skipped.
func Parse(src Source, body []byte, opts ParseOptions) ([]*model.Schedule, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	var out []*model.Schedule
	var skipped int
	for _, comp := range cal.Components {
		var (
			s   *model.Schedule
			err error
		)
		switch c := comp.(type) {
		case *ical.VEvent:
			s, err = parseVEvent(src, c, opts.Location)
		case *ical.VTodo:
			s, err = parseVTodo(src, c, opts.Location)
		default:
			continue
		}
		if err != nil {
			appLog.Error("ics component parse failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		if s == nil || !inWindow(s, opts) {
			skipped++
			continue
		}
		out = append(out, s)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "schedules", len(out), "skipped", skipped)
	return out, nil
}

func inWindow(s *model.Schedule, opts ParseOptions) bool {
	if !opts.RangeEnd.IsZero() && !s.Start.Before(opts.RangeEnd) {
		return false
	}
	if !opts.RangeStart.IsZero() && opts.RangeStart.After(s.End) {
		return false
	}
	return true
}

type component interface {
	GetProperty(ical.ComponentProperty) *ical.IANAProperty
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (*model.Schedule, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return nil, errors.New("missing UID")
	}
	if strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "CANCELLED") {
		return nil, nil
	}

	start, allDay, err := propTime(ve.GetProperty(ical.ComponentPropertyDtStart), loc)
	if err != nil {
		return nil, fmt.Errorf("uid %s: DTSTART: %w", uid, err)
	}

	end := start
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		if end, _, err = propTime(p, loc); err != nil {
			return nil, fmt.Errorf("uid %s: DTEND: %w", uid, err)
		}
	} else if allDay {
		end = timeutil.AddDays(start, 1)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("uid %s: DTEND before DTSTART", uid)
	}

	if rrule := propValue(ve, ical.ComponentPropertyRrule); rrule != "" {
		appLog.Debug("ics recurrence not expanded", "id", src.ID, "uid", uid, "rrule", rrule)
	}

	s := newSchedule(src, uid, start, end)
	fill(s, src, ve)
	if location := propValue(ve, ical.ComponentPropertyLocation); location != "" {
		s.Notes = strings.TrimSpace(location + "\n" + s.Notes)
	}
	return s, nil
}

func parseVTodo(src Source, vt *ical.VTodo, loc *time.Location) (*model.Schedule, error) {
	uid := propValue(vt, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return nil, errors.New("missing UID")
	}
	status := strings.ToUpper(propValue(vt, ical.ComponentPropertyStatus))
	if status == "CANCELLED" {
		return nil, nil
	}

	startProp := vt.GetProperty(ical.ComponentPropertyDtStart)
	dueProp := vt.GetProperty(propDue)
	if startProp == nil && dueProp == nil {
		// Undated to-dos have no place on a time axis.
		return nil, nil
	}

	var start, due time.Time
	var err error
	if startProp != nil {
		if start, _, err = propTime(startProp, loc); err != nil {
			return nil, fmt.Errorf("uid %s: DTSTART: %w", uid, err)
		}
	}
	if dueProp != nil {
		if due, _, err = propTime(dueProp, loc); err != nil {
			return nil, fmt.Errorf("uid %s: DUE: %w", uid, err)
		}
	}
	switch {
	case startProp == nil:
		start = due
	case dueProp == nil:
		due = start
	}
	if due.Before(start) {
		return nil, fmt.Errorf("uid %s: DUE before DTSTART", uid)
	}

	s := newSchedule(src, uid, start, due)
	fill(s, src, vt)
	s.Icons = append(s.Icons, "todo")

	if v := propValue(vt, propPercentComplete); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.SetComplete(float64(n) / 100)
		}
	}
	if status == "COMPLETED" {
		s.Done = true
		s.SetComplete(1)
	}
	return s, nil
}

// newSchedule derives a stable ID from the source and UID so that a
// refreshed feed yields the same identities.
func newSchedule(src Source, uid string, start, end time.Time) *model.Schedule {
	s := model.NewSchedule(start, end)
	s.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(src.ID+"/"+uid))
	return s
}

// fill copies the text and color properties shared by events and to-dos.
func fill(s *model.Schedule, src Source, c component) {
	s.Description = propValue(c, ical.ComponentPropertySummary)
	s.Notes = propValue(c, ical.ComponentPropertyDescription)

	s.Category = src.Category
	if cats := propValue(c, ical.ComponentPropertyCategories); cats != "" {
		first, _, _ := strings.Cut(cats, ",")
		s.Category = strings.TrimSpace(first)
	}

	if v := propValue(c, propColor); v != "" {
		if col, err := model.ParseHexColor(v); err == nil {
			s.Color = col
		}
	}
}

func propValue(c component, name ical.ComponentProperty) string {
	if p := c.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// propTime parses a DATE or DATE-TIME property honoring VALUE and TZID, and
// returns it in loc. allDay is set for DATE values, which are taken as
// midnight in loc.
func propTime(p *ical.IANAProperty, loc *time.Location) (t time.Time, allDay bool, err error) {
	if p == nil {
		return time.Time{}, false, errors.New("missing value")
	}
	v := strings.TrimSpace(p.Value)

	valueLoc := loc
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			if tz, err := time.LoadLocation(tzs[0]); err == nil {
				valueLoc = tz
			}
		}
	}
	if !strings.Contains(v, "T") {
		allDay = true
	}

	if allDay {
		t, err = parseICSTime(v, loc)
		return t, true, err
	}
	t, err = parseICSTime(v, valueLoc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.In(loc), false, nil
}

// parseICSTime parses a basic ICS date/date-time string. Floating values
// are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
