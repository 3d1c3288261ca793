package layout

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/google/uuid"

	"schedview/internal/model"
	"schedview/internal/timeutil"
)

var (
	ErrInvalidViewType    = errors.New("layout: invalid view type")
	ErrInvalidStyle       = errors.New("layout: invalid style")
	ErrInvalidPeriodCount = errors.New("layout: period count must be at least 1")
	ErrNilDrawer          = errors.New("layout: nil drawer")
)

// Options is the view state a paint pass reads.
type Options struct {
	View              ViewType
	Style             Style
	WeekStart         timeutil.WeekStart
	PeriodCount       int
	ShowOnlyWorkHours bool
	WorkHours         WorkHours
	Strategy          Strategy

	// PeriodWidth is the day-column width in horizontal mode.
	PeriodWidth float64
	// DrawHeaders is false when headers live on a separate panel.
	DrawHeaders bool
	// Highlight is the background used for today.
	Highlight color.Color

	// PageHeight is the page budget of a screen pass. Zero selects the
	// bounds height minus PageMargin.
	PageHeight float64
	// PageNumber selects one page for printing; 0 is a screen pass that
	// assigns pages instead.
	PageNumber int
	// Pages is the assignment from an earlier screen pass, read when
	// PageNumber > 0.
	Pages map[uuid.UUID]int

	// Now is the clock for today highlighting; nil means time.Now.
	Now func() time.Time
}

// Validate checks the enumerations and the work hours.
func (o Options) Validate() error {
	if !o.View.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidViewType, int(o.View))
	}
	if !o.Style.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStyle, int(o.Style))
	}
	if o.PeriodCount < 1 {
		return ErrInvalidPeriodCount
	}
	if !o.Strategy.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStrategy, int(o.Strategy))
	}
	if err := o.WorkHours.Validate(); err != nil {
		return err
	}
	return o.WorkHours.Mask(o.ShowOnlyWorkHours).Validate()
}

// Painter lays out schedules for one view configuration.
type Painter struct {
	Options Options
}

func NewPainter(opts Options) *Painter {
	return &Painter{Options: opts}
}

// Paint lays out schedules for the period containing date inside bounds and
// returns the finished frame. On error every clone created by the pass is
// released and no frame is returned.
func (p *Painter) Paint(d Drawer, schedules []*model.Schedule, date time.Time, bounds Rect) (*Frame, error) {
	if d == nil {
		return nil, ErrNilDrawer
	}
	if err := p.Options.Validate(); err != nil {
		return nil, err
	}

	ps := &pass{
		opts:      p.Options,
		d:         d,
		schedules: schedules,
		frame:     newFrame(),
		mask:      p.Options.WorkHours.Mask(p.Options.ShowOnlyWorkHours),
		hours:     p.Options.WorkHours.DisplayedHours(p.Options.ShowOnlyWorkHours),
		now:       p.Options.Now,
	}
	if ps.now == nil {
		ps.now = time.Now
	}
	ps.pageHeight = p.Options.PageHeight
	if ps.pageHeight <= 0 {
		ps.pageHeight = bounds.H - PageMargin
	}

	day := timeutil.CopyDate(date)
	var (
		size Size
		err  error
	)
	switch p.Options.View {
	case ViewDaily:
		size, err = ps.paintDaily(day, bounds.X, bounds.Y, bounds.W, bounds.H)
	case ViewWeekly:
		size, err = ps.paintWeekly(day, bounds.X, bounds.Y, bounds.W, bounds.H)
	case ViewMonthly:
		size, err = ps.paintMonthly(day, bounds.X, bounds.Y, bounds.W, bounds.H)
	}
	if err != nil {
		ps.frame.Release(d)
		return nil, err
	}
	ps.frame.Size = size
	return ps.frame, nil
}

type pass struct {
	opts       Options
	d          Drawer
	schedules  []*model.Schedule
	frame      *Frame
	mask       Mask
	hours      []time.Duration
	pageHeight float64
	now        func() time.Time
}

func (p *pass) vertical() bool {
	return p.opts.Style == StyleVertical
}

func (p *pass) screen() bool {
	return p.opts.PageNumber == 0
}

func (p *pass) highlightFor(day time.Time) color.Color {
	if p.opts.Highlight != nil && timeutil.SameDate(day, p.now()) {
		return p.opts.Highlight
	}
	return nil
}

// paintPeriod draws daysCount days from start as one strip: backgrounds,
// schedules split into lanes, and the time cells used for hit testing.
func (p *pass) paintPeriod(start time.Time, daysCount int, x, y, width, height float64) (Size, error) {
	end := timeutil.AddDays(start, daysCount)
	placed := rows(Lanes(p.opts.Strategy, SchedulesInPeriod(p.schedules, start, end)))
	n := float64(daysCount)

	// Only horizontal strips paginate; vertical columns always fit page 1.
	paginate := p.screen() && !p.vertical()
	currentPageHeight := y
	if paginate {
		p.frame.PageLimits = []float64{y}
	}

	for dayN := 0; dayN < daysCount; dayN++ {
		theDay := timeutil.AddDays(start, dayN)
		var hl color.Color
		if p.opts.View != ViewDaily {
			hl = p.highlightFor(theDay)
		}
		p.d.DrawDayBackground(Rect{X: x + width/n*float64(dayN), Y: y, W: width / n, H: height}, hl)
	}

	var offsetY float64
	for _, row := range placed {
		var maxDY float64

		for _, pl := range row {
			s := pl.Schedule
			if !p.screen() && p.opts.Pages[s.Root().ID] != p.opts.PageNumber {
				release(p.d, s)
				continue
			}

			var (
				r   Rect
				err error
			)
			if p.vertical() {
				laneW := width / float64(pl.Lanes)
				r, err = p.d.DrawScheduleVertical(s, start, p.mask,
					Rect{X: x + laneW*float64(pl.Lane), Y: y, W: laneW, H: height})
			} else {
				r, err = p.d.DrawScheduleHorizontal(s, start, daysCount, p.mask,
					Rect{X: x, Y: y + offsetY, W: width, H: height})
				maxDY = max(maxDY, r.H)
			}
			if err != nil {
				releasePlaced(p.d, placed)
				return Size{}, err
			}

			switch {
			case paginate:
				page := p.frame.PageCount
				if currentPageHeight+r.H >= p.pageHeight {
					page++
				}
				p.frame.Pages[s.Root().ID] = page
			case p.screen():
				p.frame.Pages[s.Root().ID] = 1
			}

			p.frame.Schedules = append(p.frame.Schedules, ScheduleCoord{
				Schedule: s,
				Min:      r.Min(),
				Max:      r.Max(),
			})
		}

		offsetY += maxDY

		if paginate {
			currentPageHeight += maxDY
			if currentPageHeight >= p.pageHeight {
				p.frame.PageLimits = append(p.frame.PageLimits, currentPageHeight-maxDY)
				currentPageHeight = y + maxDY
				p.frame.PageCount++
			}
		}
	}

	nbHours := float64(len(p.hours))
	for dayN := 0; dayN < daysCount; dayN++ {
		theDay := timeutil.CopyDate(timeutil.AddDays(start, dayN))
		dn := float64(dayN)

		for idx, hour := range p.hours {
			i := float64(idx)
			cell := CellCoord{Time: timeutil.AtTimeOfDay(theDay, hour)}
			if p.vertical() {
				cell.Min = Point{X: x + width*dn/n, Y: y + height*i/nbHours}
				cell.Max = Point{X: x + width*(dn+1)/n, Y: y + height*(i+1)/nbHours}
			} else {
				cell.Min = Point{X: x + width*(nbHours*dn+i)/(nbHours*n), Y: y}
				cell.Max = Point{X: x + width*(nbHours*dn+i+1)/(nbHours*n), Y: y + height}
			}
			p.frame.Cells = append(p.frame.Cells, cell)
		}
	}

	if p.vertical() {
		return Size{W: max(width, DaySizeMin.W), H: max(height, DaySizeMin.H)}, nil
	}
	return Size{W: max(width, p.opts.PeriodWidth), H: offsetY}, nil
}

// releasePlaced releases every clone of a failed strip. Clones already in the
// frame are released again by Frame.Release, which is harmless.
func releasePlaced(d Drawer, placed [][]Placement) {
	for _, row := range placed {
		for _, pl := range row {
			release(d, pl.Schedule)
		}
	}
}

func (p *pass) paintDay(day time.Time, x, y, width, height float64) (Size, error) {
	return p.paintPeriod(timeutil.CopyDate(day), 1, x, y, width, height)
}

func (p *pass) paintDailyHeaders(day time.Time, x, y, width, height float64, includeText bool) Size {
	if !p.vertical() {
		p.frame.HeaderBounds = append(p.frame.HeaderBounds, HeaderBound{X: x, Y: y, H: height})
	}

	s := Size{W: width}
	if includeText {
		s = p.d.DrawDayHeader(day, Rect{X: x, Y: y, W: width, H: height}, nil)
	}

	if !p.vertical() && !p.opts.DrawHeaders {
		hs := p.d.DrawHours(Rect{X: x, Y: y + s.H, W: width, H: height - s.H}, p.opts.Style, p.hours, includeText)
		s.H += hs.H
	}
	return s
}

func (p *pass) paintDaily(day time.Time, x, y, width, height float64) (Size, error) {
	var minWidth, minHeight float64
	pc := p.opts.PeriodCount
	n := float64(pc)

	if p.vertical() {
		x += LeftColumnSize
		width -= LeftColumnSize
	}

	theDay := day
	if p.opts.DrawHeaders {
		var maxDY float64
		for idx := 0; idx < pc; idx++ {
			s := p.paintDailyHeaders(theDay, x+width/n*float64(idx), y, width/n, height, true)
			maxDY = max(maxDY, s.H)
			theDay = timeutil.AddDays(theDay, 1)
		}
		minHeight += maxDY
		y += maxDY
		height -= maxDY
	} else {
		for idx := 0; idx < pc; idx++ {
			p.paintDailyHeaders(theDay, x+width/n*float64(idx), y, width/n, height, false)
			theDay = timeutil.AddDays(theDay, 1)
		}
	}

	if p.vertical() {
		x -= LeftColumnSize
		width += LeftColumnSize
	}

	var hours Size
	if p.vertical() {
		hours = p.d.DrawHours(Rect{X: x, Y: y, W: width, H: height}, p.opts.Style, p.hours, true)
	} else if p.opts.DrawHeaders {
		for idx := 0; idx < pc; idx++ {
			s := p.d.DrawHours(Rect{X: x + width/n*float64(idx), Y: y, W: width / n, H: height}, p.opts.Style, p.hours, true)
			hours.H = max(hours.H, s.H)
		}
	}

	if p.vertical() {
		minWidth += hours.W
		x += hours.W
		width -= hours.W
	} else {
		minHeight += hours.H
		y += hours.H
		height -= hours.H
	}

	if !p.vertical() {
		s, err := p.paintPeriod(day, pc, x, y, width, height)
		if err != nil {
			return Size{}, err
		}
		return Size{W: minWidth + s.W, H: minHeight + s.H}, nil
	}

	var w, maxDY float64
	theDay = day
	for idx := 0; idx < pc; idx++ {
		s, err := p.paintDay(theDay, x+width/n*float64(idx), y, width/n, height)
		if err != nil {
			return Size{}, err
		}
		w += s.W
		maxDY = max(maxDY, s.H)
		theDay = timeutil.AddDays(theDay, 1)
	}
	return Size{W: minWidth + w, H: minHeight + maxDY}, nil
}

func (p *pass) paintWeeklyHeaders(day time.Time, x, y, width, height float64) float64 {
	first := timeutil.FirstDayOfWeek(day, p.opts.WeekStart)

	var maxDY float64
	for weekday := 0; weekday < 7; weekday++ {
		theDay := timeutil.AddDays(first, weekday)
		wd := float64(weekday)
		s := p.d.DrawDayHeader(theDay, Rect{X: x + wd*width/7, Y: y, W: width / 7, H: height}, p.highlightFor(theDay))
		if !p.vertical() {
			p.frame.HeaderBounds = append(p.frame.HeaderBounds, HeaderBound{X: x + (wd+1)*width/7, Y: y, H: height})
		}
		maxDY = max(maxDY, s.H)
	}
	return maxDY
}

func (p *pass) paintWeekly(day time.Time, x, y, width, height float64) (Size, error) {
	first := timeutil.FirstDayOfWeek(day, p.opts.WeekStart)
	pc := p.opts.PeriodCount
	n := float64(pc)

	var minWidth, minHeight float64

	if p.vertical() {
		x += LeftColumnSize
		width -= LeftColumnSize
	}

	var maxDY float64
	if p.opts.DrawHeaders {
		theDay := day
		for idx := 0; idx < pc; idx++ {
			maxDY = max(maxDY, p.paintWeeklyHeaders(theDay, x+width/n*float64(idx), y, width/n, height))
			theDay = timeutil.AddDays(theDay, 7)
		}
	}

	if p.vertical() {
		x -= LeftColumnSize
		width += LeftColumnSize
	}

	minHeight += maxDY
	y += maxDY
	height -= maxDY

	if p.vertical() {
		hours := p.d.DrawHours(Rect{X: x, Y: y, W: width, H: height}, p.opts.Style, p.hours, true)
		minWidth += hours.W
		x += hours.W
		width -= hours.W

		weekStart := first
		dayW := width / 7 / n
		for idx := 0; idx < pc; idx++ {
			for weekday := 0; weekday < 7; weekday++ {
				theDay := timeutil.AddDays(weekStart, weekday)
				col := float64(weekday + 7*idx)
				if _, err := p.paintDay(theDay, x+col*dayW, y, dayW, height); err != nil {
					return Size{}, err
				}
			}
			weekStart = timeutil.AddDays(weekStart, 7)
		}

		return Size{
			W: max(WeekSizeMin.W*n+LeftColumnSize, width),
			H: max(WeekSizeMin.H, height),
		}, nil
	}

	s, err := p.paintPeriod(first, 7*pc, x, y, width, height)
	if err != nil {
		return Size{}, err
	}
	minWidth += s.W
	minHeight += s.H
	return Size{W: max(p.opts.PeriodWidth*n+LeftColumnSize, minWidth), H: minHeight}, nil
}

func (p *pass) paintMonthlyHeaders(day time.Time, x, y, width, height float64) Size {
	s := p.d.DrawMonthHeader(day, Rect{X: x, Y: y, W: width, H: height})

	if !p.vertical() {
		first := timeutil.FirstOfMonth(day)
		count := timeutil.DaysInMonth(day)
		n := float64(count)

		var maxDY float64
		for idx := 0; idx < count; idx++ {
			theDay := timeutil.AddDays(first, idx)
			i := float64(idx)
			ds := p.d.DrawSimpleDayHeader(theDay, Rect{X: x + i*width/n, Y: y + s.H, W: width / n, H: height}, p.highlightFor(theDay))
			p.frame.HeaderBounds = append(p.frame.HeaderBounds, HeaderBound{X: x + (i+1)*width/n, Y: y + s.H, H: height})
			maxDY = max(maxDY, ds.H)
		}
		s.H += maxDY
	}
	return s
}

func (p *pass) paintMonthly(day time.Time, x, y, width, height float64) (Size, error) {
	header := Size{W: width}
	if p.opts.DrawHeaders {
		header = p.paintMonthlyHeaders(day, x, y, width, height)
	}
	y += header.H
	height -= header.H

	if !p.vertical() {
		first := timeutil.FirstOfMonth(day)
		s, err := p.paintPeriod(first, timeutil.DaysInMonth(day), x, y, width, height)
		if err != nil {
			return Size{}, err
		}
		return Size{W: s.W, H: header.H + s.H}, nil
	}

	weeks := timeutil.MonthCalendar(day.Year(), day.Month(), p.opts.WeekStart)
	cellW := width / 7
	cellH := height / float64(len(weeks))

	for w, week := range weeks {
		for d, monthDay := range week {
			cell := Rect{X: x + float64(d)*cellW, Y: y + float64(w)*cellH, W: cellW, H: cellH}

			if monthDay == 0 {
				p.d.DrawSchedulesCompact(time.Time{}, nil, cell, nil)
				continue
			}

			theDay := time.Date(day.Year(), day.Month(), monthDay, 0, 0, 0, 0, day.Location())
			schedules := SchedulesInPeriod(p.schedules, theDay, timeutil.AddDays(theDay, 1))

			p.frame.Cells = append(p.frame.Cells, CellCoord{Time: theDay, Min: cell.Min(), Max: cell.Max()})

			displayed := p.d.DrawSchedulesCompact(theDay, schedules, cell, p.highlightFor(theDay))
			p.frame.Schedules = append(p.frame.Schedules, displayed...)
			if p.screen() {
				for _, c := range displayed {
					p.frame.Pages[c.Schedule.Root().ID] = 1
				}
			}

			shown := make(map[*model.Schedule]bool, len(displayed))
			for _, c := range displayed {
				shown[c.Schedule] = true
			}
			for _, s := range schedules {
				if !shown[s] {
					release(p.d, s)
				}
			}
		}
	}

	return Size{
		W: max(MonthCellSizeMin.W*7, width),
		H: max(MonthCellSizeMin.H*float64(len(weeks)), height),
	}, nil
}
