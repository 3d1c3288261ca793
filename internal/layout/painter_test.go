package layout

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/model"
	"schedview/internal/timeutil"
)

const fakeRowHeight = 30

// fakeDrawer lays schedules out with Project and records what it was given.
type fakeDrawer struct {
	released    []*model.Schedule
	backgrounds int
	compactMax  int
	failOn      string
}

func (d *fakeDrawer) DrawDayHeader(day time.Time, r Rect, highlight color.Color) Size {
	return Size{W: r.W, H: 20}
}

func (d *fakeDrawer) DrawMonthHeader(day time.Time, r Rect) Size {
	return Size{W: r.W, H: 25}
}

func (d *fakeDrawer) DrawSimpleDayHeader(day time.Time, r Rect, highlight color.Color) Size {
	return Size{W: r.W, H: 15}
}

func (d *fakeDrawer) DrawHours(r Rect, style Style, hours []time.Duration, includeText bool) Size {
	if style == StyleVertical {
		return Size{W: LeftColumnSize, H: r.H}
	}
	return Size{W: r.W, H: 15}
}

func (d *fakeDrawer) DrawDayBackground(r Rect, highlight color.Color) {
	d.backgrounds++
}

func (d *fakeDrawer) DrawScheduleVertical(s *model.Schedule, day time.Time, mask Mask, r Rect) (Rect, error) {
	if s.Description == d.failOn {
		return Rect{}, errors.New("draw failed")
	}
	ext, err := Project(s.Start, s.End, mask, day, 1, r.H)
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: r.X, Y: r.Y + ext.Offset, W: r.W, H: ext.Size}, nil
}

func (d *fakeDrawer) DrawScheduleHorizontal(s *model.Schedule, start time.Time, daysCount int, mask Mask, r Rect) (Rect, error) {
	if s.Description == d.failOn {
		return Rect{}, errors.New("draw failed")
	}
	ext, err := Project(s.Start, s.End, mask, start, daysCount, r.W)
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: r.X + ext.Offset, Y: r.Y, W: ext.Size, H: fakeRowHeight}, nil
}

func (d *fakeDrawer) DrawSchedulesCompact(day time.Time, schedules []*model.Schedule, r Rect, highlight color.Color) []ScheduleCoord {
	var out []ScheduleCoord
	for i, s := range schedules {
		if i >= d.compactMax {
			break
		}
		y := r.Y + float64(i)*10
		out = append(out, ScheduleCoord{Schedule: s, Min: Point{X: r.X, Y: y}, Max: Point{X: r.X + r.W, Y: y + 10}})
	}
	return out
}

func (d *fakeDrawer) ReleaseSchedule(s *model.Schedule) {
	d.released = append(d.released, s)
}

func baseOptions(view ViewType, style Style) Options {
	return Options{
		View:              view,
		Style:             style,
		PeriodCount:       1,
		ShowOnlyWorkHours: true,
		WorkHours:         DefaultWorkHours(),
		PeriodWidth:       400,
		DrawHeaders:       true,
		Now:               func() time.Time { return testDay },
	}
}

func coords(f *Frame) []Rect {
	var out []Rect
	for _, c := range f.Schedules {
		out = append(out, c.Bounds())
	}
	return out
}

func TestPaintIdempotent(t *testing.T) {
	schedules := []*model.Schedule{span(9, 11, "a"), span(10, 12, "b"), span(15, 16, "c")}
	p := NewPainter(baseOptions(ViewDaily, StyleVertical))
	bounds := Rect{W: 800, H: 600}

	first, err := p.Paint(&fakeDrawer{}, schedules, testDay, bounds)
	require.NoError(t, err)
	second, err := p.Paint(&fakeDrawer{}, schedules, testDay, bounds)
	require.NoError(t, err)

	assert.Equal(t, coords(first), coords(second))
	assert.Equal(t, first.Cells, second.Cells)
	assert.Equal(t, first.Pages, second.Pages)
}

func TestPaintVerticalLanes(t *testing.T) {
	a, b, c := span(9, 11, "a"), span(10, 12, "b"), span(15, 16, "c")
	p := NewPainter(baseOptions(ViewDaily, StyleVertical))

	f, err := p.Paint(&fakeDrawer{}, []*model.Schedule{a, b, c}, testDay, Rect{W: 835, H: 600})
	require.NoError(t, err)
	require.Len(t, f.Schedules, 3)

	ra, rb, rc := f.BoundsOf(a), f.BoundsOf(b), f.BoundsOf(c)
	require.Len(t, ra, 1)
	require.Len(t, rb, 1)
	require.Len(t, rc, 1)

	// a and b share the column side by side; c has it alone.
	assert.InDelta(t, ra[0].W, rb[0].W, 1e-9)
	assert.InDelta(t, rc[0].W, 2*ra[0].W, 1e-9)
	assert.InDelta(t, ra[0].X+ra[0].W, rb[0].X, 1e-9)
	assert.Less(t, ra[0].Y, rb[0].Y)

	for _, pg := range f.Pages {
		assert.Equal(t, 1, pg)
	}
	assert.Equal(t, 1, f.PageCount)
}

func TestPaintHitTest(t *testing.T) {
	a := span(9, 11, "a")
	p := NewPainter(baseOptions(ViewDaily, StyleVertical))

	f, err := p.Paint(&fakeDrawer{}, []*model.Schedule{a}, testDay, Rect{W: 835, H: 600})
	require.NoError(t, err)

	r := f.BoundsOf(a)
	require.Len(t, r, 1)
	hit := f.Find(Point{X: r[0].X + r[0].W/2, Y: r[0].Y + r[0].H/2})
	require.True(t, hit.IsSchedule())
	assert.Same(t, a, hit.Schedule)

	// Below a, inside the day column: a time cell of the same day.
	hit = f.Find(Point{X: r[0].X + 1, Y: r[0].Y + r[0].H + 40})
	require.True(t, hit.IsTime())
	assert.True(t, hit.Time.After(a.End) || hit.Time.Equal(a.End))
	assert.True(t, hit.Time.Before(testDay.AddDate(0, 0, 1)))

	assert.True(t, f.Find(Point{X: -10, Y: -10}).Empty())
}

func TestPaintHorizontalPagination(t *testing.T) {
	var schedules []*model.Schedule
	for i := 0; i < 6; i++ {
		schedules = append(schedules, span(9, 10, string(rune('a'+i))))
	}
	opts := baseOptions(ViewDaily, StyleHorizontal)
	opts.PageHeight = 100
	p := NewPainter(opts)

	f, err := p.Paint(&fakeDrawer{}, schedules, testDay, Rect{W: 400, H: 1000})
	require.NoError(t, err)
	require.Len(t, f.Schedules, 6)
	assert.Greater(t, f.PageCount, 1)
	assert.Equal(t, 6*fakeRowHeight, int(f.Size.H)-35)

	// every original gets a page and pages never go down as rows go down
	last := 0
	for _, c := range f.Schedules {
		pg, ok := f.Pages[c.Schedule.Root().ID]
		require.True(t, ok)
		assert.GreaterOrEqual(t, pg, last)
		last = pg
	}

	// printing page 2 draws only its schedules and releases the rest
	printOpts := opts
	printOpts.PageNumber = 2
	printOpts.Pages = f.Pages
	d := &fakeDrawer{}
	pf, err := NewPainter(printOpts).Paint(d, schedules, testDay, Rect{W: 400, H: 1000})
	require.NoError(t, err)

	want := 0
	for _, pg := range f.Pages {
		if pg == 2 {
			want++
		}
	}
	require.Greater(t, want, 0)
	assert.Len(t, pf.Schedules, want)
	assert.Len(t, d.released, 6-want)
	for _, s := range d.released {
		assert.True(t, s.Released())
		assert.Nil(t, s.Original())
	}
}

func TestPaintWeeklyHorizontalHeaders(t *testing.T) {
	opts := baseOptions(ViewWeekly, StyleHorizontal)
	f, err := NewPainter(opts).Paint(&fakeDrawer{}, nil, testDay, Rect{W: 700, H: 400})
	require.NoError(t, err)
	assert.Len(t, f.HeaderBounds, 7)
	// one half-hour cell per displayed slot per day
	assert.Len(t, f.Cells, 7*18)
}

func TestPaintMonthlyCompactReleasesHidden(t *testing.T) {
	var schedules []*model.Schedule
	for i := 0; i < 4; i++ {
		schedules = append(schedules, span(9+i, 10+i, string(rune('a'+i))))
	}
	d := &fakeDrawer{compactMax: 2}
	f, err := NewPainter(baseOptions(ViewMonthly, StyleVertical)).Paint(d, schedules, testDay, Rect{W: 700, H: 600})
	require.NoError(t, err)

	assert.Len(t, f.Schedules, 2)
	assert.Len(t, d.released, 2)
	// March 2024 has 31 day cells
	assert.Len(t, f.Cells, 31)
	for _, c := range f.Schedules {
		assert.Equal(t, 1, f.Pages[c.Schedule.Root().ID])
	}
}

func TestPaintRejectsBadState(t *testing.T) {
	opts := baseOptions(ViewType(9), StyleVertical)
	_, err := NewPainter(opts).Paint(&fakeDrawer{}, nil, testDay, Rect{W: 100, H: 100})
	assert.ErrorIs(t, err, ErrInvalidViewType)

	opts = baseOptions(ViewDaily, Style(0))
	_, err = NewPainter(opts).Paint(&fakeDrawer{}, nil, testDay, Rect{W: 100, H: 100})
	assert.ErrorIs(t, err, ErrInvalidStyle)

	opts = baseOptions(ViewDaily, StyleVertical)
	opts.WorkHours = WorkHours{Start: 8 * time.Hour, PauseStart: 8 * time.Hour, PauseEnd: 8 * time.Hour, End: 8 * time.Hour}
	_, err = NewPainter(opts).Paint(&fakeDrawer{}, nil, testDay, Rect{W: 100, H: 100})
	assert.ErrorIs(t, err, ErrInvalidWorkHours)

	opts = baseOptions(ViewDaily, StyleVertical)
	opts.Strategy = Strategy(5)
	_, err = NewPainter(opts).Paint(&fakeDrawer{}, []*model.Schedule{span(9, 10, "a")}, testDay, Rect{W: 100, H: 100})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = NewPainter(baseOptions(ViewDaily, StyleVertical)).Paint(nil, nil, testDay, Rect{W: 100, H: 100})
	assert.ErrorIs(t, err, ErrNilDrawer)
}

func TestPaintWeeklyVerticalSundayStart(t *testing.T) {
	// Tuesday 17:00 to Wednesday 09:00 over two weeks starting on Sunday.
	overnight := model.NewSchedule(at(testDay, 17, 0), at(testDay.AddDate(0, 0, 1), 9, 0))
	overnight.Description = "overnight"

	opts := baseOptions(ViewWeekly, StyleVertical)
	opts.WeekStart = timeutil.WeekStartSunday
	opts.PeriodCount = 2
	f, err := NewPainter(opts).Paint(&fakeDrawer{}, []*model.Schedule{overnight}, testDay, Rect{W: 1500, H: 600})
	require.NoError(t, err)

	assert.Len(t, f.Cells, 14*18)
	days := make(map[time.Time]bool)
	first := f.Cells[0].Time
	for _, c := range f.Cells {
		day := timeutil.CopyDate(c.Time)
		days[day] = true
		if c.Time.Before(first) {
			first = c.Time
		}
	}
	assert.Len(t, days, 14)
	assert.Equal(t, time.Sunday, first.Weekday())
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), timeutil.CopyDate(first))

	// One clone per day, each in the column of its own day.
	rects := f.BoundsOf(overnight)
	require.Len(t, rects, 2)
	var drawnOn []time.Time
	for _, r := range rects {
		center := Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
		for _, c := range f.Cells {
			if c.Bounds().Contains(center) {
				drawnOn = append(drawnOn, timeutil.CopyDate(c.Time))
				break
			}
		}
	}
	assert.ElementsMatch(t, []time.Time{testDay, testDay.AddDate(0, 0, 1)}, drawnOn)
}

func TestPaintFailureReleasesClones(t *testing.T) {
	a, b := span(9, 10, "a"), span(11, 12, "boom")
	d := &fakeDrawer{failOn: "boom"}

	f, err := NewPainter(baseOptions(ViewDaily, StyleHorizontal)).Paint(d, []*model.Schedule{a, b}, testDay, Rect{W: 400, H: 400})
	require.Error(t, err)
	assert.Nil(t, f)
	require.NotEmpty(t, d.released)
	for _, s := range d.released {
		assert.True(t, s.Released())
	}
	assert.False(t, a.Released())
	assert.False(t, b.Released())
}
