package report

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/drawer"
	"schedview/internal/layout"
	"schedview/internal/model"
	"schedview/internal/scheduler"
)

var day = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

func source(t *testing.T, n int) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(
		scheduler.WithClock(func() time.Time { return day }),
		scheduler.WithDate(day),
		scheduler.WithViewType(layout.ViewDaily),
		scheduler.WithStyle(layout.StyleHorizontal),
	)
	require.NoError(t, err)

	var list []*model.Schedule
	for i := 0; i < n; i++ {
		sc := model.NewSchedule(day.Add(9*time.Hour), day.Add(11*time.Hour))
		sc.Description = "standup"
		list = append(list, sc)
	}
	require.NoError(t, s.AddAll(list))
	return s
}

func TestPagesPartitionSchedules(t *testing.T) {
	src := source(t, 10)
	p, err := New(src, layout.Size{W: 600, H: 200})
	require.NoError(t, err)
	require.Greater(t, p.Pages(), 1)

	lo, hi, from, to := p.PageInfo()
	assert.Equal(t, 1, lo)
	assert.Equal(t, p.Pages(), hi)
	assert.Equal(t, 1, from)
	assert.Equal(t, p.Pages(), to)

	seen := make(map[uuid.UUID]int)
	for n := 1; n <= p.Pages(); n++ {
		r := drawer.NewRaster(600, 200, model.DefaultPalette())
		f, err := p.PrintPage(n, r)
		require.NoError(t, err)

		for _, c := range f.Schedules {
			orig := c.Schedule.Root()
			seen[orig.ID]++
			pg, ok := p.PageOf(orig)
			require.True(t, ok)
			assert.Equal(t, n, pg)
		}
		f.Release(r)
		assert.Equal(t, 0, r.Retained())
	}

	assert.Len(t, seen, 10)
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestSinglePage(t *testing.T) {
	p, err := New(source(t, 2), layout.Size{W: 600, H: 800})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Pages())
	assert.True(t, p.HasPage(1))
	assert.False(t, p.HasPage(2))
	assert.False(t, p.HasPage(0))
}

func TestPrintPageErrors(t *testing.T) {
	p, err := New(source(t, 1), layout.Size{W: 600, H: 800})
	require.NoError(t, err)

	_, err = p.PrintPage(3, drawer.NewBase(model.DefaultPalette()))
	assert.ErrorIs(t, err, ErrNoSuchPage)

	_, err = New(source(t, 1), layout.Size{})
	assert.ErrorIs(t, err, ErrEmptySurface)
}

func TestSnapshotIgnoresLaterEdits(t *testing.T) {
	src := source(t, 3)
	p, err := New(src, layout.Size{W: 600, H: 800})
	require.NoError(t, err)

	require.NoError(t, src.DeleteAll())
	f, err := p.PrintPage(1, drawer.NewBase(model.DefaultPalette()))
	require.NoError(t, err)
	assert.Len(t, f.Schedules, 3)
}

func TestWritePNG(t *testing.T) {
	p, err := New(source(t, 3), layout.Size{W: 600, H: 800})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WritePNG(&buf, 1, model.DefaultPalette(), true))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 800), img.Bounds())

	assert.ErrorIs(t, p.WritePNG(&bytes.Buffer{}, 2, model.DefaultPalette(), false), ErrNoSuchPage)
}

func TestPlanes(t *testing.T) {
	p, err := New(source(t, 3), layout.Size{W: 600, H: 800})
	require.NoError(t, err)

	black, red, err := p.Planes(1, model.DefaultPalette())
	require.NoError(t, err)
	assert.Len(t, black, 75*800)
	assert.Len(t, red, 75*800)
	assert.Contains(t, black, byte(0xff))
	assert.NotEqual(t, bytes.Repeat([]byte{0xff}, len(black)), black, "text is inked")
}
