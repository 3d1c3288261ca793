package model

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIdentity(t *testing.T) {
	start := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	s := NewSchedule(start, start.Add(time.Hour))
	s.Description = "standup"
	s.Icons = []string{"phone"}
	s.SetComplete(0.5)

	c := s.Clone()
	require.NotNil(t, c)
	assert.NotEqual(t, s.ID, c.ID)
	assert.Same(t, s, c.Original())
	assert.Same(t, s, c.Root())
	assert.True(t, c.IsClone())
	assert.False(t, s.IsClone())

	c.Icons[0] = "mail"
	*c.Complete = 1
	assert.Equal(t, "phone", s.Icons[0])
	assert.Equal(t, 0.5, *s.Complete)

	// A clone of a clone still points at the true original.
	cc := c.Clone()
	assert.Same(t, s, cc.Original())

	c.Release()
	assert.Nil(t, c.Original())
	assert.True(t, c.Released())
	assert.Same(t, c, c.Root())

	s.Release()
	assert.False(t, s.Released())
}

func TestSetCompleteClamps(t *testing.T) {
	s := NewSchedule(time.Time{}, time.Time{})
	s.SetComplete(1.7)
	assert.Equal(t, 1.0, *s.Complete)
	s.SetComplete(-3)
	assert.Equal(t, 0.0, *s.Complete)
}

func TestUpdateNotifiesOnce(t *testing.T) {
	s := NewSchedule(time.Time{}, time.Time{})
	calls := 0
	cancel := s.Subscribe(func(*Schedule) { calls++ })

	outer := s.BeginUpdate()
	s.Description = "a"
	s.Update(func(s *Schedule) { s.Notes = "b" })
	s.Touch()
	assert.Equal(t, 0, calls)
	outer.End()
	outer.End()
	assert.Equal(t, 1, calls)

	s.Touch()
	assert.Equal(t, 2, calls)

	cancel()
	s.Touch()
	assert.Equal(t, 2, calls)
}

func TestPalette(t *testing.T) {
	p := DefaultPalette()
	s := NewSchedule(time.Time{}, time.Time{})
	s.Category = "Work"
	assert.Equal(t, p.Colors["Work"], s.ColorFor(p))

	s.Category = "unknown"
	assert.Equal(t, p.Default, s.ColorFor(p))

	s.Color = color.NRGBA{R: 1, G: 2, B: 3, A: 255}
	assert.Equal(t, s.Color, s.ColorFor(p))
	assert.Equal(t, p.Text, s.ForegroundFor(p))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#102030")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, c)
	assert.Equal(t, "#102030", HexColor(c))

	c, err = ParseHexColor("10203040")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x40), c.A)
	assert.Equal(t, "#10203040", HexColor(c))

	_, err = ParseHexColor("#12")
	assert.Error(t, err)
	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}
