package model

import (
	"image/color"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Schedule is a time-ranged appointment with display metadata.
//
// Originals are owned by a scheduler. Clones are transient copies produced
// for a single layout pass; they carry a back-reference to the original that
// owns the true identity, and get their own ID so the two are never confused.
type Schedule struct {
	ID uuid.UUID

	// Start / End carry full date and time; a span may cross midnight.
	Start time.Time
	End   time.Time

	Description string
	Notes       string
	Category    string

	// Color and Foreground override the palette when non-zero.
	Color      color.NRGBA
	Foreground color.NRGBA

	Done bool
	// Complete is the optional fractional completion in [0, 1].
	Complete *float64

	Icons []string

	original *Schedule
	released bool

	listeners   map[int]func(*Schedule)
	nextListen  int
	updateDepth int
	pending     bool
}

// NewSchedule creates a schedule with a fresh identity.
func NewSchedule(start, end time.Time) *Schedule {
	return &Schedule{
		ID:    uuid.New(),
		Start: start,
		End:   end,
	}
}

// Valid reports whether the span is well-formed (start <= end).
func (s *Schedule) Valid() bool {
	return !s.Start.After(s.End)
}

// Duration is the wall-clock length of the span.
func (s *Schedule) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SetComplete stores v clamped to [0, 1].
func (s *Schedule) SetComplete(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.Complete = &v
}

// Clone returns an independent copy with a new ID whose Original points to
// the schedule owning the true identity. Listeners are not copied.
func (s *Schedule) Clone() *Schedule {
	c := &Schedule{
		ID:          uuid.New(),
		Start:       s.Start,
		End:         s.End,
		Description: s.Description,
		Notes:       s.Notes,
		Category:    s.Category,
		Color:       s.Color,
		Foreground:  s.Foreground,
		Done:        s.Done,
		Icons:       slices.Clone(s.Icons),
		original:    s.Root(),
	}
	if s.Complete != nil {
		v := *s.Complete
		c.Complete = &v
	}
	return c
}

// Original returns the schedule this clone was made from, or nil for
// originals and released clones.
func (s *Schedule) Original() *Schedule {
	return s.original
}

// Root returns the original for a clone and the receiver otherwise.
func (s *Schedule) Root() *Schedule {
	if s.original != nil {
		return s.original
	}
	return s
}

// IsClone reports whether s was produced by Clone and not yet released.
func (s *Schedule) IsClone() bool {
	return s.original != nil
}

// Release ends a clone's life: the back-reference is dropped so the clone
// can no longer resolve to its original. No-op for originals.
func (s *Schedule) Release() {
	if s.original == nil {
		return
	}
	s.original = nil
	s.released = true
}

// Released reports whether Release was called on this clone.
func (s *Schedule) Released() bool {
	return s.released
}

// ColorFor returns the explicit Color or the palette entry for Category.
func (s *Schedule) ColorFor(p CategoryPalette) color.NRGBA {
	if s.Color != (color.NRGBA{}) {
		return s.Color
	}
	return p.Lookup(s.Category)
}

// ForegroundFor returns the explicit Foreground or the palette text color.
func (s *Schedule) ForegroundFor(p CategoryPalette) color.NRGBA {
	if s.Foreground != (color.NRGBA{}) {
		return s.Foreground
	}
	return p.Text
}
