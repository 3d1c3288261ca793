// Package drawer provides the layout.Drawer implementations: Base computes
// geometry from font metrics only, Raster also paints into an image.
package drawer

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"schedview/internal/layout"
	"schedview/internal/model"
)

// Base is a geometry-only drawer. It sizes headers and schedule boxes from
// the metrics of a fixed bitmap face and paints nothing.
type Base struct {
	Face    font.Face
	Palette model.CategoryPalette
}

func NewBase(palette model.CategoryPalette) *Base {
	return &Base{Face: basicfont.Face7x13, Palette: palette}
}

// LineHeight is the height of one text line.
func (b *Base) LineHeight() float64 {
	return float64(b.Face.Metrics().Height.Ceil())
}

// TextWidth is the advance of s in the drawer's face.
func (b *Base) TextWidth(s string) float64 {
	return float64(font.MeasureString(b.Face, s).Ceil())
}

func (b *Base) headerHeight() float64 {
	return max(layout.HeaderColumnSize, b.LineHeight()+2*layout.ScheduleOutsideMargin)
}

func (b *Base) DrawDayHeader(day time.Time, r layout.Rect, highlight color.Color) layout.Size {
	return layout.Size{W: r.W, H: b.headerHeight()}
}

func (b *Base) DrawMonthHeader(day time.Time, r layout.Rect) layout.Size {
	return layout.Size{W: r.W, H: b.headerHeight()}
}

func (b *Base) DrawSimpleDayHeader(day time.Time, r layout.Rect, highlight color.Color) layout.Size {
	return layout.Size{W: r.W, H: b.LineHeight() + 2*layout.ScheduleOutsideMargin}
}

func (b *Base) DrawHours(r layout.Rect, style layout.Style, hours []time.Duration, includeText bool) layout.Size {
	if style == layout.StyleVertical {
		return layout.Size{W: layout.LeftColumnSize, H: r.H}
	}
	if !includeText {
		return layout.Size{W: r.W}
	}
	return layout.Size{W: r.W, H: b.LineHeight() + 2*layout.ScheduleOutsideMargin}
}

func (b *Base) DrawDayBackground(r layout.Rect, highlight color.Color) {}

// DrawScheduleVertical places s in its lane: the time axis runs down r.
func (b *Base) DrawScheduleVertical(s *model.Schedule, day time.Time, mask layout.Mask, r layout.Rect) (layout.Rect, error) {
	ext, err := layout.Project(s.Start, s.End, mask, day, 1, r.H)
	if err != nil {
		return layout.Rect{}, err
	}
	return layout.Rect{
		X: r.X + layout.ScheduleOutsideMargin,
		Y: r.Y + ext.Offset,
		W: max(0, r.W-2*layout.ScheduleOutsideMargin),
		H: ext.Size,
	}, nil
}

// DrawScheduleHorizontal places s on a row: the time axis runs across r and
// the row is as tall as the schedule's text, capped at ScheduleMaxHeight.
func (b *Base) DrawScheduleHorizontal(s *model.Schedule, start time.Time, daysCount int, mask layout.Mask, r layout.Rect) (layout.Rect, error) {
	ext, err := layout.Project(s.Start, s.End, mask, start, daysCount, r.W)
	if err != nil {
		return layout.Rect{}, err
	}
	return layout.Rect{
		X: r.X + ext.Offset,
		Y: r.Y,
		W: ext.Size,
		H: b.rowHeight(s),
	}, nil
}

func (b *Base) rowHeight(s *model.Schedule) float64 {
	lines := float64(len(scheduleLines(s)))
	h := lines*b.LineHeight() + 2*layout.ScheduleInsideMargin + 2*layout.ScheduleOutsideMargin
	return min(h, layout.ScheduleMaxHeight)
}

// CompactCapacity is how many entries fit in a month cell below its day
// number.
func (b *Base) CompactCapacity(r layout.Rect) int {
	lh := b.LineHeight()
	n := int((r.H - 3*layout.ScheduleInsideMargin - lh) / lh)
	return max(n, 0)
}

// DrawSchedulesCompact lays out one line per schedule under the day number.
// When the cell overflows, the last line is kept for a "+N" marker and the
// schedules past it are left out of the result.
func (b *Base) DrawSchedulesCompact(day time.Time, schedules []*model.Schedule, r layout.Rect, highlight color.Color) []layout.ScheduleCoord {
	if day.IsZero() {
		return nil
	}
	shown := len(schedules)
	if capacity := b.CompactCapacity(r); shown > capacity {
		shown = max(capacity-1, 0)
	}

	lh := b.LineHeight()
	top := r.Y + 2*layout.ScheduleInsideMargin + lh
	out := make([]layout.ScheduleCoord, 0, shown)
	for i, s := range schedules[:shown] {
		y := top + float64(i)*lh
		out = append(out, layout.ScheduleCoord{
			Schedule: s,
			Min:      layout.Point{X: r.X + layout.ScheduleOutsideMargin, Y: y},
			Max:      layout.Point{X: r.X + r.W - layout.ScheduleOutsideMargin, Y: y + lh},
		})
	}
	return out
}

// scheduleLines is the text shown in a schedule box: icons and
// description, then notes when present.
func scheduleLines(s *model.Schedule) []string {
	head := s.Description
	if len(s.Icons) > 0 {
		head = "[" + strings.Join(s.Icons, ",") + "] " + head
	}
	lines := []string{head}
	if s.Notes != "" {
		lines = append(lines, strings.SplitN(s.Notes, "\n", 2)[0])
	}
	return lines
}

// Kind names a drawer implementation in configuration.
const (
	KindBase   = "base"
	KindRaster = "raster"
)

// New returns the drawer named by kind. surface is the raster canvas size
// and is ignored by the base drawer.
func New(kind string, surface layout.Size, palette model.CategoryPalette) (layout.Drawer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindBase:
		return NewBase(palette), nil
	case KindRaster:
		return NewRaster(int(surface.W), int(surface.H), palette), nil
	default:
		return nil, fmt.Errorf("drawer: unknown kind %q", kind)
	}
}
