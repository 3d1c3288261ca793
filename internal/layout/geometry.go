// Package layout turns schedules and a view window into drawable geometry:
// working-hours projection, period clipping, collision lanes, pagination and
// hit testing. Pixel output goes through the Drawer interface.
package layout

import (
	"fmt"
	"strings"
)

// ViewType selects the displayed period unit.
type ViewType int

const (
	ViewDaily   ViewType = 1
	ViewWeekly  ViewType = 2
	ViewMonthly ViewType = 3
)

func (v ViewType) Valid() bool {
	return v == ViewDaily || v == ViewWeekly || v == ViewMonthly
}

func (v ViewType) String() string {
	switch v {
	case ViewDaily:
		return "daily"
	case ViewWeekly:
		return "weekly"
	case ViewMonthly:
		return "monthly"
	default:
		return fmt.Sprintf("ViewType(%d)", int(v))
	}
}

// ParseViewType accepts "daily", "weekly" or "monthly".
func ParseViewType(s string) (ViewType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return ViewDaily, nil
	case "weekly", "week":
		return ViewWeekly, nil
	case "monthly", "month":
		return ViewMonthly, nil
	default:
		return 0, fmt.Errorf("layout: unknown view type %q", s)
	}
}

// Style is the rendering orientation.
type Style int

const (
	// StyleHorizontal puts time on X and stacks lanes along Y.
	StyleHorizontal Style = 1
	// StyleVertical puts time on Y and days/lanes along X.
	StyleVertical Style = 2
)

func (s Style) Valid() bool {
	return s == StyleHorizontal || s == StyleVertical
}

func (s Style) String() string {
	switch s {
	case StyleHorizontal:
		return "horizontal"
	case StyleVertical:
		return "vertical"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// ParseStyle accepts "vertical" or "horizontal".
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical":
		return StyleVertical, nil
	case "horizontal":
		return StyleHorizontal, nil
	default:
		return 0, fmt.Errorf("layout: unknown style %q", s)
	}
}

type Point struct {
	X, Y float64
}

type Size struct {
	W, H float64
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Min() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) Max() Point { return Point{X: r.X + r.W, Y: r.Y + r.H} }

// Contains is inclusive on every edge.
func (r Rect) Contains(p Point) bool {
	return r.X <= p.X && p.X <= r.X+r.W && r.Y <= p.Y && p.Y <= r.Y+r.H
}

// Minimum sizes and margins, in pixels.
const (
	LeftColumnSize        = 35
	HeaderColumnSize      = 20
	ScheduleInsideMargin  = 5
	ScheduleOutsideMargin = 2
	ScheduleMaxHeight     = 80

	// PageMargin is subtracted from the surface height to get the default
	// page budget.
	PageMargin = 20
	// MinPeriodWidth bounds header-drag resizing.
	MinPeriodWidth = 50
)

var (
	DaySizeMin       = Size{W: 400, H: 400}
	WeekSizeMin      = Size{W: 980, H: 400}
	MonthCellSizeMin = Size{W: 100, H: 100}
)
