package drawer

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"schedview/internal/layout"
	"schedview/internal/model"
)

var (
	colorBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorGrid       = color.NRGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	colorHeader     = color.NRGBA{R: 0xe8, G: 0xe8, B: 0xe8, A: 0xff}
	colorText       = color.NRGBA{A: 0xff}
	colorProgress   = color.NRGBA{R: 0x30, G: 0x80, B: 0x30, A: 0xff}
)

// Raster paints onto an in-memory NRGBA image using Base for geometry.
type Raster struct {
	*Base

	// Mono quantizes the image to black/red/white when encoding.
	Mono bool

	img *image.NRGBA
	// labels holds the rendered text of every clone drawn and not yet
	// released.
	labels map[*model.Schedule]string
}

func NewRaster(width, height int, palette model.CategoryPalette) *Raster {
	r := &Raster{
		Base:   NewBase(palette),
		labels: make(map[*model.Schedule]string),
	}
	r.Reset(layout.Size{W: float64(width), H: float64(height)})
	return r
}

// Reset clears the canvas, resizing it when size differs.
func (r *Raster) Reset(size layout.Size) {
	w, h := max(int(size.W), 1), max(int(size.H), 1)
	if r.img == nil || r.img.Bounds().Dx() != w || r.img.Bounds().Dy() != h {
		r.img = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)
}

func (r *Raster) Image() *image.NRGBA {
	return r.img
}

// EncodePNG writes the canvas as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if r.Mono {
		return png.Encode(w, Quantize(r.img))
	}
	return png.Encode(w, r.img)
}

// ReleaseSchedule drops what was retained for a released clone.
func (r *Raster) ReleaseSchedule(s *model.Schedule) {
	delete(r.labels, s)
}

// Retained is the number of drawn clones still holding resources.
func (r *Raster) Retained() int {
	return len(r.labels)
}

func (r *Raster) DrawDayHeader(day time.Time, rect layout.Rect, highlight color.Color) layout.Size {
	s := r.Base.DrawDayHeader(day, rect, highlight)
	r.header(layout.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: s.H}, day.Format("Mon Jan 2"), highlight)
	return s
}

func (r *Raster) DrawMonthHeader(day time.Time, rect layout.Rect) layout.Size {
	s := r.Base.DrawMonthHeader(day, rect)
	r.header(layout.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: s.H}, day.Format("January 2006"), nil)
	return s
}

func (r *Raster) DrawSimpleDayHeader(day time.Time, rect layout.Rect, highlight color.Color) layout.Size {
	s := r.Base.DrawSimpleDayHeader(day, rect, highlight)
	r.header(layout.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: s.H}, strconv.Itoa(day.Day()), highlight)
	return s
}

func (r *Raster) header(rect layout.Rect, label string, highlight color.Color) {
	fill := color.Color(colorHeader)
	if highlight != nil {
		fill = highlight
	}
	r.fill(rect, fill)
	r.stroke(rect, colorGrid)
	x := rect.X + max(layout.ScheduleOutsideMargin, (rect.W-r.TextWidth(label))/2)
	r.text(x, rect.Y+layout.ScheduleOutsideMargin, label, colorText, rect)
}

func (r *Raster) DrawHours(rect layout.Rect, style layout.Style, hours []time.Duration, includeText bool) layout.Size {
	s := r.Base.DrawHours(rect, style, hours, includeText)
	n := float64(len(hours))
	if n == 0 {
		return s
	}

	for i, h := range hours {
		fi := float64(i)
		if style == layout.StyleVertical {
			y := rect.Y + rect.H*fi/n
			r.fill(layout.Rect{X: rect.X, Y: y, W: rect.W, H: 1}, colorGrid)
			if includeText && h%time.Hour == 0 {
				r.text(rect.X+layout.ScheduleOutsideMargin, y+1, hourLabel(h), colorText,
					layout.Rect{X: rect.X, Y: y, W: layout.LeftColumnSize, H: rect.H / n})
			}
			continue
		}
		x := rect.X + rect.W*fi/n
		r.fill(layout.Rect{X: x, Y: rect.Y, W: 1, H: s.H}, colorGrid)
		if includeText && h%time.Hour == 0 {
			r.text(x+layout.ScheduleOutsideMargin, rect.Y+layout.ScheduleOutsideMargin, hourLabel(h), colorText,
				layout.Rect{X: x, Y: rect.Y, W: 2 * rect.W / n, H: s.H})
		}
	}
	return s
}

func hourLabel(h time.Duration) string {
	return strconv.Itoa(int(h/time.Hour)) + "h"
}

func (r *Raster) DrawDayBackground(rect layout.Rect, highlight color.Color) {
	fill := color.Color(colorBackground)
	if highlight != nil {
		fill = highlight
	}
	r.fill(rect, fill)
	r.stroke(rect, colorGrid)
}

func (r *Raster) DrawScheduleVertical(s *model.Schedule, day time.Time, mask layout.Mask, rect layout.Rect) (layout.Rect, error) {
	box, err := r.Base.DrawScheduleVertical(s, day, mask, rect)
	if err != nil {
		return layout.Rect{}, err
	}
	r.schedule(s, box)
	return box, nil
}

func (r *Raster) DrawScheduleHorizontal(s *model.Schedule, start time.Time, daysCount int, mask layout.Mask, rect layout.Rect) (layout.Rect, error) {
	box, err := r.Base.DrawScheduleHorizontal(s, start, daysCount, mask, rect)
	if err != nil {
		return layout.Rect{}, err
	}
	r.schedule(s, layout.Rect{
		X: box.X,
		Y: box.Y + layout.ScheduleOutsideMargin,
		W: box.W,
		H: box.H - 2*layout.ScheduleOutsideMargin,
	})
	return box, nil
}

func (r *Raster) schedule(s *model.Schedule, box layout.Rect) {
	if box.W <= 0 || box.H <= 0 {
		return
	}
	r.fill(box, s.ColorFor(r.Palette))
	r.stroke(box, colorGrid)

	fg := s.ForegroundFor(r.Palette)
	lines := scheduleLines(s)
	lh := r.LineHeight()
	for i, line := range lines {
		y := box.Y + layout.ScheduleInsideMargin + float64(i)*lh
		r.text(box.X+layout.ScheduleInsideMargin, y, line, fg, box)
		if i == 0 && s.Done {
			w := min(r.TextWidth(line), box.W-2*layout.ScheduleInsideMargin)
			r.fill(layout.Rect{X: box.X + layout.ScheduleInsideMargin, Y: y + lh/2, W: w, H: 1}, fg)
		}
	}

	if s.Complete != nil {
		r.fill(layout.Rect{X: box.X, Y: box.Y + box.H - 3, W: box.W * *s.Complete, H: 3}, colorProgress)
	}
	if s.IsClone() {
		r.labels[s] = lines[0]
	}
}

func (r *Raster) DrawSchedulesCompact(day time.Time, schedules []*model.Schedule, rect layout.Rect, highlight color.Color) []layout.ScheduleCoord {
	r.DrawDayBackground(rect, highlight)
	if day.IsZero() {
		return nil
	}
	r.text(rect.X+layout.ScheduleInsideMargin, rect.Y+layout.ScheduleInsideMargin, strconv.Itoa(day.Day()), colorText, rect)

	shown := r.Base.DrawSchedulesCompact(day, schedules, rect, highlight)
	for _, c := range shown {
		b := c.Bounds()
		r.fill(layout.Rect{X: b.X, Y: b.Y + 2, W: 4, H: b.H - 4}, c.Schedule.ColorFor(r.Palette))
		r.text(b.X+6, b.Y, c.Schedule.Description, colorText, b)
		if c.Schedule.IsClone() {
			r.labels[c.Schedule] = c.Schedule.Description
		}
	}

	if hidden := len(schedules) - len(shown); hidden > 0 {
		lh := r.LineHeight()
		y := rect.Y + 2*layout.ScheduleInsideMargin + lh + float64(len(shown))*lh
		r.text(rect.X+layout.ScheduleOutsideMargin, y, "+"+strconv.Itoa(hidden), colorText, rect)
	}
	return shown
}

func (r *Raster) fill(rect layout.Rect, c color.Color) {
	draw.Draw(r.img, pixRect(rect), image.NewUniform(c), image.Point{}, draw.Over)
}

func (r *Raster) stroke(rect layout.Rect, c color.Color) {
	r.fill(layout.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: 1}, c)
	r.fill(layout.Rect{X: rect.X, Y: rect.Y + rect.H - 1, W: rect.W, H: 1}, c)
	r.fill(layout.Rect{X: rect.X, Y: rect.Y, W: 1, H: rect.H}, c)
	r.fill(layout.Rect{X: rect.X + rect.W - 1, Y: rect.Y, W: 1, H: rect.H}, c)
}

// text draws s with its top-left corner at (x, y), clipped to clip.
func (r *Raster) text(x, y float64, s string, c color.Color, clip layout.Rect) {
	dst, ok := r.img.SubImage(pixRect(clip)).(*image.NRGBA)
	if !ok || dst.Bounds().Empty() {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.Face,
		Dot:  fixed.P(int(x), int(y)+r.Face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func pixRect(r layout.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)),
		int(math.Ceil(r.Y+r.H)),
	)
}
