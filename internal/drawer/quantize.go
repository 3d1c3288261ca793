package drawer

import (
	"image"
	"image/color"
)

// Ink palette of a tri-color e-paper panel. Index order matters: it is the
// pixel value written into the paletted image.
var InkPalette = color.Palette{
	color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	color.NRGBA{A: 0xff},
	color.NRGBA{R: 0xff, A: 0xff},
}

const (
	inkWhite uint8 = iota
	inkBlack
	inkRed
)

// Quantize reduces img to InkPalette. Transparent pixels become white.
func Quantize(img *image.NRGBA) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(b, InkPalette)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * img.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			i := row + (x-b.Min.X)*4
			c := color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
			out.SetColorIndex(x, y, classifyPixel(c))
		}
	}
	return out
}

// classifyPixel picks the ink for c:
//
//   - luma Y = 0.299R + 0.587G + 0.114B below 64 is black;
//   - R > 128 with R exceeding max(G, B) by more than 32 is red;
//   - everything else is white.
//
// Light fills and grid lines therefore come out white; text stays black.
func classifyPixel(c color.NRGBA) uint8 {
	if c.A < 128 {
		return inkWhite
	}
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	y := 0.299*r + 0.587*g + 0.114*b
	if y < 64 {
		return inkBlack
	}

	if r > 128 && r-max(g, b) > 32 {
		return inkRed
	}
	return inkWhite
}

// PackPlanes splits a quantized image into packed 1bpp black and red
// planes, y-major and MSB-first with (width+7)/8 bytes per row. A set bit
// is white; ink clears it.
func PackPlanes(img *image.Paletted) (black, red []byte) {
	b := img.Bounds()
	stride := (b.Dx() + 7) / 8
	black = make([]byte, stride*b.Dy())
	red = make([]byte, stride*b.Dy())
	for i := range black {
		black[i] = 0xff
		red[i] = 0xff
	}

	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			ink := img.ColorIndexAt(b.Min.X+px, b.Min.Y+py)
			if ink == inkWhite {
				continue
			}
			i := py*stride + px>>3
			mask := byte(0x80 >> (px & 7))
			switch ink {
			case inkBlack:
				black[i] &^= mask
			case inkRed:
				red[i] &^= mask
			}
		}
	}
	return black, red
}
