package tiler

import (
	"image"
	"image/color"

	"github.com/gogpu/tiler/internal/parallel"
)

// Surface is the shared output buffer the tiles are copied into.
//
// Pixels are stored as one 0xAARRGGBB word each, row-major. A tile's region
// is written only by that tile's worker, and only while the presenter has an
// outstanding copy request for it; sinks read regions handed to them by
// Present. Surface implements image.Image so sinks can use the standard
// drawing packages directly.
type Surface struct {
	c *parallel.Canvas
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.c.Width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.c.Height
}

// Stride returns the distance between rows in pixels.
func (s *Surface) Stride() int {
	return s.c.Stride
}

// Pix returns the raw pixel words. Only read regions that were presented.
func (s *Surface) Pix() []uint32 {
	return s.c.Pix
}

// Row returns pixel row y.
func (s *Surface) Row(y int) []uint32 {
	return s.c.Row(y)
}

// ARGBAt returns the packed pixel at (x, y), or 0 outside the surface.
func (s *Surface) ARGBAt(x, y int) uint32 {
	if x < 0 || y < 0 || x >= s.c.Width || y >= s.c.Height {
		return 0
	}
	return s.c.Pix[y*s.c.Stride+x]
}

// ColorModel implements image.Image.
func (s *Surface) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.c.Width, s.c.Height)
}

// At implements image.Image.
func (s *Surface) At(x, y int) color.Color {
	return UnpackARGB(s.ARGBAt(x, y))
}

// RGBA copies region r into a new *image.RGBA with the same bounds.
func (s *Surface) RGBA(r image.Rectangle) *image.RGBA {
	r = r.Intersect(s.Bounds())
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := s.c.Pix[y*s.c.Stride:]
		off := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			c := UnpackARGB(row[x])
			if c.A != 0xff {
				pc := color.RGBAModel.Convert(c).(color.RGBA)
				img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = pc.R, pc.G, pc.B, pc.A
			} else {
				img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c.R, c.G, c.B, c.A
			}
			off += 4
		}
	}
	return img
}

// PackARGB packs c as a 0xAARRGGBB word (non-premultiplied).
func PackARGB(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.A)<<24 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B)
}

// UnpackARGB unpacks a 0xAARRGGBB word.
func UnpackARGB(v uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(v >> 16), //nolint:gosec // masked by truncation
		G: uint8(v >> 8),  //nolint:gosec // masked by truncation
		B: uint8(v),       //nolint:gosec // masked by truncation
		A: uint8(v >> 24), //nolint:gosec // masked by truncation
	}
}

// Sink is the display collaborator that receives finished regions.
//
// Present must show region r of s (for example blit it to a window). It is
// called from the goroutine running Scheduler.Present; the region is stable
// for the duration of the call. An error is treated as a broken display and
// makes Present panic.
type Sink interface {
	Present(s *Surface, r image.Rectangle) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(s *Surface, r image.Rectangle) error

// Present calls f(s, r).
func (f SinkFunc) Present(s *Surface, r image.Rectangle) error {
	return f(s, r)
}
