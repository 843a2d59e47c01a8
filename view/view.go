/*
Package view implements the edit area state: which frames are shown and how
they are drawn for inspection.

Frames in the edit area are stacked on top of each other at the origin, so
with a partially transparent set the visible range acts as an onion skin. An
optional reference image is drawn over everything at a configurable opacity
to help line frames up. Nothing here affects the packed sheet.
*/
package view

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Selection is an inclusive range of frame indices.
type Selection struct {
	Min, Max int
}

// All returns the selection covering n frames.
func All(n int) Selection {
	return Selection{0, n - 1}
}

// Contains reports whether index i is inside the selection.
func (s Selection) Contains(i int) bool {
	return i >= s.Min && i <= s.Max
}

// Apply marks which of n frames are visible. The selection is assumed to
// satisfy 0 <= Min <= Max < n; indices outside of that cause a panic.
func (s Selection) Apply(n int) []bool {
	visible := make([]bool, n)
	for i := s.Min; i <= s.Max; i++ {
		visible[i] = true
	}
	return visible
}

// Normalize maps a slider position in [0, limit] to a multiplier in [0, 1].
func Normalize(value, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(max(0, min(value, limit))) / float64(limit)
}

func opacity(o float64) color.Alpha16 {
	o = max(0, min(1, o))
	return color.Alpha16{A: uint16(o*0xffff + 0.5)}
}

// Overlay is a reference image drawn over the frames.
type Overlay struct {
	Image   *image.RGBA
	Opacity float64
}

// Render draws every frame marked visible at the origin, in order, scaled by
// scale, followed by the overlay if there is one. The canvas covers the
// largest frame and the overlay at their unscaled size. A nil interpolator
// means nearest neighbour.
func Render(frames []*image.RGBA, visible []bool, scale float64, overlay *Overlay, interp xdraw.Interpolator) *image.RGBA {
	if interp == nil {
		interp = xdraw.NearestNeighbor
	}

	var size image.Point
	for _, m := range frames {
		size.X = max(size.X, m.Bounds().Dx())
		size.Y = max(size.Y, m.Bounds().Dy())
	}
	if overlay != nil {
		size.X = max(size.X, overlay.Image.Bounds().Dx())
		size.Y = max(size.Y, overlay.Image.Bounds().Dy())
	}

	dst := image.NewRGBA(image.Rectangle{Max: size})
	for i, m := range frames {
		if !visible[i] {
			continue
		}
		b := m.Bounds()
		if scale == 1 {
			draw.Draw(dst, b.Sub(b.Min), m, b.Min, draw.Over)
			continue
		}
		s2d := f64.Aff3{
			scale, 0, -scale * float64(b.Min.X),
			0, scale, -scale * float64(b.Min.Y),
		}
		interp.Transform(dst, s2d, m, b, xdraw.Over, nil)
	}

	if overlay != nil && overlay.Opacity > 0 {
		b := overlay.Image.Bounds()
		mask := image.NewUniform(opacity(overlay.Opacity))
		draw.DrawMask(dst, b.Sub(b.Min), overlay.Image, b.Min, mask, image.Point{}, draw.Over)
	}

	return dst
}
