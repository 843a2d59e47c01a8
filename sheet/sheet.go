/*
Package sheet implements packing an ordered set of frames into a single grid
image.

Frames are placed row-major: frame i occupies column i % columns and row
i / columns. Every cell is the size of the first frame; frames that are
larger overflow into the neighbouring cells. The sheet always carries one
more row than is needed to hold every frame, the final row being left empty.

The canvas is sized before any scaling is applied. The scale factor is a
single transform applied to the drawing so frames and their spacing shrink
or grow together while the canvas itself keeps its unscaled dimensions.
*/
package sheet

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var errUnknownInterpolator = errors.New("sheet: unknown interpolator")

var interpolators = map[string]xdraw.Interpolator{
	"nearest":         xdraw.NearestNeighbor,
	"approx-bilinear": xdraw.ApproxBiLinear,
	"bilinear":        xdraw.BiLinear,
	"catmull-rom":     xdraw.CatmullRom,
}

// Interpolator returns the named interpolator used when drawing at a scale
// other than 1. Valid names are "nearest", "approx-bilinear", "bilinear" and
// "catmull-rom".
func Interpolator(name string) (xdraw.Interpolator, error) {
	if i, ok := interpolators[name]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownInterpolator, name)
}

// Layout describes the grid geometry of a sheet.
type Layout struct {
	Columns int
	Count   int
	Cell    image.Point
}

// NewLayout returns the layout for packing frames into columns. The cell
// size is taken from the first frame. It panics if frames is empty or
// columns is less than one.
func NewLayout(frames []*image.RGBA, columns int) Layout {
	if len(frames) == 0 {
		panic("sheet: no frames")
	}
	if columns < 1 {
		panic("sheet: columns must be at least one")
	}
	return Layout{
		Columns: columns,
		Count:   len(frames),
		Cell:    frames[0].Bounds().Size(),
	}
}

// Rows returns the number of rows in the sheet, including the trailing
// empty row.
func (l Layout) Rows() int {
	return (l.Count+l.Columns-1)/l.Columns + 1
}

// Size returns the unscaled dimensions of the sheet.
func (l Layout) Size() image.Point {
	return image.Pt(l.Columns*l.Cell.X, l.Rows()*l.Cell.Y)
}

// Cell returns the unscaled rectangle occupied by frame i.
func (l Layout) Cell(i int) image.Rectangle {
	p := image.Pt(i%l.Columns*l.Cell.X, i/l.Columns*l.Cell.Y)
	return image.Rectangle{Min: p, Max: p.Add(l.Cell)}
}

// Compose draws frames onto a transparent canvas sized by their layout,
// each scaled by scale about the sheet origin. A nil interpolator means
// nearest neighbour. It panics if frames is empty, columns is less than one
// or scale is not positive.
func Compose(frames []*image.RGBA, columns int, scale float64, interp xdraw.Interpolator) *image.RGBA {
	l := NewLayout(frames, columns)
	if !(scale > 0) {
		panic("sheet: scale must be positive")
	}
	if interp == nil {
		interp = xdraw.NearestNeighbor
	}

	dst := image.NewRGBA(image.Rectangle{Max: l.Size()})
	for i, m := range frames {
		p := l.Cell(i).Min
		b := m.Bounds()

		if scale == 1 {
			draw.Draw(dst, b.Sub(b.Min).Add(p), m, b.Min, draw.Over)
			continue
		}

		s2d := f64.Aff3{
			scale, 0, scale * float64(p.X-b.Min.X),
			0, scale, scale * float64(p.Y-b.Min.Y),
		}
		interp.Transform(dst, s2d, m, b, xdraw.Over, nil)
	}

	return dst
}

// PreviewScale returns the factor needed to fit a sheet with layout l into a
// viewport of the given width. It never exceeds 1.
func PreviewScale(viewportWidth int, l Layout) float64 {
	w := l.Columns * l.Cell.X
	if w <= 0 {
		return 1
	}
	if r := float64(viewportWidth) / float64(w); r < 1 {
		return r
	}
	return 1
}
