/*
Package crop implements transparent margin removal across a set of frames.

A single rectangle is computed as the union of every frame's opaque bounding
box and then applied identically to each frame so that the frames stay
aligned relative to one another. A pixel is opaque if its alpha is non-zero.
A frame with no opaque pixels contributes zero for each of its bounds which
can widen the union towards the origin.
*/
package crop

import (
	"image"
	"image/draw"
	"math"
)

func opaque(m *image.RGBA, x, y int) bool {
	return m.Pix[m.PixOffset(x, y)+3] != 0
}

// MinOpaqueX returns the first column, relative to the left edge of m, that
// contains an opaque pixel. Columns are scanned left to right, each column
// top to bottom.
func MinOpaqueX(m *image.RGBA) int {
	b := m.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if opaque(m, x, y) {
				return x - b.Min.X
			}
		}
	}
	return 0
}

// MaxOpaqueX returns the last column, relative to the left edge of m, that
// contains an opaque pixel.
func MaxOpaqueX(m *image.RGBA) int {
	b := m.Bounds()
	for x := b.Max.X - 1; x >= b.Min.X; x-- {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if opaque(m, x, y) {
				return x - b.Min.X
			}
		}
	}
	return 0
}

// MinOpaqueY returns the first row, relative to the top edge of m, that
// contains an opaque pixel. Rows are scanned top to bottom, each row left to
// right.
func MinOpaqueY(m *image.RGBA) int {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if opaque(m, x, y) {
				return y - b.Min.Y
			}
		}
	}
	return 0
}

// MaxOpaqueY returns the last row, relative to the top edge of m, that
// contains an opaque pixel.
func MaxOpaqueY(m *image.RGBA) int {
	b := m.Bounds()
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		for x := b.Min.X; x < b.Max.X; x++ {
			if opaque(m, x, y) {
				return y - b.Min.Y
			}
		}
	}
	return 0
}

// Bounds returns the union of the opaque bounding boxes of frames. It panics
// if frames is empty.
func Bounds(frames []*image.RGBA) image.Rectangle {
	if len(frames) == 0 {
		panic("crop: no frames")
	}

	minX, maxX := math.MaxInt, 0
	minY, maxY := math.MaxInt, 0
	for _, m := range frames {
		minX = min(minX, MinOpaqueX(m))
		maxX = max(maxX, MaxOpaqueX(m))
		minY = min(minY, MinOpaqueY(m))
		maxY = max(maxY, MaxOpaqueY(m))
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Clip copies the region r, relative to the top-left corner of m, into a new
// image anchored at the origin. Any part of r outside of m is left
// transparent.
func Clip(m *image.RGBA, r image.Rectangle) *image.RGBA {
	b := m.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), m, b.Min.Add(r.Min), draw.Src)
	return dst
}

// Crop computes the shared opaque bounding box of frames and returns a new
// slice holding every frame clipped to it, in the same order, along with the
// rectangle used. The input frames are not modified.
func Crop(frames []*image.RGBA) ([]*image.RGBA, image.Rectangle) {
	r := Bounds(frames)
	out := make([]*image.RGBA, 0, len(frames))
	for _, m := range frames {
		out = append(out, Clip(m, r))
	}
	return out, r
}
