package sheet

import (
	"image"
	"image/draw"
	"image/png"
	"io"
)

// Premultiplied pixels with partial alpha do not survive a trip through
// 8-bit non-premultiplied PNG samples, 16-bit samples are exact
func translucent(m *image.RGBA) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if a := m.Pix[m.PixOffset(x, y)+3]; a != 0 && a != 0xff {
				return true
			}
		}
	}
	return false
}

// Encode writes the sheet m to w as a PNG image. Decoding the result with
// Decode yields pixels identical to m.
func Encode(w io.Writer, m *image.RGBA) error {
	var dst image.Image = m
	if translucent(m) {
		b := m.Bounds()
		wide := image.NewRGBA64(b)
		draw.Draw(wide, b, m, b.Min, draw.Src)
		dst = wide
	}

	e := png.Encoder{CompressionLevel: png.BestCompression}
	return e.Encode(w, dst)
}

// Decode reads a PNG image from r and returns it as premultiplied RGBA.
func Decode(r io.Reader) (*image.RGBA, error) {
	m, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	if rgba, ok := m.(*image.RGBA); ok {
		return rgba, nil
	}

	b := m.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, m, b.Min, draw.Src)
	return dst, nil
}
