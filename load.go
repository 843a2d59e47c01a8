package spritesheet

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // gif decoder
	_ "image/jpeg" // jpeg decoder, rejected for lacking alpha
	_ "image/png"  // png decoder
	"os"

	"github.com/bodgit/spritesheet/cache"
	_ "golang.org/x/image/bmp"  // bmp decoder
	_ "golang.org/x/image/tiff" // tiff decoder
	_ "golang.org/x/image/webp" // webp decoder
	"golang.org/x/sync/errgroup"
)

// Only the colour model is available when probing, so palettes are accepted
// here and their entries checked once decoded
func hasAlpha(format string, model color.Model) bool {
	switch model {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	case color.RGBAModel, color.RGBA64Model:
		// Decoded as premultiplied only when the file has no alpha channel
		return format != "png" && format != "bmp"
	}
	_, ok := model.(color.Palette)
	return ok
}

func transparentPalette(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}

func toRGBA(m image.Image) *image.RGBA {
	if rgba, ok := m.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := m.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
	return dst
}

func decode(b []byte) (*image.RGBA, error) {
	m, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if !hasAlpha(format, m.ColorModel()) {
		return nil, ErrNoAlpha
	}
	if p, ok := m.ColorModel().(color.Palette); ok && !transparentPalette(p) {
		return nil, ErrNoAlpha
	}
	if m.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	return toRGBA(m), nil
}

func (s *Session) decodeFile(ctx context.Context, file string) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		m, err := decode(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		return m, nil
	}

	key := cache.Key(b)
	m, ok, err := s.cache.Get(key)
	if err != nil {
		return nil, err
	}
	if ok {
		return m, nil
	}

	if m, err = decode(b); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := s.cache.Put(key, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Session) decodeFrames(ctx context.Context, files []string) ([]Frame, error) {
	frames := make([]Frame, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, file := range files {
		g.Go(func() error {
			m, err := s.decodeFile(ctx, file)
			if err != nil {
				return err
			}
			frames[i] = Frame{
				Path:  file,
				Image: m,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return frames, nil
}
