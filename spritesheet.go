/*
Package spritesheet is a library for assembling individual transparent frames
into a single packed sprite sheet.

A Session holds the loaded frames, an optional reference image and the
parameters that shape the sheet. Every change to those parameters rebuilds
the sheet from scratch, which is then available for export.
*/
package spritesheet

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/bodgit/spritesheet/cache"
	"github.com/bodgit/spritesheet/crop"
	"github.com/bodgit/spritesheet/sheet"
	"github.com/bodgit/spritesheet/view"
	xdraw "golang.org/x/image/draw"
)

var (
	// ErrNoFrames is returned when an operation needs frames but none are
	// loaded.
	ErrNoFrames = errors.New("spritesheet: no frames loaded")
	// ErrEmptyFrame is returned when an image has no pixels.
	ErrEmptyFrame = errors.New("spritesheet: image is empty")
	// ErrNoAlpha is returned when an image has no alpha channel.
	ErrNoAlpha = errors.New("spritesheet: image has no alpha channel")
	// ErrColumns is returned for a column count outside of 1 to the number
	// of frames.
	ErrColumns = errors.New("spritesheet: invalid column count")
	// ErrScale is returned for a scale that isn't positive.
	ErrScale = errors.New("spritesheet: scale must be positive")
	// ErrOpacity is returned for an opacity outside of 0 to 1.
	ErrOpacity = errors.New("spritesheet: opacity must be between 0 and 1")
	// ErrNoReference is returned when an operation needs a reference image
	// but none is loaded.
	ErrNoReference = errors.New("spritesheet: no reference loaded")
)

const defaultViewportWidth = 640

// Options configures a Session.
type Options struct {
	// Columns is used when frames are loaded, if it doesn't exceed the
	// number of frames. Otherwise the square root of the frame count is used.
	Columns int
	// Scale is the initial scale factor, 1 if unset.
	Scale float64
	// Interpolator is used when drawing at a scale other than 1. Nil means
	// nearest neighbour.
	Interpolator xdraw.Interpolator
	// ViewportWidth is the width available for previewing the sheet.
	ViewportWidth int
	// Workers bounds the number of images decoded concurrently.
	Workers int
}

// Session holds the frames, reference image, view state and current sheet.
// It is safe for concurrent use.
type Session struct {
	opts   Options
	cache  cache.Cache
	logger *log.Logger

	mu      sync.Mutex
	store   Store
	columns int
	scale   float64
	visible view.Selection
	cropped bool
	crop    image.Rectangle
	sheet   *image.RGBA
}

// New returns a Session. The cache and logger may be nil.
func New(opts Options, c cache.Cache, logger *log.Logger) *Session {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = defaultViewportWidth
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		opts:   opts,
		cache:  c,
		logger: logger,
		scale:  opts.Scale,
	}
}

func defaultColumns(n, preferred int) int {
	if preferred >= 1 && preferred <= n {
		return preferred
	}
	return max(1, int(math.Sqrt(float64(n))))
}

// Must be called with the lock held and at least one frame loaded
func (s *Session) recompose() {
	s.sheet = sheet.Compose(s.store.Images(), s.columns, s.scale, s.opts.Interpolator)
	s.logger.Printf("Composed %d frames into %d columns at scale %v, sheet is %v\n", s.store.Len(), s.columns, s.scale, s.sheet.Bounds().Size())
}

// LoadFrames replaces the frames with the images at paths, ordered by path.
// Visibility is reset to every frame, the column count to its default and
// the scale to Options.Scale.
// If any image fails to load, the current frames are kept.
func (s *Session) LoadFrames(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return ErrNoFrames
	}

	sorted := slices.Clone(paths)
	slices.Sort(sorted)

	frames, err := s.decodeFrames(ctx, sorted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Frames = frames
	s.visible = view.All(len(frames))
	s.columns = defaultColumns(len(frames), s.opts.Columns)
	s.scale = s.opts.Scale
	s.cropped = false
	s.crop = image.Rectangle{}

	s.logger.Printf("Loaded %d frames\n", len(frames))
	s.recompose()

	return nil
}

// LoadReference replaces the reference image with the image at path, fully
// opaque. If the image fails to load, the current reference is kept.
func (s *Session) LoadReference(ctx context.Context, path string) error {
	m, err := s.decodeFile(ctx, path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Reference = &Reference{
		Path:    path,
		Image:   m,
		Opacity: 1,
	}
	s.logger.Printf("Loaded reference \"%s\"\n", path)

	return nil
}

// Crop removes the transparent margin shared by every frame and returns the
// rectangle that was kept, relative to the original frames. Cropping again
// before new frames are loaded does nothing.
func (s *Session) Crop() (image.Rectangle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return image.Rectangle{}, ErrNoFrames
	}
	if s.cropped {
		return s.crop, nil
	}

	frames, r := crop.Crop(s.store.Images())
	s.store = s.store.withImages(frames)
	s.cropped = true
	s.crop = r

	s.logger.Printf("Cropped frames to %v\n", r)
	s.recompose()

	return r, nil
}

// Bounds returns the shared opaque bounding box of the current frames
// without cropping them.
func (s *Session) Bounds() (image.Rectangle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return image.Rectangle{}, ErrNoFrames
	}
	return crop.Bounds(s.store.Images()), nil
}

func (s *Session) validColumns(columns int) error {
	if n := s.store.Len(); columns < 1 || columns > n {
		return fmt.Errorf("%w: %d not between 1 and %d", ErrColumns, columns, n)
	}
	return nil
}

// SetColumns sets the number of columns in the sheet, between 1 and the
// number of frames.
func (s *Session) SetColumns(columns int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return ErrNoFrames
	}
	if err := s.validColumns(columns); err != nil {
		return err
	}

	s.columns = columns
	s.recompose()

	return nil
}

// SetScale sets the scale factor applied when drawing frames onto the sheet.
// It may be called before any frames are loaded.
func (s *Session) SetScale(scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return fmt.Errorf("%w: %v", ErrScale, scale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scale = scale
	if s.store.Len() > 0 {
		s.recompose()
	}

	return nil
}

// Configure sets the column count and scale together, rebuilding the sheet
// once.
func (s *Session) Configure(columns int, scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return fmt.Errorf("%w: %v", ErrScale, scale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return ErrNoFrames
	}
	if err := s.validColumns(columns); err != nil {
		return err
	}

	s.columns = columns
	s.scale = scale
	s.recompose()

	return nil
}

// SetScaleLevel sets the scale from a slider position between 0 and limit,
// limit being a scale of 1.
func (s *Session) SetScaleLevel(value, limit int) error {
	return s.SetScale(view.Normalize(value, limit))
}

// SetReferenceOpacityLevel sets the reference opacity from a slider position
// between 0 and limit, limit being fully opaque.
func (s *Session) SetReferenceOpacityLevel(value, limit int) error {
	return s.SetReferenceOpacity(view.Normalize(value, limit))
}

// SetReferenceOpacity sets the opacity of the reference image.
func (s *Session) SetReferenceOpacity(opacity float64) error {
	if !(opacity >= 0 && opacity <= 1) {
		return fmt.Errorf("%w: %v", ErrOpacity, opacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Reference == nil {
		return ErrNoReference
	}
	s.store.Reference.Opacity = opacity

	return nil
}

// SetVisibleMin sets the first visible frame. The value is clamped so that
// it lies between zero and the last visible frame.
func (s *Session) SetVisibleMin(i int) (view.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return view.Selection{}, ErrNoFrames
	}
	s.visible.Min = max(0, min(i, s.visible.Max))

	return s.visible, nil
}

// SetVisibleMax sets the last visible frame. The value is clamped so that it
// lies between the first visible frame and the last frame.
func (s *Session) SetVisibleMax(i int) (view.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return view.Selection{}, ErrNoFrames
	}
	s.visible.Max = min(s.store.Len()-1, max(i, s.visible.Min))

	return s.visible, nil
}

// Len returns the number of frames.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Len()
}

// Columns returns the current column count.
func (s *Session) Columns() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.columns
}

// Scale returns the current scale factor.
func (s *Session) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scale
}

// Visible returns the current visible range.
func (s *Session) Visible() view.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.visible
}

// Store returns a copy of the frame store.
func (s *Session) Store() Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.clone()
}

// Layout returns the grid geometry of the current sheet.
func (s *Session) Layout() (sheet.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return sheet.Layout{}, ErrNoFrames
	}
	return sheet.NewLayout(s.store.Images(), s.columns), nil
}

// Sheet returns the current sheet. It must not be modified.
func (s *Session) Sheet() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sheet == nil {
		return nil, ErrNoFrames
	}
	return s.sheet, nil
}

// PreviewScale returns the factor needed to fit the sheet into the
// configured viewport width, never more than 1.
func (s *Session) PreviewScale() (float64, error) {
	l, err := s.Layout()
	if err != nil {
		return 0, err
	}
	return sheet.PreviewScale(s.opts.ViewportWidth, l), nil
}

// EditView renders the visible frames stacked over each other with the
// reference image on top.
func (s *Session) EditView() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.store.Len()
	if n == 0 {
		return nil, ErrNoFrames
	}

	var overlay *view.Overlay
	if r := s.store.Reference; r != nil {
		overlay = &view.Overlay{
			Image:   r.Image,
			Opacity: r.Opacity,
		}
	}

	return view.Render(s.store.Images(), s.visible.Apply(n), s.scale, overlay, s.opts.Interpolator), nil
}

// Export writes the current sheet to w as a PNG image.
func (s *Session) Export(w io.Writer) error {
	m, err := s.Sheet()
	if err != nil {
		return err
	}
	return sheet.Encode(w, m)
}

// ExportFile writes the current sheet to the named file as a PNG image.
func (s *Session) ExportFile(file string) (err error) {
	m, err := s.Sheet()
	if err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := sheet.Encode(f, m); err != nil {
		return fmt.Errorf("export %s: %w", file, err)
	}
	s.logger.Printf("Exported sheet to \"%s\"\n", file)

	return nil
}
