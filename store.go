package spritesheet

import "image"

// Frame is a single source image. Its pixels must not be modified once
// loaded.
type Frame struct {
	Path  string
	Image *image.RGBA
}

// Reference is an alignment aid drawn over the frames in the edit view. It
// is never part of the sheet.
type Reference struct {
	Path    string
	Image   *image.RGBA
	Opacity float64
}

// Store is the ordered set of frames and the optional reference image.
type Store struct {
	Frames    []Frame
	Reference *Reference
}

// Len returns the number of frames.
func (s Store) Len() int {
	return len(s.Frames)
}

// Images returns the frame images in order.
func (s Store) Images() []*image.RGBA {
	images := make([]*image.RGBA, len(s.Frames))
	for i, f := range s.Frames {
		images[i] = f.Image
	}
	return images
}

// withImages returns a new store with each frame image replaced, in order
func (s Store) withImages(images []*image.RGBA) Store {
	frames := make([]Frame, len(s.Frames))
	for i, f := range s.Frames {
		frames[i] = Frame{
			Path:  f.Path,
			Image: images[i],
		}
	}
	return Store{
		Frames:    frames,
		Reference: s.Reference,
	}
}

func (s Store) clone() Store {
	c := Store{
		Frames: append([]Frame(nil), s.Frames...),
	}
	if s.Reference != nil {
		r := *s.Reference
		c.Reference = &r
	}
	return c
}
