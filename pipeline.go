package spritesheet

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var extensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

func findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, errors.New("not a directory")
	}

	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if _, ok := extensions[strings.ToLower(filepath.Ext(file))]; !ok {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func probe(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		return err
	}

	if !hasAlpha(format, config.ColorModel) {
		return ErrNoAlpha
	}
	if config.Width == 0 || config.Height == 0 {
		return ErrEmptyFrame
	}

	return nil
}

func (s *Session) probeWorker(ctx context.Context, in <-chan string, out chan<- string, wg *sync.WaitGroup) (<-chan error, error) {
	errc := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer close(errc)
		defer wg.Done()
		for file := range in {
			if err := probe(file); err != nil {
				s.logger.Printf("Skipping \"%s\": %v\n", file, err)
				continue
			}

			select {
			case out <- file:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks the directory tree rooted at path and returns, sorted, every
// image file that can be loaded as a frame. Hidden files and directories are
// skipped, as are images without an alpha channel.
func (s *Session) Scan(ctx context.Context, path string) ([]string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := findFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	errcList = append(errcList, errc)

	found := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		errc, err := s.probeWorker(ctx, files, found, &wg)
		if err != nil {
			return nil, err
		}
		errcList = append(errcList, errc)
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	var paths []string
	for file := range found {
		paths = append(paths, file)
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	slices.Sort(paths)
	s.logger.Printf("Found %d frames in \"%s\"\n", len(paths), dir)

	return paths, nil
}
