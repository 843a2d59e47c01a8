package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/spritesheet"
	"github.com/bodgit/spritesheet/cache"
	"github.com/bodgit/spritesheet/config"
	"github.com/bodgit/spritesheet/sheet"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

type closer func() error

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(c.App.ErrWriter)
	}
	return logger
}

// newSession builds a session from the configuration file, with any command
// flags taking precedence
func newSession(c *cli.Context) (*spritesheet.Session, closer, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	if c.IsSet("cache") {
		cfg.Cache.Path = c.String("cache")
	}
	if c.IsSet("columns") {
		cfg.Sheet.Columns = c.Int("columns")
	}
	if c.IsSet("scale") {
		cfg.Sheet.Scale = c.Float64("scale")
	}
	if c.IsSet("interpolator") {
		cfg.Sheet.Interpolator = c.String("interpolator")
	}

	interp, err := sheet.Interpolator(cfg.Sheet.Interpolator)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(c)

	var (
		fc      cache.Cache = cache.NewMemory(cfg.Cache.Expiration, 2*cfg.Cache.Expiration)
		cleanup closer      = func() error { return nil }
	)
	if cfg.Cache.Path != "" {
		db, err := cache.NewDB(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		fc = cache.Chain(fc, db)
		cleanup = db.Close
		logger.Printf("Using cache \"%s\"\n", cfg.Cache.Path)
	}

	s := spritesheet.New(spritesheet.Options{
		Columns:       cfg.Sheet.Columns,
		Scale:         cfg.Sheet.Scale,
		Interpolator:  interp,
		ViewportWidth: cfg.Preview.ViewportWidth,
		Workers:       cfg.Load.Workers,
	}, fc, logger)

	if err := s.SetScale(cfg.Sheet.Scale); err != nil {
		cleanup()
		return nil, nil, err
	}

	return s, cleanup, nil
}

// inputs expands the arguments into frame paths. A single directory is
// scanned, anything else is taken as a list of files.
func inputs(ctx context.Context, s *spritesheet.Session, args []string) ([]string, error) {
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return s.Scan(ctx, args[0])
		}
	}
	return args, nil
}

func load(c *cli.Context, s *spritesheet.Session) error {
	paths, err := inputs(c.Context, s, c.Args().Slice())
	if err != nil {
		return err
	}
	return s.LoadFrames(c.Context, paths)
}

func outputFile(file string) string {
	if !strings.EqualFold(filepath.Ext(file), ".png") {
		return file + ".png"
	}
	return file
}

func writeImage(file string, m *image.RGBA) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return sheet.Encode(f, m)
}

func scan(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, cleanup, err := newSession(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer cleanup()

	paths, err := s.Scan(c.Context, c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	for _, path := range paths {
		fmt.Fprintln(c.App.Writer, path)
	}

	return nil
}

func bounds(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, cleanup, err := newSession(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer cleanup()

	if err := load(c, s); err != nil {
		return cli.Exit(err, 1)
	}

	r, err := s.Bounds()
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(c.App.Writer, "%d %d %d %d\n", r.Min.X, r.Min.Y, r.Dx(), r.Dy())

	return nil
}

func pack(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, cleanup, err := newSession(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer cleanup()

	if err := load(c, s); err != nil {
		return cli.Exit(err, 1)
	}

	if c.Bool("crop") {
		if _, err := s.Crop(); err != nil {
			return cli.Exit(err, 1)
		}
	}

	if c.IsSet("columns") {
		if err := s.SetColumns(c.Int("columns")); err != nil {
			return cli.Exit(err, 1)
		}
	}

	if c.IsSet("percent") {
		if err := s.SetScaleLevel(c.Int("percent"), 100); err != nil {
			return cli.Exit(err, 1)
		}
	}

	if err := s.ExportFile(outputFile(c.String("output"))); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func preview(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, cleanup, err := newSession(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer cleanup()

	if err := load(c, s); err != nil {
		return cli.Exit(err, 1)
	}

	if c.IsSet("reference") {
		if err := s.LoadReference(c.Context, c.String("reference")); err != nil {
			return cli.Exit(err, 1)
		}
		if err := s.SetReferenceOpacity(c.Float64("opacity")); err != nil {
			return cli.Exit(err, 1)
		}
	}

	if c.IsSet("min") {
		if _, err := s.SetVisibleMin(c.Int("min")); err != nil {
			return cli.Exit(err, 1)
		}
	}
	if c.IsSet("max") {
		if _, err := s.SetVisibleMax(c.Int("max")); err != nil {
			return cli.Exit(err, 1)
		}
	}

	m, err := s.EditView()
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := writeImage(outputFile(c.String("output")), m); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "output",
		Aliases:  []string{"o"},
		Required: true,
		Usage:    "write image to `FILE`, .png is added if it isn't already the extension",
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "spritesheet"
	app.Usage = "Sprite sheet packing utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"SPRITESHEET_CONFIG"},
			Usage:   "path to configuration `FILE`",
		},
		&cli.StringFlag{
			Name:  "cache",
			Usage: "path to frame cache database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "scan",
			Usage:       "List the frames found in a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action:      scan,
		},
		{
			Name:        "bounds",
			Usage:       "Print the opaque area shared by all frames",
			Description: "Prints the X and Y offset followed by the width and height.",
			ArgsUsage:   "FILE... | DIRECTORY",
			Action:      bounds,
		},
		{
			Name:        "pack",
			Usage:       "Pack frames into a sprite sheet",
			Description: "",
			ArgsUsage:   "FILE... | DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "columns",
					Aliases: []string{"c"},
					Usage:   "number of columns",
				},
				&cli.Float64Flag{
					Name:    "scale",
					Aliases: []string{"s"},
					Value:   1,
					Usage:   "scale factor",
				},
				&cli.IntFlag{
					Name:  "percent",
					Usage: "scale as a percentage up to 100, overrides --scale",
				},
				&cli.BoolFlag{
					Name:  "crop",
					Usage: "remove the transparent margin shared by all frames",
				},
				&cli.StringFlag{
					Name:  "interpolator",
					Value: "nearest",
					Usage: "one of nearest, approx-bilinear, bilinear or catmull-rom",
				},
				outputFlag(),
			},
			Action: pack,
		},
		{
			Name:        "preview",
			Usage:       "Render frames stacked over each other",
			Description: "",
			ArgsUsage:   "FILE... | DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "reference",
					Aliases: []string{"r"},
					Usage:   "reference image drawn over the frames",
				},
				&cli.Float64Flag{
					Name:  "opacity",
					Value: 1,
					Usage: "reference opacity, between 0 and 1",
				},
				&cli.IntFlag{
					Name:  "min",
					Usage: "first visible frame",
				},
				&cli.IntFlag{
					Name:  "max",
					Usage: "last visible frame",
				},
				outputFlag(),
			},
			Action: preview,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
