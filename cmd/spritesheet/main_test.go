package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/spritesheet/sheet"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func writeFrames(t *testing.T, dir string) {
	t.Helper()

	for i, c := range []color.RGBA{
		{0xff, 0, 0, 0xff},
		{0, 0xff, 0, 0xff},
		{0, 0, 0xff, 0xff},
		{0xff, 0xff, 0, 0xff},
	} {
		m := image.NewRGBA(image.Rect(0, 0, 10, 10))
		// Leave a one pixel transparent border
		for y := 1; y < 9; y++ {
			for x := 1; x < 9; x++ {
				m.SetRGBA(x, y, c)
			}
		}

		f, err := os.Create(filepath.Join(dir, string(rune('a'+i))+".png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, m))
		require.NoError(t, f.Close())
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	config := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(config, []byte("[load]\nworkers = 2\n"), 0o644))

	out := new(bytes.Buffer)
	app := newApp()
	app.Writer = out
	app.ErrWriter = new(bytes.Buffer)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"spritesheet", "--config", config}, args...))
	return out.String(), err
}

func decodeFile(t *testing.T, file string) *image.RGBA {
	t.Helper()

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	m, err := sheet.Decode(f)
	require.NoError(t, err)
	return m
}

func TestScan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)

	out, err := run(t, "scan", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a.png")+"\n"+
		filepath.Join(dir, "b.png")+"\n"+
		filepath.Join(dir, "c.png")+"\n"+
		filepath.Join(dir, "d.png")+"\n", out)
}

func TestBounds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)

	out, err := run(t, "bounds", dir)
	require.NoError(t, err)
	require.Equal(t, "1 1 8 8\n", out)
}

func TestPack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)
	out := filepath.Join(t.TempDir(), "sheet")

	_, err := run(t, "pack", "-o", out, dir)
	require.NoError(t, err)

	m := decodeFile(t, out+".png")
	require.Equal(t, image.Rect(0, 0, 20, 30), m.Bounds())
	require.Equal(t, color.RGBA{0, 0, 0xff, 0xff}, m.RGBAAt(1, 11))
}

func TestPackCropColumns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)
	out := filepath.Join(t.TempDir(), "sheet.png")

	_, err := run(t, "pack", "--crop", "--columns", "4", "-o", out,
		filepath.Join(dir, "d.png"), filepath.Join(dir, "c.png"), filepath.Join(dir, "b.png"), filepath.Join(dir, "a.png"))
	require.NoError(t, err)

	m := decodeFile(t, out)
	require.Equal(t, image.Rect(0, 0, 32, 16), m.Bounds())
	require.Equal(t, color.RGBA{0xff, 0, 0, 0xff}, m.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{0xff, 0xff, 0, 0xff}, m.RGBAAt(24, 0))
}

func TestPackErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)
	out := filepath.Join(t.TempDir(), "sheet.png")

	_, err := run(t, "pack", "--columns", "5", "-o", out, dir)
	require.Error(t, err)

	_, err = run(t, "pack", "--scale", "0", "-o", out, dir)
	require.Error(t, err)

	_, err = run(t, "pack", "--interpolator", "sinc", "-o", out, dir)
	require.Error(t, err)

	_, err = run(t, "pack", "-o", out, filepath.Join(dir, "missing.png"), filepath.Join(dir, "a.png"))
	require.Error(t, err)

	require.NoFileExists(t, out)
}

func TestPackCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)
	db := filepath.Join(t.TempDir(), "cache.db")

	for i := 0; i < 2; i++ {
		out := filepath.Join(t.TempDir(), "sheet.png")
		_, err := run(t, "--cache", db, "pack", "-o", out, dir)
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 20, 30), decodeFile(t, out).Bounds())
	}
	require.FileExists(t, db)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)

	ref := filepath.Join(t.TempDir(), "ref.png")
	f, err := os.Create(ref)
	require.NoError(t, err)
	white := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for i := range white.Pix {
		white.Pix[i] = 0xff
	}
	// Keep an alpha channel in the encoded file
	white.SetRGBA(11, 11, color.RGBA{})
	require.NoError(t, png.Encode(f, white))
	require.NoError(t, f.Close())

	out := filepath.Join(t.TempDir(), "preview.png")

	_, err = run(t, "preview", "--max", "1", "-o", out, dir)
	require.NoError(t, err)
	m := decodeFile(t, out)
	require.Equal(t, image.Rect(0, 0, 10, 10), m.Bounds())
	require.Equal(t, color.RGBA{0, 0xff, 0, 0xff}, m.RGBAAt(5, 5))
	require.Equal(t, color.RGBA{}, m.RGBAAt(0, 0))

	_, err = run(t, "preview", "--reference", ref, "--opacity", "0", "--min", "2", "-o", out, dir)
	require.NoError(t, err)
	m = decodeFile(t, out)
	require.Equal(t, image.Rect(0, 0, 12, 12), m.Bounds())
	require.Equal(t, color.RGBA{0xff, 0xff, 0, 0xff}, m.RGBAAt(5, 5))

	_, err = run(t, "preview", "--reference", ref, "-o", out, dir)
	require.NoError(t, err)
	m = decodeFile(t, out)
	require.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, m.RGBAAt(5, 5))

	_, err = run(t, "preview", "--reference", ref, "--opacity", "2", "-o", out, dir)
	require.Error(t, err)

	_, err = run(t, "preview", "-o", filepath.Join(t.TempDir(), "missing", "preview.png"), dir)
	require.Error(t, err)
}

func TestPackPercent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFrames(t, dir)
	out := filepath.Join(t.TempDir(), "sheet.png")

	_, err := run(t, "pack", "--percent", "50", "-o", out, dir)
	require.NoError(t, err)

	m := decodeFile(t, out)
	require.Equal(t, image.Rect(0, 0, 20, 30), m.Bounds())
	require.Equal(t, color.RGBA{0, 0xff, 0, 0xff}, m.RGBAAt(7, 2))
	require.Equal(t, color.RGBA{}, m.RGBAAt(12, 2))

	_, err = run(t, "pack", "--percent", "0", "-o", out, dir)
	require.Error(t, err)
}

func TestOutputFile(t *testing.T) {
	t.Parallel()

	require.Equal(t, "sheet.png", outputFile("sheet"))
	require.Equal(t, "sheet.PNG", outputFile("sheet.PNG"))
	require.Equal(t, "sheet.jpg.png", outputFile("sheet.jpg"))
	require.Equal(t, "sheet.txt.png", outputFile("sheet.txt"))
	require.Equal(t, filepath.Join("out", "sheet.png"), outputFile(filepath.Join("out", "sheet")))
}
