package share

import (
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/mememe/internal/meme"
)

var fixed = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newExporter(t *testing.T, f Format) *Exporter {
	return &Exporter{
		Dir:    filepath.Join(t.TempDir(), "out"),
		Format: f,
		Now:    func() time.Time { return fixed },
	}
}

func TestExportPNG(t *testing.T) {
	e := newExporter(t, PNG)
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))

	path, err := e.Export("lol", img)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.Dir, "lol.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)

	got, ok := e.PathOf(img)
	assert.True(t, ok)
	assert.Equal(t, path, got)
}

func TestExportJPEG(t *testing.T) {
	e := newExporter(t, JPEG)
	e.Quality = 80
	path, err := e.Export("pic.png", image.NewRGBA(image.Rect(0, 0, 16, 16)))
	require.NoError(t, err)
	assert.Equal(t, "pic.jpg", filepath.Base(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = jpeg.DecodeConfig(f)
	assert.NoError(t, err)
}

func TestExportNeverOverwrites(t *testing.T) {
	e := newExporter(t, PNG)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	p1, err := e.Export("same", img)
	require.NoError(t, err)
	p2, err := e.Export("same", img)
	require.NoError(t, err)
	assert.Equal(t, "same.png", filepath.Base(p1))
	assert.Equal(t, "same-1.png", filepath.Base(p2))
}

func TestExportDefaultName(t *testing.T) {
	e := newExporter(t, PNG)
	path, err := e.Export("  ", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	assert.Equal(t, "meme-20261018-093000.png", filepath.Base(path))
}

func TestExportNilImage(t *testing.T) {
	_, err := newExporter(t, PNG).Export("x", nil)
	assert.ErrorIs(t, err, meme.ErrPrecondition)
}

func TestPersistWritesSidecar(t *testing.T) {
	e := newExporter(t, PNG)
	e.Sidecar = true
	rendered := image.NewRGBA(image.Rect(0, 0, 64, 32))
	path, err := e.Export("cat", rendered)
	require.NoError(t, err)

	m := meme.New("TOP", "BOTTOM", image.NewRGBA(image.Rect(0, 0, 8, 8)), rendered, fixed)
	require.NoError(t, e.Persist(m))

	sc, err := LoadSidecar(path)
	require.NoError(t, err)
	require.NotNil(t, sc)
	assert.Equal(t, "TOP", sc.TopText)
	assert.Equal(t, "BOTTOM", sc.BottomText)
	assert.Equal(t, 64, sc.Width)
	assert.True(t, fixed.Equal(sc.CreatedAt))
	assert.Len(t, sc.ID, 36)

	got, ok := e.Take(rendered)
	assert.True(t, ok)
	assert.Equal(t, path, got)
	_, ok = e.PathOf(rendered)
	assert.False(t, ok, "taken bitmaps are dropped")
}

func TestExporterKeepsOnlyLatest(t *testing.T) {
	e := newExporter(t, PNG)
	first := image.NewRGBA(image.Rect(0, 0, 2, 2))
	second := image.NewRGBA(image.Rect(0, 0, 2, 2))

	_, err := e.Export("one", first)
	require.NoError(t, err)
	p2, err := e.Export("two", second)
	require.NoError(t, err)

	_, ok := e.PathOf(first)
	assert.False(t, ok)
	got, ok := e.PathOf(second)
	assert.True(t, ok)
	assert.Equal(t, p2, got)

	_, ok = e.Take(first)
	assert.False(t, ok)
	_, ok = e.PathOf(nil)
	assert.False(t, ok)
}

func TestPersistWithoutSidecar(t *testing.T) {
	e := newExporter(t, PNG)
	rendered := image.NewRGBA(image.Rect(0, 0, 4, 4))
	path, err := e.Export("cat", rendered)
	require.NoError(t, err)

	require.NoError(t, e.Persist(meme.New("A", "B", rendered, rendered, fixed)))
	sc, err := LoadSidecar(path)
	require.NoError(t, err)
	assert.Nil(t, sc)
}

func TestDirect(t *testing.T) {
	e := newExporter(t, PNG)
	d := Direct{Exporter: e, Name: "headless"}

	ok, err := d.Present(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(e.Dir, "headless.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = d.Present(ctx, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JPG")
	require.NoError(t, err)
	assert.Equal(t, JPEG, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, PNG, f)
	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a.b", "meme.json"), sidecarPath(filepath.Join("a.b", "meme.png")))
	assert.Equal(t, filepath.Join("a.b", "meme.json"), sidecarPath(filepath.Join("a.b", "meme")))
}
