package picker

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/mememe/internal/meme"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDecode(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cat.png")
	writePNG(t, p, 400, 300)

	img, err := Decode(p)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 300), img.Bounds().Size())

	_, err = Decode(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a/b/Cat.JPG"))
	assert.True(t, Supported("x.webp"))
	assert.False(t, Supported("notes.txt"))
}

func TestFileGateway(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bg.png")
	writePNG(t, p, 40, 30)
	g := File{Path: p}

	img, err := g.Request(context.Background(), Library)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Request(ctx, Library)
	assert.ErrorIs(t, err, meme.ErrCancelled)
}

func TestCameraUnavailable(t *testing.T) {
	var nilCam *CameraCapture
	assert.False(t, nilCam.Available())
	assert.False(t, (&CameraCapture{}).Available())
	assert.False(t, (&CameraCapture{Command: "definitely-not-a-camera-tool {out}"}).Available())

	g := File{}
	assert.False(t, g.CameraAvailable())
	_, err := g.Request(context.Background(), Camera)
	assert.ErrorIs(t, err, meme.ErrUnsupportedSource)
}

func TestCameraCapture(t *testing.T) {
	src := filepath.Join(t.TempDir(), "still.png")
	writePNG(t, src, 64, 48)

	cam := &CameraCapture{Command: "cp " + src + " {out}"}
	if !cam.Available() {
		t.Skip("cp not in PATH")
	}
	img, err := cam.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 48), img.Bounds().Size())
}

func TestCameraNoStillIsCancel(t *testing.T) {
	cam := &CameraCapture{Command: "true {out}"}
	if !cam.Available() {
		t.Skip("true not in PATH")
	}
	_, err := cam.Capture(context.Background())
	assert.ErrorIs(t, err, meme.ErrCancelled)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "library", Library.String())
	assert.Equal(t, "camera", Camera.String())
}
