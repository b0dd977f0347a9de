// Package picker obtains background images from the photo library or a camera.
package picker

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/idilsaglam/mememe/internal/meme"
)

type Source int

const (
	Library Source = iota
	Camera
)

func (s Source) String() string {
	if s == Camera {
		return "camera"
	}
	return "library"
}

// Gateway is the image picker. Request blocks until the user picks an image
// or backs out; backing out is meme.ErrCancelled. Camera must only be
// requested when CameraAvailable reports true.
type Gateway interface {
	CameraAvailable() bool
	Request(ctx context.Context, src Source) (image.Image, error)
}

// Extensions lists the file types Decode understands.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

func Supported(path string) bool {
	p := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// File serves a fixed path as the library pick; camera requests go to Camera.
type File struct {
	Path   string
	Camera *CameraCapture
}

func (f File) CameraAvailable() bool { return f.Camera.Available() }

func (f File) Request(ctx context.Context, src Source) (image.Image, error) {
	if src == Camera {
		return f.Camera.Capture(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, meme.ErrCancelled
	}
	return Decode(f.Path)
}
