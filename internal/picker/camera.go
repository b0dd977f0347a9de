package picker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/idilsaglam/mememe/internal/meme"
)

// CameraCapture shells out to a capture tool such as
// `fswebcam --no-banner {out}` or `libcamera-still -o {out}`.
// {out} is replaced with the path the tool must write a still to.
type CameraCapture struct {
	Command string
	Logger  *slog.Logger
}

// Available reports whether a capture command is configured and installed.
// A nil receiver means no camera.
func (c *CameraCapture) Available() bool {
	if c == nil {
		return false
	}
	args := strings.Fields(c.Command)
	if len(args) == 0 {
		return false
	}
	_, err := exec.LookPath(args[0])
	return err == nil
}

func (c *CameraCapture) Capture(ctx context.Context) (image.Image, error) {
	if !c.Available() {
		return nil, fmt.Errorf("camera: %w", meme.ErrUnsupportedSource)
	}
	dir, err := os.MkdirTemp("", "mememe-camera-")
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "capture.jpg")

	args := strings.Fields(c.Command)
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{out}", out)
	}
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Debug("camera capture", "cmd", args[0], "args", args[1:])

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if b, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, meme.ErrCancelled
		}
		return nil, fmt.Errorf("camera: %s: %w (%s)", args[0], err, strings.TrimSpace(string(b)))
	}
	img, err := Decode(out)
	if errors.Is(err, os.ErrNotExist) {
		// tool exited cleanly without a still: treat as backing out
		return nil, meme.ErrCancelled
	}
	return img, err
}
