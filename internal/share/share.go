// Package share hands rendered memes to the export surface.
package share

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/idilsaglam/mememe/internal/meme"
)

// Gateway presents a rendered bitmap to the user. It reports completed=false
// with a nil error when the user backs out.
type Gateway interface {
	Present(ctx context.Context, img image.Image) (completed bool, err error)
}

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return "", fmt.Errorf("unknown format %q (want png|jpeg)", s)
}

func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return ".png"
}

// Exporter writes memes into Dir. It remembers only its latest export, until
// Take claims it, so Persist and the caller can look up where a bitmap went.
type Exporter struct {
	Dir       string
	Format    Format
	Quality   int  // JPEG only
	Sidecar   bool // write <name>.json on Persist
	Clipboard bool // copy the written path to the clipboard
	Logger    *slog.Logger

	// Now is the clock used for default names.
	Now func() time.Time

	mu   sync.Mutex
	last exported
}

type exported struct {
	img  image.Image
	path string
}

func (e *Exporter) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// DefaultName suggests a file name for a new export.
func (e *Exporter) DefaultName() string {
	return "meme-" + e.now().Format("20060102-150405")
}

// Export encodes img as <Dir>/<name><ext> and returns the path written.
// An existing file is never overwritten; a numeric suffix is added instead.
func (e *Exporter) Export(name string, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("export: no image: %w", meme.ErrPrecondition)
	}
	name = strings.TrimSpace(filepath.Base(name))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = e.DefaultName()
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	f, path, err := e.create(name)
	if err != nil {
		return "", err
	}
	if err := e.encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}

	e.mu.Lock()
	e.last = exported{img: img, path: path}
	e.mu.Unlock()

	if e.Clipboard {
		if err := clipboard.WriteAll(path); err != nil {
			e.log().Warn("clipboard unavailable", "error", err)
		}
	}
	e.log().Info("meme exported", "path", path, "format", string(e.Format))
	return path, nil
}

func (e *Exporter) create(name string) (*os.File, string, error) {
	ext := e.Format.Ext()
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", name, i)
		}
		path := filepath.Join(e.Dir, candidate+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create: too many files named %q", name)
}

func (e *Exporter) encode(w io.Writer, img image.Image) error {
	switch e.Format {
	case JPEG:
		q := e.Quality
		if q <= 0 {
			q = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: q}); err != nil {
			return fmt.Errorf("jpeg encode: %w", err)
		}
	default:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("png encode: %w", err)
		}
	}
	return nil
}

// PathOf returns where img was exported, if it is the latest export.
func (e *Exporter) PathOf(img image.Image) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if img == nil || e.last.img != img {
		return "", false
	}
	return e.last.path, true
}

// Take is PathOf that also drops the bitmap.
func (e *Exporter) Take(img image.Image) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if img == nil || e.last.img != img {
		return "", false
	}
	path := e.last.path
	e.last = exported{}
	return path, true
}

// Persist is the completed-meme hook: it writes the sidecar for the meme's
// exported image.
func (e *Exporter) Persist(m meme.Meme) error {
	path, ok := e.PathOf(m.Rendered())
	if !ok || !e.Sidecar {
		return nil
	}
	return SaveSidecar(path, m)
}

// Direct exports without asking; used by the headless render command.
type Direct struct {
	Exporter *Exporter
	Name     string
}

func (d Direct) Present(ctx context.Context, img image.Image) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if _, err := d.Exporter.Export(d.Name, img); err != nil {
		return false, err
	}
	return true, nil
}
