package canvas

import (
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// Font is a parsed OpenType font with faces cached per size.
type Font struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[float64]font.Face
}

// Face returns a face at size points (72 DPI, so points == pixels).
// Sizes are snapped to half points to keep the cache small.
func (f *Font) Face(size float64) (font.Face, error) {
	size = math.Max(1, math.Round(size*2)/2)

	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("face %.1fpt: %w", size, err)
	}
	f.faces[size] = face
	return face, nil
}

func LoadFontFromBytes(b []byte) (*Font, error) {
	f, err := opentype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Font{font: f, faces: make(map[float64]font.Face)}, nil
}

func LoadFontFromFile(name string) (*Font, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return LoadFontFromBytes(b)
}

var (
	defaultOnce sync.Once
	defaultFont *Font
	defaultErr  error
)

// DefaultFont is Go Bold, the closest heavy face that ships with x/image.
func DefaultFont() (*Font, error) {
	defaultOnce.Do(func() {
		defaultFont, defaultErr = LoadFontFromBytes(gobold.TTF)
	})
	return defaultFont, defaultErr
}
