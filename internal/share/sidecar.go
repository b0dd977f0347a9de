package share

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idilsaglam/mememe/internal/meme"
)

// Sidecar is the JSON written next to an exported meme.
// Single file per meme, human-readable.
type Sidecar struct {
	ID         string    `json:"id"`
	TopText    string    `json:"top_text"`
	BottomText string    `json:"bottom_text"`
	Image      string    `json:"image"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}

func sidecarPath(imagePath string) string {
	if i := strings.LastIndexByte(imagePath, '.'); i > strings.LastIndexByte(imagePath, os.PathSeparator) {
		imagePath = imagePath[:i]
	}
	return imagePath + ".json"
}

// SaveSidecar records m next to the image it was exported as.
func SaveSidecar(imagePath string, m meme.Meme) error {
	b := m.Rendered().Bounds()
	sc := Sidecar{
		ID:         uuid.NewString(),
		TopText:    m.TopText(),
		BottomText: m.BottomText(),
		Image:      imagePath,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CreatedAt:  m.CreatedAt(),
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(sidecarPath(imagePath), data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// LoadSidecar reads the sidecar for imagePath; a missing one is (nil, nil).
func LoadSidecar(imagePath string) (*Sidecar, error) {
	data, err := os.ReadFile(sidecarPath(imagePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &sc, nil
}
