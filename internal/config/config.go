package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/idilsaglam/mememe/internal/canvas"
	"github.com/idilsaglam/mememe/internal/meme"
	"github.com/idilsaglam/mememe/internal/share"
)

const appName = "mememe"

// Config holds application configuration
type Config struct {
	Captions  CaptionsConfig  `toml:"captions"`
	Style     StyleConfig     `toml:"style"`
	Picker    PickerConfig    `toml:"picker"`
	Share     ShareConfig     `toml:"share"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	UI        UIConfig        `toml:"ui"`
}

type CaptionsConfig struct {
	Top    string `toml:"top"`
	Bottom string `toml:"bottom"`
}

type StyleConfig struct {
	Variant     string  `toml:"variant"` // classic | inverted
	Font        string  `toml:"font"`    // path to a TTF/OTF; empty = Go Bold
	Size        float64 `toml:"size"`
	StrokeWidth float64 `toml:"stroke_width"`
	Fit         string  `toml:"fit"` // fill | fit
}

type PickerConfig struct {
	Dir           string `toml:"dir"`
	CameraCommand string `toml:"camera_command"`
}

type ShareConfig struct {
	Dir       string `toml:"dir"`
	Format    string `toml:"format"`
	Quality   int    `toml:"jpeg_quality"`
	Sidecar   bool   `toml:"sidecar"`
	Clipboard bool   `toml:"clipboard"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	Theme string `toml:"theme"`
}

func Default() Config {
	home, _ := os.UserHomeDir()
	pictures := xdg.UserDirs.Pictures
	if pictures == "" {
		pictures = home
	}
	return Config{
		Captions: CaptionsConfig{Top: meme.TopPlaceholder, Bottom: meme.BottomPlaceholder},
		Style: StyleConfig{
			Variant:     "classic",
			Size:        canvas.DefaultFontSize,
			StrokeWidth: canvas.DefaultStrokeWidth,
			Fit:         "fill",
		},
		Picker: PickerConfig{Dir: pictures},
		Share: ShareConfig{
			Dir:       filepath.Join(pictures, appName),
			Format:    "png",
			Quality:   90,
			Sidecar:   true,
			Clipboard: false,
		},
		Log:       LogConfig{Level: "info", File: filepath.Join(xdg.StateHome, appName, appName+".log")},
		Telemetry: TelemetryConfig{Dir: filepath.Join(xdg.StateHome, appName)},
		UI:        UIConfig{Theme: "classic"},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/mememe/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Load reads path over the defaults, applies MEMEME_* env overrides and
// validates. A missing file is not an error; an empty path means DefaultPath.
func Load(path string) (Config, error) {
	const op = "config.Load"
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	applyEnv(&cfg, os.Getenv)
	cfg.Picker.Dir = expandHome(cfg.Picker.Dir)
	cfg.Share.Dir = expandHome(cfg.Share.Dir)
	cfg.Style.Font = expandHome(cfg.Style.Font)
	cfg.Log.File = expandHome(cfg.Log.File)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("MEMEME_EXPORT_DIR"); v != "" {
		cfg.Share.Dir = v
	}
	if v := getenv("MEMEME_CAMERA_COMMAND"); v != "" {
		cfg.Picker.CameraCommand = v
	}
	if v := getenv("MEMEME_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("MEMEME_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	cfg.Telemetry.Enabled = getEnvAsBool(getenv("MEMEME_TELEMETRY"), cfg.Telemetry.Enabled)
}

func getEnvAsBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func (c Config) Validate() error {
	var errs []error
	if _, err := canvas.StyleByName(c.Style.Variant); err != nil {
		errs = append(errs, err)
	}
	if _, err := canvas.ParseFit(c.Style.Fit); err != nil {
		errs = append(errs, err)
	}
	if c.Style.Size < canvas.MinFontSize || c.Style.Size > 400 {
		errs = append(errs, fmt.Errorf("style.size %.1f out of range [%.0f, 400]", c.Style.Size, canvas.MinFontSize))
	}
	if c.Style.StrokeWidth < -20 || c.Style.StrokeWidth > 20 {
		errs = append(errs, fmt.Errorf("style.stroke_width %.1f out of range [-20, 20]", c.Style.StrokeWidth))
	}
	if _, err := share.ParseFormat(c.Share.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Share.Quality < 1 || c.Share.Quality > 100 {
		errs = append(errs, fmt.Errorf("share.jpeg_quality %d out of range [1, 100]", c.Share.Quality))
	}
	if c.Share.Dir == "" {
		errs = append(errs, errors.New("share.dir is empty"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.UI.Theme) {
	case "classic", "neon", "mono":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q (want classic|neon|mono)", c.UI.Theme))
	}
	if strings.TrimSpace(c.Captions.Top) == "" || strings.TrimSpace(c.Captions.Bottom) == "" {
		errs = append(errs, errors.New("caption placeholders must not be empty"))
	}
	return errors.Join(errs...)
}

// CanvasStyle resolves the style section into a canvas.Style.
func (c Config) CanvasStyle() (canvas.Style, error) {
	s, err := canvas.StyleByName(c.Style.Variant)
	if err != nil {
		return canvas.Style{}, err
	}
	s.FontSize = c.Style.Size
	s.StrokeWidth = c.Style.StrokeWidth
	return s, nil
}

// Exporter builds the share exporter described by the share section.
func (c Config) Exporter() (*share.Exporter, error) {
	f, err := share.ParseFormat(c.Share.Format)
	if err != nil {
		return nil, err
	}
	return &share.Exporter{
		Dir:       c.Share.Dir,
		Format:    f,
		Quality:   c.Share.Quality,
		Sidecar:   c.Share.Sidecar,
		Clipboard: c.Share.Clipboard,
	}, nil
}
