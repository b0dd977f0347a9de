package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"
)

// Caption styling. Sizes are in points on a canvas ReferenceHeight tall and
// scale linearly with the real canvas height.
const (
	ReferenceHeight = 600.0

	DefaultFontSize    = 40.0
	DefaultStrokeWidth = 3.0
	MinFontSize        = 8.0

	// caption margins as a fraction of canvas height
	DefaultTopAnchor    = 0.04
	DefaultBottomAnchor = 0.04

	lineHeight = 1.25
)

var (
	White = color.RGBA{0xff, 0xff, 0xff, 0xff}
	Black = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// Style is the fixed caption look.
type Style struct {
	Name         string
	Fill         color.Color
	Stroke       color.Color
	StrokeWidth  float64
	FontSize     float64
	TopAnchor    float64
	BottomAnchor float64
}

// ClassicStyle: white fill, black outline.
func ClassicStyle() Style {
	return Style{
		Name:         "classic",
		Fill:         White,
		Stroke:       Black,
		StrokeWidth:  DefaultStrokeWidth,
		FontSize:     DefaultFontSize,
		TopAnchor:    DefaultTopAnchor,
		BottomAnchor: DefaultBottomAnchor,
	}
}

// InvertedStyle: black fill, white outline.
func InvertedStyle() Style {
	s := ClassicStyle()
	s.Name = "inverted"
	s.Fill, s.Stroke = Black, White
	return s
}

var styles = map[string]func() Style{
	"classic":  ClassicStyle,
	"inverted": InvertedStyle,
}

func StyleByName(name string) (Style, error) {
	mk, ok := styles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Style{}, fmt.Errorf("unknown style %q (have %s)", name, strings.Join(StyleNames(), ", "))
	}
	return mk(), nil
}

func StyleNames() []string {
	names := make([]string, 0, len(styles))
	for n := range styles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fit controls how the background is scaled into the canvas bounds.
type Fit int

const (
	// FitFill scales to cover the bounds and crops the overflow.
	FitFill Fit = iota
	// FitContain scales to fit inside the bounds, letterboxed in black.
	FitContain
)

func ParseFit(s string) (Fit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fill":
		return FitFill, nil
	case "fit", "contain":
		return FitContain, nil
	}
	return 0, fmt.Errorf("unknown fit %q (want fill|fit)", s)
}

func (f Fit) String() string {
	if f == FitContain {
		return "fit"
	}
	return "fill"
}

// MatchAspect returns output bounds with the aspect ratio of the on-screen
// canvas at roughly the background's resolution. Fill keeps the cropped
// region at native pixels; contain keeps the whole image at native pixels.
func MatchAspect(visible, native image.Point, fit Fit) image.Point {
	if visible.X <= 0 || visible.Y <= 0 || native.X <= 0 || native.Y <= 0 {
		return native
	}
	sx := float64(native.X) / float64(visible.X)
	sy := float64(native.Y) / float64(visible.Y)
	s := math.Min(sx, sy)
	if fit == FitContain {
		s = math.Max(sx, sy)
	}
	return image.Pt(
		max(1, int(math.Round(float64(visible.X)*s))),
		max(1, int(math.Round(float64(visible.Y)*s))),
	)
}
