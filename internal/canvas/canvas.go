// Package canvas flattens a background image and the two captions into a
// single bitmap.
package canvas

import (
	"fmt"
	"image"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/idilsaglam/mememe/internal/meme"
)

// Layer draws one slice of the visible stack.
type Layer interface {
	Draw(dst draw.Image) error
}

// LayerFunc adapts a function to Layer.
type LayerFunc func(dst draw.Image) error

func (f LayerFunc) Draw(dst draw.Image) error { return f(dst) }

// Decorations is screen chrome (toolbars) that sits on top of the canvas.
// It is drawn when visible, and Render always hides it for the capture.
type Decorations interface {
	Layer
	Visible() bool
	SetVisible(bool)
}

type Canvas struct {
	mu       sync.Mutex
	style    Style
	font     *Font
	fit      Fit
	bounds   image.Point
	decor    Decorations
	overlays []Layer
}

type Option func(*Canvas)

func WithStyle(s Style) Option { return func(c *Canvas) { c.style = s } }
func WithFont(f *Font) Option  { return func(c *Canvas) { c.font = f } }
func WithFit(f Fit) Option     { return func(c *Canvas) { c.fit = f } }

// WithBounds fixes the output size. Without it, Render uses the
// background's native size.
func WithBounds(size image.Point) Option { return func(c *Canvas) { c.bounds = size } }

func WithDecorations(d Decorations) Option { return func(c *Canvas) { c.decor = d } }

// WithOverlay adds a layer drawn above the captions.
func WithOverlay(l Layer) Option { return func(c *Canvas) { c.overlays = append(c.overlays, l) } }

func New(opts ...Option) (*Canvas, error) {
	c := &Canvas{style: ClassicStyle()}
	for _, o := range opts {
		o(c)
	}
	if c.font == nil {
		f, err := DefaultFont()
		if err != nil {
			return nil, err
		}
		c.font = f
	}
	return c, nil
}

func (c *Canvas) SetBounds(size image.Point) {
	c.mu.Lock()
	c.bounds = size
	c.mu.Unlock()
}

func (c *Canvas) Style() Style { return c.style }

// Render composites background, top caption and bottom caption, in that
// order, into a new bitmap the size of the canvas bounds. Decorations are
// hidden for the duration and their prior visibility is restored on every
// exit path, including a failing or panicking layer.
func (c *Canvas) Render(bg image.Image, top, bottom string) (*image.RGBA, error) {
	if bg == nil {
		return nil, fmt.Errorf("render: no background image: %w", meme.ErrPrecondition)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.decor != nil {
		prev := c.decor.Visible()
		c.decor.SetVisible(false)
		defer c.decor.SetVisible(prev)
	}

	size := c.bounds
	if size == (image.Point{}) {
		size = bg.Bounds().Size()
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("render: empty bounds %v: %w", size, meme.ErrPrecondition)
	}

	dst := image.NewRGBA(image.Rectangle{Max: size})
	layers := []Layer{
		LayerFunc(func(dst draw.Image) error { return drawBackground(dst, bg, c.fit) }),
		c.captionLayer(meme.Top, top),
		c.captionLayer(meme.Bottom, bottom),
	}
	layers = append(layers, c.overlays...)
	if c.decor != nil && c.decor.Visible() {
		layers = append(layers, c.decor)
	}
	for _, l := range layers {
		if err := l.Draw(dst); err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
	}
	return dst, nil
}

// CaptionRect is the full-width box a caption occupies on a canvas of the
// given size.
func (c *Canvas) CaptionRect(which meme.Which, size image.Point) image.Rectangle {
	return captionRect(c.style, which, size)
}

func captionRect(s Style, which meme.Which, size image.Point) image.Rectangle {
	h := int(math.Ceil(scaledSize(s.FontSize, size.Y) * lineHeight))
	switch which {
	case meme.Top:
		y0 := int(math.Round(s.TopAnchor * float64(size.Y)))
		return image.Rect(0, y0, size.X, y0+h)
	case meme.Bottom:
		y1 := size.Y - int(math.Round(s.BottomAnchor*float64(size.Y)))
		return image.Rect(0, y1-h, size.X, y1)
	}
	return image.Rectangle{}
}

func scaledSize(pt float64, height int) float64 {
	return pt * float64(height) / ReferenceHeight
}

func (c *Canvas) captionLayer(which meme.Which, text string) Layer {
	return LayerFunc(func(dst draw.Image) error {
		if text == "" {
			return nil
		}
		return c.drawCaption(dst, which, text)
	})
}

func (c *Canvas) drawCaption(dst draw.Image, which meme.Which, text string) error {
	size := dst.Bounds().Size()
	box := captionRect(c.style, which, size)

	pt := scaledSize(c.style.FontSize, size.Y)
	face, err := c.font.Face(pt)
	if err != nil {
		return err
	}
	// shrink until the caption fits the width
	maxW := size.X - 2*int(math.Ceil(pt/2))
	if w := font.MeasureString(face, text).Ceil(); w > maxW && maxW > 0 {
		shrunk := math.Max(pt*float64(maxW)/float64(w), scaledSize(MinFontSize, size.Y))
		if face, err = c.font.Face(shrunk); err != nil {
			return err
		}
	}

	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	width := font.MeasureString(face, text).Ceil()
	stroke := int(math.Round(math.Abs(scaledSize(c.style.StrokeWidth, size.Y))))

	mask := image.NewAlpha(image.Rect(0, 0, width+2*stroke, ascent+descent+2*stroke))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(stroke, stroke+ascent),
	}
	d.DrawString(text)

	origin := image.Pt(
		(size.X-width)/2-stroke,
		box.Min.Y+(box.Dy()-(ascent+descent))/2-stroke,
	)
	at := mask.Bounds().Add(origin)

	strokeSrc := image.NewUniform(c.style.Stroke)
	for _, off := range strokeOffsets(stroke) {
		draw.DrawMask(dst, at.Add(off), strokeSrc, image.Point{}, mask, image.Point{}, draw.Over)
	}
	draw.DrawMask(dst, at, image.NewUniform(c.style.Fill), image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

// strokeOffsets returns the offsets the glyph mask is stamped at to build
// the outline. Small radii use the full disc; larger ones sample two rings.
func strokeOffsets(r int) []image.Point {
	if r <= 0 {
		return nil
	}
	var pts []image.Point
	if r <= 4 {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if (dx != 0 || dy != 0) && dx*dx+dy*dy <= r*r {
					pts = append(pts, image.Pt(dx, dy))
				}
			}
		}
		return pts
	}
	seen := make(map[image.Point]bool)
	for _, rad := range []float64{float64(r), float64(r) / 2} {
		n := int(math.Ceil(2 * math.Pi * rad))
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			p := image.Pt(int(math.Round(rad*math.Cos(a))), int(math.Round(rad*math.Sin(a))))
			if !seen[p] {
				seen[p] = true
				pts = append(pts, p)
			}
		}
	}
	return pts
}

func drawBackground(dst draw.Image, bg image.Image, fit Fit) error {
	db, sb := dst.Bounds(), bg.Bounds()
	if sb.Empty() {
		return fmt.Errorf("background has empty bounds: %w", meme.ErrPrecondition)
	}
	dw, dh := db.Dx(), db.Dy()
	sw, sh := sb.Dx(), sb.Dy()

	switch fit {
	case FitContain:
		draw.Draw(dst, db, image.NewUniform(Black), image.Point{}, draw.Src)
		w, h := dw, dh
		if sw*dh > sh*dw {
			h = max(1, sh*dw/sw)
		} else {
			w = max(1, sw*dh/sh)
		}
		r := image.Rect(0, 0, w, h).Add(db.Min).Add(image.Pt((dw-w)/2, (dh-h)/2))
		draw.BiLinear.Scale(dst, r, bg, sb, draw.Over, nil)
	default:
		src := sb
		if sw*dh > sh*dw {
			cw := max(1, sh*dw/dh)
			src.Min.X += (sw - cw) / 2
			src.Max.X = src.Min.X + cw
		} else {
			ch := max(1, sw*dh/dw)
			src.Min.Y += (sh - ch) / 2
			src.Max.Y = src.Min.Y + ch
		}
		draw.BiLinear.Scale(dst, db, bg, src, draw.Src, nil)
	}
	return nil
}
