package ui

import (
	"image"
	"image/color"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// toolbar is the action strip along the bottom of the preview. It is a
// canvas decoration, so exports never include it.
type toolbar struct {
	visible atomic.Bool
}

func newToolbar() *toolbar {
	t := &toolbar{}
	t.visible.Store(true)
	return t
}

func (t *toolbar) Visible() bool     { return t.visible.Load() }
func (t *toolbar) SetVisible(v bool) { t.visible.Store(v) }

// Draw shades the last cell row (two pixel rows) of dst.
func (t *toolbar) Draw(dst draw.Image) error {
	b := dst.Bounds()
	strip := image.Rect(b.Min.X, b.Max.Y-2, b.Max.X, b.Max.Y).Intersect(b)
	draw.Draw(dst, strip, image.NewUniform(color.RGBA{A: 0xb0}), image.Point{}, draw.Over)
	return nil
}
