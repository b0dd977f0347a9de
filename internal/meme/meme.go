package meme

import (
	"image"
	"time"
)

// Meme is the record of a completed share.
// It's built once and never mutated; accessors only.
type Meme struct {
	topText    string
	bottomText string
	original   image.Image
	rendered   image.Image
	createdAt  time.Time
}

func New(top, bottom string, original, rendered image.Image, at time.Time) Meme {
	return Meme{
		topText:    top,
		bottomText: bottom,
		original:   original,
		rendered:   rendered,
		createdAt:  at,
	}
}

func (m Meme) TopText() string       { return m.topText }
func (m Meme) BottomText() string    { return m.bottomText }
func (m Meme) Original() image.Image { return m.original }
func (m Meme) Rendered() image.Image { return m.rendered }
func (m Meme) CreatedAt() time.Time  { return m.createdAt }
