package meme

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Which names a caption slot.
type Which int

const (
	None Which = iota
	Top
	Bottom
)

func (w Which) String() string {
	switch w {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return "none"
	}
}

// Default placeholders shown when a caption is empty and not being edited.
const (
	TopPlaceholder    = "TOP"
	BottomPlaceholder = "BOTTOM"
)

// Range is a half-open rune range [Start, End) into a caption's text.
type Range struct {
	Start, End int
}

// CaptionField is one editable caption slot.
type CaptionField struct {
	Text        string
	Placeholder string
	Editing     bool
}

func NewCaptionField(placeholder string) *CaptionField {
	return &CaptionField{Text: placeholder, Placeholder: placeholder}
}

// BeginEdit enters edit mode, dropping the placeholder so typing starts clean.
func (f *CaptionField) BeginEdit() {
	f.Editing = true
	if f.Text == f.Placeholder {
		f.Text = ""
	}
}

// ApplyInput replaces r with replacement and upper-cases the whole result.
// The field stores the result itself; callers must display the returned
// text instead of applying the raw edit.
func (f *CaptionField) ApplyInput(r Range, replacement string) string {
	old := []rune(f.Text)
	start, end := clamp(r.Start, 0, len(old)), clamp(r.End, 0, len(old))
	if end < start {
		start, end = end, start
	}
	candidate := string(old[:start]) + replacement + string(old[end:])
	f.Text = upper(candidate)
	return f.Text
}

// EndEdit leaves edit mode, restoring the placeholder on an empty caption.
func (f *CaptionField) EndEdit() {
	f.Editing = false
	if f.Text == "" {
		f.Text = f.Placeholder
	}
}

// Display is what the caption shows on screen.
func (f *CaptionField) Display() string {
	if !f.Editing && f.Text == "" {
		return f.Placeholder
	}
	return f.Text
}

func (f *CaptionField) Reset() {
	f.Editing = false
	f.Text = f.Placeholder
}

// upper uses a fresh Caser per call; Casers carry state and aren't safe to share.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
