// Package layout keeps the active caption visible when the input panel
// (the terminal's stand-in for an on-screen keyboard) covers the screen bottom.
package layout

import "image"

// ComputeOffset returns the vertical shift to apply to the container so the
// field stays visible above a keyboard of the given height: -keyboardHeight
// when the field's bottom edge would be covered, 0 otherwise.
func ComputeOffset(field image.Rectangle, keyboardHeight, containerHeight int) int {
	fieldBottom := field.Max.Y
	visibleHeight := containerHeight - keyboardHeight
	if visibleHeight-fieldBottom < 0 {
		return -keyboardHeight
	}
	return 0
}

// Avoider tracks whether the keyboard is shown. Offsets are not cumulative,
// so a new shift is only computed on the hidden->shown transition.
type Avoider struct {
	shown bool
	shift int
}

// Show handles a keyboard-shown event and returns the current shift.
// Repeated calls while shown leave the shift alone.
func (a *Avoider) Show(field image.Rectangle, keyboardHeight, containerHeight int) int {
	if a.shown {
		return a.shift
	}
	a.shown = true
	a.shift = ComputeOffset(field, keyboardHeight, containerHeight)
	return a.shift
}

// Hide handles a keyboard-hidden event; the shift is always reset to 0.
func (a *Avoider) Hide() {
	a.shown = false
	a.shift = 0
}

func (a *Avoider) Shift() int  { return a.shift }
func (a *Avoider) Shown() bool { return a.shown }
