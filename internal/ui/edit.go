package ui

import "github.com/idilsaglam/mememe/internal/meme"

// diffEdit reduces the change from old to cur to one replaced rune range of
// old, which is how a text widget reports a keystroke, paste or deletion.
func diffEdit(old, cur string) (meme.Range, string) {
	a, b := []rune(old), []rune(cur)
	p := 0
	for p < len(a) && p < len(b) && a[p] == b[p] {
		p++
	}
	s := 0
	for s < len(a)-p && s < len(b)-p && a[len(a)-1-s] == b[len(b)-1-s] {
		s++
	}
	return meme.Range{Start: p, End: len(a) - s}, string(b[p : len(b)-s])
}
