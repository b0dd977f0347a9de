package ui

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/idilsaglam/mememe/internal/meme"
)

func TestDiffEdit(t *testing.T) {
	tests := []struct {
		name     string
		old, cur string
		want     meme.Range
		repl     string
	}{
		{"append", "AB", "ABc", meme.Range{Start: 2, End: 2}, "c"},
		{"insert middle", "AC", "AbC", meme.Range{Start: 1, End: 1}, "b"},
		{"backspace", "ABC", "AC", meme.Range{Start: 1, End: 2}, ""},
		{"repeated rune", "AA", "AAA", meme.Range{Start: 2, End: 2}, "A"},
		{"replace all", "OLD", "new", meme.Range{Start: 0, End: 3}, "new"},
		{"multibyte", "HÉLLO", "HELLO", meme.Range{Start: 1, End: 2}, "E"},
		{"paste", "", "hello world", meme.Range{Start: 0, End: 0}, "hello world"},
		{"unchanged", "SAME", "SAME", meme.Range{Start: 4, End: 4}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, repl := diffEdit(tt.old, tt.cur)
			assert.Equal(t, tt.want, r)
			assert.Equal(t, tt.repl, repl)

			// applying the edit to old yields cur
			f := meme.CaptionField{Text: tt.old}
			f.ApplyInput(r, repl)
			assert.Equal(t, strings.ToUpper(tt.cur), f.Text)
		})
	}
}

func TestToolbarShadesBottomRow(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	tb := newToolbar()
	assert.True(t, tb.Visible())
	assert.NoError(t, tb.Draw(img))

	assert.Equal(t, uint8(0xff), img.RGBAAt(0, 1).R)
	assert.Less(t, img.RGBAAt(0, 2).R, uint8(0xff))
	assert.Less(t, img.RGBAAt(3, 3).R, uint8(0xff))

	tb.SetVisible(false)
	assert.False(t, tb.Visible())
}

func TestPreviewRow(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, red)
	img.SetRGBA(1, 0, red)
	img.SetRGBA(0, 1, blue)
	img.SetRGBA(1, 1, blue)

	assert.Equal(t, fg(red)+bg(blue)+upperHalf+upperHalf+ansiReset, previewRow(img, 0, 0, 2))
	assert.Equal(t, "", previewRow(img, 0, 1, 1))
	assert.Equal(t, "", previewRow(nil, 0, 0, 2))
}

func TestThemeByName(t *testing.T) {
	assert.Equal(t, "classic", ThemeByName("").Name)
	assert.Equal(t, "classic", ThemeByName("nope").Name)
	assert.Equal(t, "neon", ThemeByName("NEON").Name)

	mono := ThemeByName("mono")
	assert.Equal(t, lipgloss.ASCIIBorder(), mono.Border)
	assert.Equal(t, "ok", mono.SymOK)
}

func TestPanelLinesPadsToHeight(t *testing.T) {
	st := newStyles(ThemeByName("mono"))
	lines := panelLines(st.panel, "title", "body", 20, 6)
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[1], "title")
	assert.Equal(t, "", lines[5])

	lines = panelLines(st.panel, "title", "a\nb\nc\nd", 20, 3)
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "d")
}

func TestPrinter(t *testing.T) {
	var out, errw bytes.Buffer
	p := NewPrinter(&out, &errw, ThemeByName("mono"))

	p.OK("saved")
	p.Fail("boom")
	p.Panel([]string{p.Title("MemeMe"), p.Field("top", "HELLO")})

	assert.Contains(t, out.String(), "ok saved")
	assert.Contains(t, errw.String(), "x boom")
	assert.Contains(t, out.String(), "HELLO")
	assert.Contains(t, out.String(), "+")
}
