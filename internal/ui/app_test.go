package ui

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/mememe/internal/meme"
	"github.com/idilsaglam/mememe/internal/picker"
	"github.com/idilsaglam/mememe/internal/session"
	"github.com/idilsaglam/mememe/internal/share"
)

var red = color.RGBA{0xff, 0, 0, 0xff}

type harness struct {
	m     *Model
	msgs  chan tea.Msg
	dir   string
	out   string
	memes chan meme.Meme
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		msgs:  make(chan tea.Msg, 8),
		dir:   dir,
		out:   filepath.Join(dir, "out"),
		memes: make(chan meme.Meme, 1),
	}
	exp := &share.Exporter{
		Dir:    h.out,
		Format: share.PNG,
		Now:    func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	m, err := New(context.Background(), Config{
		Theme:     ThemeByName("mono"),
		PickerDir: dir,
		Exporter:  exp,
		OnMeme:    func(mm meme.Meme) { h.memes <- mm },
	})
	require.NoError(t, err)
	m.bridge.set(func(msg tea.Msg) { h.msgs <- msg })
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 22})
	h.m = m
	return h
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func async(cmd tea.Cmd) <-chan tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	return ch
}

func receive[T any](t *testing.T, ch <-chan tea.Msg) T {
	t.Helper()
	select {
	case msg := <-ch:
		v, ok := msg.(T)
		require.Truef(t, ok, "unexpected message %T", msg)
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, red)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func (h *harness) pick(t *testing.T) {
	t.Helper()
	path := writePNG(t, h.dir, "cat.png", 64, 48)
	_, cmd := h.m.Update(keyRunes("o"))
	require.NotNil(t, cmd)
	done := async(cmd)

	h.m.Update(receive[openPickerMsg](t, h.msgs))
	require.Equal(t, modePicker, h.m.mode)
	h.m.closePicker(pickReply{path: path})

	h.m.Update(receive[pickedMsg](t, done))
	require.Equal(t, session.Editing, h.m.ctrl.State())
}

func TestInitialScreen(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, session.Empty, h.m.ctrl.State())
	assert.False(t, h.m.keys.Share.Enabled())

	_, cmd := h.m.Update(keyRunes("s"))
	assert.Nil(t, cmd)

	v := h.m.View()
	assert.Contains(t, v, "MemeMe")
	assert.Contains(t, v, "TOP")
	assert.Contains(t, v, "BOTTOM")
	assert.Contains(t, v, "press o to open a photo")
	assert.Len(t, strings.Split(v, "\n"), 22)
}

func TestPickFromLibrary(t *testing.T) {
	h := newHarness(t)
	h.pick(t)

	assert.Equal(t, modeNav, h.m.mode)
	assert.True(t, h.m.keys.Share.Enabled())
	require.NotNil(t, h.m.preview)
	assert.Equal(t, image.Pt(40, 40), h.m.preview.Bounds().Size())
	assert.Contains(t, h.m.notice, "photo loaded")
}

func TestPickCancelledWithEsc(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.m.Update(keyRunes("o"))
	done := async(cmd)
	h.m.Update(receive[openPickerMsg](t, h.msgs))

	h.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeNav, h.m.mode)

	h.m.Update(receive[pickedMsg](t, done))
	assert.Equal(t, session.Empty, h.m.ctrl.State())
	assert.Equal(t, "pick cancelled", h.m.notice)
}

func TestCameraWithoutCommand(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.m.keys.Camera.Enabled())
	cmd := h.m.pick(picker.Camera)
	assert.Nil(t, cmd)
	assert.True(t, h.m.noticeErr)
}

func TestEditCaption(t *testing.T) {
	h := newHarness(t)

	h.m.Update(keyRunes("t"))
	require.Equal(t, modeEdit, h.m.mode)
	assert.Equal(t, meme.Top, h.m.ctrl.Active())
	assert.Equal(t, "", h.m.ti.Value())
	assert.False(t, h.m.toolbar.Visible())

	h.m.Update(keyRunes("hi"))
	h.m.Update(keyRunes("!"))
	assert.Equal(t, "HI!", h.m.ti.Value())
	assert.Equal(t, "HI!", h.m.ctrl.Field(meme.Top).Text)

	h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modeNav, h.m.mode)
	f := h.m.ctrl.Field(meme.Top)
	assert.False(t, f.Editing)
	assert.Equal(t, "HI!", f.Text)
	assert.True(t, h.m.toolbar.Visible())
}

func TestEditEmptyRestoresPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.m.Update(keyRunes("b"))
	h.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "BOTTOM", h.m.ctrl.Field(meme.Bottom).Text)
	assert.Equal(t, meme.None, h.m.ctrl.Active())
}

func TestTabSwitchesField(t *testing.T) {
	h := newHarness(t)
	h.m.Update(keyRunes("t"))
	h.m.Update(keyRunes("a"))
	h.m.Update(tea.KeyMsg{Type: tea.KeyTab})

	assert.Equal(t, meme.Bottom, h.m.ctrl.Active())
	assert.False(t, h.m.ctrl.Field(meme.Top).Editing)
	assert.Equal(t, "A", h.m.ctrl.Field(meme.Top).Text)
	assert.Equal(t, "", h.m.ti.Value())
}

func TestInputPanelAvoidance(t *testing.T) {
	h := newHarness(t)

	h.m.Update(keyRunes("b"))
	assert.Equal(t, -panelHeight, h.m.ctrl.Offset())
	assert.Len(t, h.m.body(), h.m.rows())
	assert.Contains(t, h.m.View(), "Edit bottom caption")

	h.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 0, h.m.ctrl.Offset())

	h.m.Update(keyRunes("t"))
	assert.Equal(t, 0, h.m.ctrl.Offset())
}

func TestShareExportsFile(t *testing.T) {
	h := newHarness(t)
	h.pick(t)

	_, cmd := h.m.Update(keyRunes("s"))
	require.NotNil(t, cmd)
	done := async(cmd)

	h.m.Update(receive[openSheetMsg](t, h.msgs))
	require.Equal(t, modeSheet, h.m.mode)
	assert.Equal(t, "meme-20240102-030405", h.m.name.Value())

	_, export := h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, export)
	assert.Nil(t, export())

	saved := filepath.Join(h.out, "meme-20240102-030405.png")
	shared := receive[sharedMsg](t, done)
	require.NoError(t, shared.err)
	assert.Equal(t, saved, shared.path)
	h.m.Update(shared)
	assert.Equal(t, session.Editing, h.m.ctrl.State())
	assert.Equal(t, "saved "+saved, h.m.notice)

	mm := <-h.memes
	assert.Equal(t, "TOP", mm.TopText())
	assert.Equal(t, "BOTTOM", mm.BottomText())

	f, err := os.Open(saved)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	// matches the 40x40 cell preview at the photo's resolution
	assert.Equal(t, image.Pt(48, 48), img.Bounds().Size())
	// toolbar is never captured
	r, g, b, _ := img.At(0, 47).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
	assert.True(t, h.m.toolbar.Visible())
}

func TestSecondShareReportsItsOwnFile(t *testing.T) {
	h := newHarness(t)
	h.pick(t)

	for _, want := range []string{"meme-20240102-030405.png", "meme-20240102-030405-1.png"} {
		_, cmd := h.m.Update(keyRunes("s"))
		done := async(cmd)
		h.m.Update(receive[openSheetMsg](t, h.msgs))
		_, export := h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		go export()

		h.m.Update(receive[sharedMsg](t, done))
		assert.Equal(t, "saved "+filepath.Join(h.out, want), h.m.notice)

		mm := <-h.memes
		_, held := h.m.exporter.PathOf(mm.Rendered())
		assert.False(t, held, "the exporter drops bitmaps once shared")
	}
}

func TestShareCancelled(t *testing.T) {
	h := newHarness(t)
	h.pick(t)

	_, cmd := h.m.Update(keyRunes("s"))
	done := async(cmd)
	h.m.Update(receive[openSheetMsg](t, h.msgs))
	h.m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	h.m.Update(receive[sharedMsg](t, done))
	assert.Equal(t, "share cancelled", h.m.notice)
	assert.Equal(t, session.Editing, h.m.ctrl.State())
	assert.NoDirExists(t, h.out)
}

func TestResetDuringShare(t *testing.T) {
	h := newHarness(t)
	h.pick(t)

	_, cmd := h.m.Update(keyRunes("s"))
	done := async(cmd)
	h.m.Update(receive[openSheetMsg](t, h.msgs))

	h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, modeNav, h.m.mode)
	assert.Nil(t, h.m.preview)

	h.m.Update(receive[sharedMsg](t, done))
	assert.Equal(t, session.Empty, h.m.ctrl.State())
	assert.False(t, h.m.ctrl.CanShare())
}

func TestQuitCancelsPendingPick(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.m.Update(keyRunes("o"))
	done := async(cmd)
	h.m.Update(receive[openPickerMsg](t, h.msgs))

	_, quit := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())

	picked := receive[pickedMsg](t, done)
	assert.ErrorIs(t, picked.err, meme.ErrCancelled)
}
