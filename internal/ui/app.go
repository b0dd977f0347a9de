// Package ui is the terminal editing screen: a half-block preview of the
// background with both captions, an input panel for editing them, a file
// browser for picking photos and a save sheet for sharing.
package ui

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/mememe/internal/canvas"
	"github.com/idilsaglam/mememe/internal/meme"
	"github.com/idilsaglam/mememe/internal/picker"
	"github.com/idilsaglam/mememe/internal/session"
	"github.com/idilsaglam/mememe/internal/share"
)

// panelHeight is the caption input panel, the screen's keyboard:
// border, title, input, border.
const panelHeight = 4

// Config wires the screen to its collaborators.
type Config struct {
	Theme     Theme
	Style     canvas.Style
	Font      *canvas.Font // nil = Go Bold
	Fit       canvas.Fit
	PickerDir string
	Camera    *picker.CameraCapture // nil = no camera
	Exporter  *share.Exporter
	Top       string // placeholders; empty keeps the defaults
	Bottom    string
	Logger    *slog.Logger
	OnMeme    func(meme.Meme)
}

type mode int

const (
	modeNav mode = iota
	modeEdit
	modePicker
	modeSheet
)

type (
	pickedMsg struct {
		src picker.Source
		err error
	}
	// sharedMsg carries the path the meme was saved to so the notice
	// never depends on message order.
	sharedMsg struct {
		meme *meme.Meme
		path string
		err  error
	}
)

type keyMap struct {
	Open, Camera, Top, Bottom, Share, Reset, Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Camera, k.Top, k.Bottom, k.Share, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func newKeyMap() keyMap {
	return keyMap{
		Open:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Camera: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "camera")),
		Top:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "top")),
		Bottom: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bottom")),
		Share:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "share")),
		Reset:  key.NewBinding(key.WithKeys("x", "ctrl+r"), key.WithHelp("x", "reset")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// geometry is read by the controller's frame callback.
type geometry struct {
	mu          sync.Mutex
	width, rows int
}

func (g *geometry) set(width, rows int) {
	g.mu.Lock()
	g.width, g.rows = width, rows
	g.mu.Unlock()
}

func (g *geometry) get() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.width, g.rows
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	ctrl     *session.Controller
	bridge   *bridge
	geo      *geometry
	exporter *share.Exporter

	previewCanvas *canvas.Canvas
	exportCanvas  *canvas.Canvas
	toolbar       *toolbar
	fit           canvas.Fit
	pickerDir     string
	hasCamera     bool

	theme Theme
	st    styles
	keys  keyMap
	help  help.Model

	width, height int
	mode          mode
	preview       *image.RGBA

	ti        textinput.Model // caption input
	name      textinput.Model // share sheet file name
	fp        filepicker.Model
	pickReply chan<- pickReply
	sheet     *openSheetMsg

	notice    string
	noticeErr bool
}

func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Exporter == nil {
		return nil, errors.New("ui: no exporter")
	}
	if cfg.Style.Name == "" {
		cfg.Style = canvas.ClassicStyle()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	opts := []canvas.Option{canvas.WithStyle(cfg.Style), canvas.WithFit(cfg.Fit)}
	if cfg.Font != nil {
		opts = append(opts, canvas.WithFont(cfg.Font))
	}
	previewCanvas, err := canvas.New(opts...)
	if err != nil {
		return nil, err
	}
	tb := newToolbar()
	exportCanvas, err := canvas.New(append(opts, canvas.WithDecorations(tb))...)
	if err != nil {
		return nil, err
	}

	b := &bridge{}
	sopts := []session.Option{session.WithLogger(log)}
	if cfg.Top != "" && cfg.Bottom != "" {
		sopts = append(sopts, session.WithPlaceholders(cfg.Top, cfg.Bottom))
	}
	if cfg.OnMeme != nil {
		sopts = append(sopts, session.OnMeme(cfg.OnMeme))
	}
	ctrl := session.New(libraryGateway{b: b, camera: cfg.Camera}, shareSheet{b: b}, exportCanvas, sopts...)

	geo := &geometry{}
	ctrl.SetFrames(func(which meme.Which) (image.Rectangle, int) {
		w, rows := geo.get()
		px := previewCanvas.CaptionRect(which, image.Pt(w, 2*rows))
		return image.Rect(0, px.Min.Y/2, w, (px.Max.Y+1)/2), rows
	})

	ctx, cancel := context.WithCancel(ctx)
	m := &Model{
		ctx:           ctx,
		cancel:        cancel,
		log:           log,
		ctrl:          ctrl,
		bridge:        b,
		geo:           geo,
		exporter:      cfg.Exporter,
		previewCanvas: previewCanvas,
		exportCanvas:  exportCanvas,
		toolbar:       tb,
		fit:           cfg.Fit,
		pickerDir:     cfg.PickerDir,
		hasCamera:     ctrl.CameraAvailable(),
		theme:         cfg.Theme,
		st:            newStyles(cfg.Theme),
		keys:          newKeyMap(),
		help:          help.New(),
	}
	m.help.Styles.ShortKey = m.st.key
	m.help.Styles.ShortDesc = m.st.muted
	m.help.Styles.ShortSeparator = m.st.muted

	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.CharLimit = 120

	m.name = textinput.New()
	m.name.Prompt = "name: "
	m.name.CharLimit = 80

	m.syncKeys()
	return m, nil
}

// Run starts the screen and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	m, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.bridge.set(p.Send)
	defer m.bridge.set(nil)
	_, err = p.Run()
	return err
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case openPickerMsg:
		return m, m.openPicker(msg)
	case openSheetMsg:
		return m, m.openSheet(msg)
	case pickedMsg:
		m.onPicked(msg)
		return m, nil
	case sharedMsg:
		m.onShared(msg)
		return m, nil
	case tea.KeyMsg:
		m.notice, m.noticeErr = "", false
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()
		case "ctrl+r":
			m.reset()
			return m, nil
		}
	}

	switch m.mode {
	case modePicker:
		return m.updatePicker(msg)
	case modeSheet:
		return m.updateSheet(msg)
	case modeEdit:
		return m.updateEdit(msg)
	}
	return m.updateNav(msg)
}

func (m *Model) updateNav(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Quit):
		return m, m.quit()
	case key.Matches(k, m.keys.Reset):
		m.reset()
	case key.Matches(k, m.keys.Open):
		return m, m.pick(picker.Library)
	case key.Matches(k, m.keys.Camera):
		return m, m.pick(picker.Camera)
	case key.Matches(k, m.keys.Top):
		return m, m.beginEdit(meme.Top)
	case key.Matches(k, m.keys.Bottom):
		return m, m.beginEdit(meme.Bottom)
	case key.Matches(k, m.keys.Share):
		return m, m.share()
	}
	return m, nil
}

func (m *Model) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyEnter:
			m.endEdit(true)
			return m, nil
		case tea.KeyEsc:
			m.endEdit(false)
			return m, nil
		case tea.KeyTab:
			other := meme.Top
			if m.ctrl.Active() == meme.Top {
				other = meme.Bottom
			}
			return m, m.beginEdit(other)
		}
	}

	before := m.ti.Value()
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	if after := m.ti.Value(); after != before {
		r, repl := diffEdit(before, after)
		text := m.ctrl.ApplyInput(r, repl)
		pos := m.ti.Position() + utf8.RuneCountInString(text) - utf8.RuneCountInString(after)
		m.ti.SetValue(text)
		m.ti.SetCursor(pos)
	}
	return m, cmd
}

func (m *Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.closePicker(pickReply{err: meme.ErrCancelled})
		return m, nil
	}
	var cmd tea.Cmd
	m.fp, cmd = m.fp.Update(msg)
	if ok, path := m.fp.DidSelectFile(msg); ok {
		m.closePicker(pickReply{path: path})
		return m, cmd
	}
	if ok, path := m.fp.DidSelectDisabledFile(msg); ok {
		m.fail("not an image: " + path)
	}
	return m, cmd
}

func (m *Model) updateSheet(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyEsc:
			m.closeSheet(shareReply{})
			return m, nil
		case tea.KeyEnter:
			return m, m.export()
		}
	}
	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	return m, cmd
}

func (m *Model) pick(src picker.Source) tea.Cmd {
	if src == picker.Camera && !m.hasCamera {
		m.fail("no camera configured")
		return nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return pickedMsg{src: src, err: ctrl.PickImage(ctx, src)}
	}
}

func (m *Model) onPicked(msg pickedMsg) {
	switch {
	case msg.err == nil:
		m.refreshPreview()
		m.ok("photo loaded from " + msg.src.String())
	case errors.Is(msg.err, meme.ErrCancelled):
		m.notice = "pick cancelled"
	case errors.Is(msg.err, meme.ErrBusy):
		m.fail("busy, try again")
	default:
		m.log.Warn("pick failed", "source", msg.src.String(), "error", msg.err)
		m.fail(msg.err.Error())
	}
	m.syncKeys()
}

func (m *Model) openPicker(msg openPickerMsg) tea.Cmd {
	if m.pickReply != nil {
		m.pickReply <- pickReply{err: meme.ErrCancelled}
	}
	m.pickReply = msg.reply
	if m.mode == modeEdit {
		m.endEdit(false)
	}

	fp := filepicker.New()
	fp.CurrentDirectory = m.pickerDir
	fp.AllowedTypes = picker.Extensions
	fp.ShowPermissions = false
	fp.Styles.Selected = m.st.accent.Bold(true)
	fp.Styles.Cursor = m.st.accent
	fp, _ = fp.Update(m.pickerSize())
	m.fp = fp
	m.mode = modePicker
	return m.fp.Init()
}

// pickerSize sizes the browser to the panel interior; the browser itself
// reserves a few rows below its list.
func (m *Model) pickerSize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: m.width, Height: m.rows() + 2}
}

func (m *Model) closePicker(r pickReply) {
	if m.pickReply != nil {
		m.pickReply <- r
		m.pickReply = nil
	}
	if m.mode == modePicker {
		m.mode = modeNav
	}
}

func (m *Model) beginEdit(which meme.Which) tea.Cmd {
	if m.ctrl.Busy() {
		return nil
	}
	m.ctrl.BeginEdit(which)
	f := m.ctrl.Field(which)
	m.ti.Placeholder = f.Placeholder
	m.ti.SetValue(f.Text)
	m.ti.CursorEnd()
	m.mode = modeEdit
	m.toolbar.SetVisible(false)
	m.ctrl.OnKeyboardShow(panelHeight)
	m.refreshPreview()
	return m.ti.Focus()
}

func (m *Model) endEdit(submit bool) {
	if submit {
		m.ctrl.Submit()
	} else {
		m.ctrl.EndEdit()
	}
	m.ti.Blur()
	m.mode = modeNav
	m.toolbar.SetVisible(true)
	m.refreshPreview()
}

func (m *Model) share() tea.Cmd {
	bg := m.ctrl.Background()
	if bg == nil {
		return nil
	}
	w, rows := m.geo.get()
	m.exportCanvas.SetBounds(canvas.MatchAspect(image.Pt(w, 2*rows), bg.Bounds().Size(), m.fit))
	ctx, ctrl, exp := m.ctx, m.ctrl, m.exporter
	return func() tea.Msg {
		mm, err := ctrl.Share(ctx)
		msg := sharedMsg{meme: mm, err: err}
		if mm != nil {
			msg.path, _ = exp.Take(mm.Rendered())
		}
		return msg
	}
}

func (m *Model) openSheet(msg openSheetMsg) tea.Cmd {
	if m.sheet != nil {
		m.sheet.reply <- shareReply{}
	}
	m.sheet = &msg
	m.name.SetValue(m.exporter.DefaultName())
	m.name.CursorEnd()
	m.mode = modeSheet
	return m.name.Focus()
}

func (m *Model) closeSheet(r shareReply) {
	if m.sheet != nil {
		m.sheet.reply <- r
		m.sheet = nil
	}
	m.name.Blur()
	if m.mode == modeSheet {
		m.mode = modeNav
	}
}

func (m *Model) export() tea.Cmd {
	sheet := m.sheet
	if sheet == nil {
		return nil
	}
	m.sheet = nil
	m.name.Blur()
	m.mode = modeNav
	exp, name := m.exporter, m.name.Value()
	return func() tea.Msg {
		_, err := exp.Export(name, sheet.img)
		sheet.reply <- shareReply{completed: err == nil, err: err}
		return nil
	}
}

func (m *Model) onShared(msg sharedMsg) {
	switch {
	case msg.err != nil && errors.Is(msg.err, meme.ErrBusy):
		m.fail("busy, try again")
	case msg.err != nil:
		m.log.Warn("share failed", "error", msg.err)
		m.fail(msg.err.Error())
	case msg.meme == nil:
		m.notice = "share cancelled"
	default:
		m.ok("saved " + msg.path)
	}
	m.syncKeys()
}

// reset closes any open modal as a cancellation and clears the session.
func (m *Model) reset() {
	m.closePicker(pickReply{err: meme.ErrCancelled})
	m.closeSheet(shareReply{})
	m.ti.Blur()
	m.mode = modeNav
	m.ctrl.Reset()
	m.toolbar.SetVisible(true)
	m.preview = nil
	m.notice = "reset"
	m.syncKeys()
}

func (m *Model) quit() tea.Cmd {
	m.closePicker(pickReply{err: meme.ErrCancelled})
	m.closeSheet(shareReply{})
	m.cancel()
	return tea.Quit
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.geo.set(w, m.rows())
	m.help.Width = w
	m.ti.Width = max(1, w-8)
	m.name.Width = max(1, w-14)
	if m.mode == modePicker {
		m.fp, _ = m.fp.Update(m.pickerSize())
	}
	if m.mode == modeEdit {
		m.ctrl.OnKeyboardHide()
		m.ctrl.OnKeyboardShow(panelHeight)
	}
	m.refreshPreview()
}

// rows is the preview height: everything but the header and status lines.
func (m *Model) rows() int { return max(1, m.height-2) }

func (m *Model) refreshPreview() {
	bg := m.ctrl.Background()
	if bg == nil || m.width == 0 {
		m.preview = nil
		return
	}
	m.previewCanvas.SetBounds(image.Pt(m.width, 2*m.rows()))
	img, err := m.previewCanvas.Render(bg, "", "")
	if err != nil {
		m.log.Warn("preview render failed", "error", err)
		m.preview = nil
		return
	}
	if m.toolbar.Visible() {
		_ = m.toolbar.Draw(img)
	}
	m.preview = img
}

func (m *Model) syncKeys() {
	m.keys.Share.SetEnabled(m.ctrl.CanShare())
	m.keys.Camera.SetEnabled(m.hasCamera)
}

func (m *Model) ok(s string)   { m.notice, m.noticeErr = m.theme.SymOK+" "+s, false }
func (m *Model) fail(s string) { m.notice, m.noticeErr = m.theme.SymFail+" "+s, true }

func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')
	for _, l := range m.body() {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(m.status())
	return b.String()
}

func (m *Model) header() string {
	h := m.st.title.Render("MemeMe") + "  " + m.st.muted.Render(m.ctrl.State().String())
	if m.ctrl.Busy() {
		h += " " + m.st.pending.Render(m.theme.SymBusy)
	}
	return h
}

func (m *Model) status() string {
	switch {
	case m.notice == "":
		return m.help.View(m.keys)
	case m.noticeErr:
		return m.st.errorS.Render(m.notice)
	default:
		return m.st.success.Render(m.notice)
	}
}

func (m *Model) body() []string {
	rows := m.rows()
	switch m.mode {
	case modePicker:
		title := m.st.title.Render("Open photo") + "  " + m.st.muted.Render(m.fp.CurrentDirectory)
		return panelLines(m.st.panel, title, m.fp.View(), m.width, rows)
	case modeSheet:
		body := m.st.muted.Render("save to "+m.exporter.Dir) + "\n" + m.name.View() + "\n" +
			m.st.muted.Render("enter save, esc cancel")
		return panelLines(m.st.panel, m.st.title.Render("Share meme"), body, m.width, rows)
	}

	kb := 0
	if m.mode == modeEdit {
		kb = min(panelHeight, rows)
	}
	lines := make([]string, 0, rows)
	for r := -m.ctrl.Offset(); r < rows && len(lines) < rows-kb; r++ {
		lines = append(lines, m.previewLine(r))
	}
	for len(lines) < rows-kb {
		lines = append(lines, "")
	}
	if kb > 0 {
		title := m.st.accent.Render("Edit " + m.ctrl.Active().String() + " caption")
		lines = append(lines, panelLines(m.st.panel, title, m.ti.View(), m.width, kb)...)
	}
	return lines
}

// previewLine is row r of the preview with any caption centred over it.
func (m *Model) previewLine(r int) string {
	label, ok := m.captionAt(r)
	if !ok {
		if m.preview == nil && r == m.rows()/2 {
			return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.st.muted.Render("press o to open a photo"))
		}
		return m.cells(r, 0, m.width)
	}
	lw := lipgloss.Width(label)
	c0 := max(0, (m.width-lw)/2)
	return m.cells(r, 0, c0) + label + m.cells(r, c0+lw, m.width)
}

func (m *Model) captionAt(r int) (string, bool) {
	size := image.Pt(m.width, 2*m.rows())
	for _, which := range []meme.Which{meme.Top, meme.Bottom} {
		px := m.previewCanvas.CaptionRect(which, size)
		if (px.Min.Y+px.Max.Y)/4 != r {
			continue
		}
		f := m.ctrl.Field(which)
		st := m.st.caption
		if f.Editing {
			st = m.st.editing
		}
		return st.MaxWidth(m.width).Render(" " + f.Display() + " "), true
	}
	return "", false
}

func (m *Model) cells(r, from, to int) string {
	if to <= from {
		return ""
	}
	if m.preview == nil {
		return strings.Repeat(" ", to-from)
	}
	return previewRow(m.preview, r, from, to)
}
