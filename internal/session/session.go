// Package session is the state machine behind the single editing screen:
// pick a background, edit two captions, render and share, reset.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/idilsaglam/mememe/internal/layout"
	"github.com/idilsaglam/mememe/internal/meme"
	"github.com/idilsaglam/mememe/internal/picker"
	"github.com/idilsaglam/mememe/internal/share"
)

type State int

const (
	Empty State = iota
	Editing
	Sharing
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Sharing:
		return "sharing"
	default:
		return "empty"
	}
}

// Renderer flattens background and captions into one bitmap.
type Renderer interface {
	Render(bg image.Image, top, bottom string) (*image.RGBA, error)
}

// FrameFunc reports where a caption sits inside the container and how tall
// the container is, in the same units as the keyboard height.
type FrameFunc func(which meme.Which) (field image.Rectangle, containerHeight int)

// Controller owns the session state. Gateway calls block (the UI runs them
// off its event loop) and are made without holding the lock.
type Controller struct {
	mu sync.Mutex

	picker   picker.Gateway
	sharer   share.Gateway
	renderer Renderer
	log      *slog.Logger
	tracer   trace.Tracer
	onMeme   func(meme.Meme)
	now      func() time.Time

	picks   metric.Int64Counter
	shares  metric.Int64Counter
	renderD metric.Float64Histogram

	state      State
	background image.Image
	top        *meme.CaptionField
	bottom     *meme.CaptionField
	active     meme.Which
	busy       bool
	generation uint64

	frames FrameFunc
	avoid  layout.Avoider
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithPlaceholders overrides the default "TOP"/"BOTTOM".
func WithPlaceholders(top, bottom string) Option {
	return func(c *Controller) {
		c.top = meme.NewCaptionField(top)
		c.bottom = meme.NewCaptionField(bottom)
	}
}

// OnMeme registers the hook that receives every completed meme.
func OnMeme(fn func(meme.Meme)) Option { return func(c *Controller) { c.onMeme = fn } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

func New(p picker.Gateway, s share.Gateway, r Renderer, opts ...Option) *Controller {
	c := &Controller{
		picker:   p,
		sharer:   s,
		renderer: r,
		log:      slog.Default(),
		tracer:   otel.Tracer("mememe/session"),
		now:      time.Now,
		top:      meme.NewCaptionField(meme.TopPlaceholder),
		bottom:   meme.NewCaptionField(meme.BottomPlaceholder),
	}
	for _, o := range opts {
		o(c)
	}
	meter := otel.Meter("mememe/session")
	c.picks, _ = meter.Int64Counter("mememe.picks", metric.WithDescription("Image picks by source and outcome"))
	c.shares, _ = meter.Int64Counter("mememe.shares", metric.WithDescription("Share attempts by outcome"))
	c.renderD, _ = meter.Float64Histogram("mememe.render.duration", metric.WithUnit("ms"))
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanShare is true exactly when a background image is loaded.
func (c *Controller) CanShare() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background != nil
}

// Busy reports an outstanding pick or share.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) Background() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

// Field returns a copy of a caption field.
func (c *Controller) Field(which meme.Which) meme.CaptionField {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f := c.field(which); f != nil {
		return *f
	}
	return meme.CaptionField{}
}

func (c *Controller) Active() meme.Which {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) CameraAvailable() bool { return c.picker.CameraAvailable() }

func (c *Controller) field(which meme.Which) *meme.CaptionField {
	switch which {
	case meme.Top:
		return c.top
	case meme.Bottom:
		return c.bottom
	}
	return nil
}

// PickImage asks the picker for a background. Cancelling leaves the session
// untouched. A camera request on a host without one fails with
// meme.ErrUnsupportedSource before the picker is invoked; a pick while
// another pick or share is outstanding fails with meme.ErrBusy.
func (c *Controller) PickImage(ctx context.Context, src picker.Source) (err error) {
	ctx, span := c.tracer.Start(ctx, "session.pick", trace.WithAttributes(attribute.String("source", src.String())))
	defer func() {
		outcome := outcomeOf(err)
		c.picks.Add(ctx, 1, metric.WithAttributes(attribute.String("source", src.String()), attribute.String("outcome", outcome)))
		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if src == picker.Camera && !c.picker.CameraAvailable() {
		return fmt.Errorf("pick: %w", meme.ErrUnsupportedSource)
	}
	gen, err := c.acquire()
	if err != nil {
		return fmt.Errorf("pick: %w", err)
	}
	defer c.release()

	img, err := c.picker.Request(ctx, src)
	if err != nil {
		if errors.Is(err, meme.ErrCancelled) {
			c.log.Debug("pick cancelled", "source", src.String())
		}
		return fmt.Errorf("pick: %w", err)
	}
	if img == nil {
		return fmt.Errorf("pick: picker returned no image: %w", meme.ErrPrecondition)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Debug("discarding pick finished after reset")
		return fmt.Errorf("pick: %w", meme.ErrCancelled)
	}
	c.background = img
	c.state = Editing
	c.log.Info("background loaded", "source", src.String(), "size", img.Bounds().Size().String())
	return nil
}

// BeginEdit makes which the active caption. Any other active caption ends
// its edit first so at most one field is active.
func (c *Controller) BeginEdit(which meme.Which) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.field(which)
	if f == nil || c.active == which {
		return
	}
	c.endEditLocked()
	f.BeginEdit()
	c.active = which
}

// ApplyInput feeds an edit of the active caption through its filter and
// returns the resulting text. Without an active caption it does nothing.
func (c *Controller) ApplyInput(r meme.Range, replacement string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.field(c.active)
	if f == nil {
		return ""
	}
	return f.ApplyInput(r, replacement)
}

// EndEdit ends the active caption's edit (focus lost).
func (c *Controller) EndEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endEditLocked()
}

// Submit is the confirm action on the active caption.
func (c *Controller) Submit() {
	c.EndEdit()
}

// endEditLocked ends the edit, clears the active reference and hides the
// keyboard in one step so avoidance never sees a stale field.
func (c *Controller) endEditLocked() {
	if f := c.field(c.active); f != nil {
		f.EndEdit()
	}
	c.active = meme.None
	c.avoid.Hide()
}

// SetFrames registers the view's geometry callback for keyboard avoidance.
// Pass nil to deregister.
func (c *Controller) SetFrames(fn FrameFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = fn
}

// OnKeyboardShow applies the avoidance shift for the active caption and
// returns it. Repeated shows while shown are no-ops.
func (c *Controller) OnKeyboardShow(height int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == meme.None || c.frames == nil {
		return c.avoid.Shift()
	}
	field, container := c.frames(c.active)
	return c.avoid.Show(field, height, container)
}

func (c *Controller) OnKeyboardHide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.avoid.Hide()
}

// Offset is the current vertical shift of the container.
func (c *Controller) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.avoid.Shift()
}

// Share renders the meme and presents it. A completed share returns the new
// Meme (also passed to the OnMeme hook); a share the user backs out of
// returns (nil, nil). The session is back in Editing afterwards either way.
func (c *Controller) Share(ctx context.Context) (m *meme.Meme, err error) {
	ctx, span := c.tracer.Start(ctx, "session.share")
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && m == nil {
			outcome = "cancelled"
		}
		c.shares.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	c.mu.Lock()
	if c.background == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("share: no background image: %w", meme.ErrPrecondition)
	}
	if c.busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("share: %w", meme.ErrBusy)
	}
	c.endEditLocked()
	c.busy = true
	c.state = Sharing
	gen := c.generation
	bg, top, bottom := c.background, c.top.Display(), c.bottom.Display()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		if gen == c.generation {
			c.state = Editing
		}
		c.mu.Unlock()
	}()

	rendered, err := c.render(ctx, bg, top, bottom)
	if err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}
	if c.stale(gen) {
		c.log.Debug("discarding render finished after reset")
		return nil, nil
	}
	completed, err := c.sharer.Present(ctx, rendered)
	return c.onShareCompleted(gen, completed, err, top, bottom, bg, rendered)
}

// stale reports whether a Reset happened since gen was taken.
func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

func (c *Controller) render(ctx context.Context, bg image.Image, top, bottom string) (*image.RGBA, error) {
	ctx, span := c.tracer.Start(ctx, "canvas.render")
	defer span.End()
	start := time.Now()
	img, err := c.renderer.Render(bg, top, bottom)
	c.renderD.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return img, nil
}

// onShareCompleted builds the Meme for a successful share only. A share
// that outlived a Reset builds nothing.
func (c *Controller) onShareCompleted(gen uint64, completed bool, err error, top, bottom string, original, rendered image.Image) (*meme.Meme, error) {
	if err != nil {
		if errors.Is(err, meme.ErrCancelled) {
			c.log.Debug("share cancelled")
			return nil, nil
		}
		return nil, fmt.Errorf("share: %w", err)
	}
	if !completed {
		c.log.Debug("share cancelled")
		return nil, nil
	}
	if c.stale(gen) {
		c.log.Debug("discarding share finished after reset")
		return nil, nil
	}
	m := meme.New(top, bottom, original, rendered, c.now())
	c.log.Info("meme shared", "top", m.TopText(), "bottom", m.BottomText())
	if c.onMeme != nil {
		c.onMeme(m)
	}
	return &m, nil
}

// Reset returns to Empty from any state: no background, placeholders back,
// nothing active, keyboard shift cleared. Late gateway results from before
// the reset are dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.background = nil
	c.top.Reset()
	c.bottom.Reset()
	c.active = meme.None
	c.avoid.Hide()
	c.state = Empty
}

func (c *Controller) acquire() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return 0, meme.ErrBusy
	}
	c.busy = true
	return c.generation, nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, meme.ErrCancelled):
		return "cancelled"
	case errors.Is(err, meme.ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
