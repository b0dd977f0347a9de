package ui

import (
	"context"
	"errors"
	"image"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/mememe/internal/meme"
	"github.com/idilsaglam/mememe/internal/picker"
)

var errNotRunning = errors.New("ui: program not running")

// Modal requests sent from gateway goroutines into the event loop. Reply
// channels are buffered so the loop never blocks on a caller that gave up.
type (
	pickReply struct {
		path string
		err  error
	}
	openPickerMsg struct{ reply chan<- pickReply }

	shareReply struct {
		completed bool
		err       error
	}
	openSheetMsg struct {
		img   image.Image
		reply chan<- shareReply
	}
)

// bridge posts messages into the running program.
type bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (b *bridge) set(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *bridge) post(msg tea.Msg) error {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send == nil {
		return errNotRunning
	}
	send(msg)
	return nil
}

// libraryGateway opens the file browser for library picks and hands camera
// picks to the capture command.
type libraryGateway struct {
	b      *bridge
	camera *picker.CameraCapture
}

func (g libraryGateway) CameraAvailable() bool { return g.camera.Available() }

func (g libraryGateway) Request(ctx context.Context, src picker.Source) (image.Image, error) {
	if src == picker.Camera {
		return g.camera.Capture(ctx)
	}
	reply := make(chan pickReply, 1)
	if err := g.b.post(openPickerMsg{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, meme.ErrCancelled
	case r := <-reply:
		if r.err != nil {
			return nil, r.err
		}
		return picker.Decode(r.path)
	}
}

// shareSheet asks for a file name and exports the bitmap under it.
type shareSheet struct {
	b *bridge
}

func (s shareSheet) Present(ctx context.Context, img image.Image) (bool, error) {
	reply := make(chan shareReply, 1)
	if err := s.b.post(openSheetMsg{img: img, reply: reply}); err != nil {
		return false, err
	}
	select {
	case <-ctx.Done():
		return false, nil
	case r := <-reply:
		return r.completed, r.err
	}
}
