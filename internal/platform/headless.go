package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/protocol"
)

// ErrClosed is returned by a collaborator used after Close.
var ErrClosed = errors.New("platform: closed")

// Headless is an in-memory Windowing. Windows are plain records; size and
// state changes come back through Pump the way a real event loop reports
// them.
//
// Headless is not safe for concurrent use. Like every collaborator it is
// driven from the engine's owner thread.
type Headless struct {
	logger  *slog.Logger
	nextID  NativeID
	windows map[NativeID]*HeadlessWindow
	pending []Event
	closed  bool

	createErr error
	pumpErr   error
}

// HeadlessOption configures a Headless windowing.
type HeadlessOption func(*Headless)

// WithHeadlessLogger sets the logger.
func WithHeadlessLogger(l *slog.Logger) HeadlessOption {
	return func(h *Headless) { h.logger = config.OrNop(l) }
}

// NewHeadless returns an empty headless windowing system.
func NewHeadless(opts ...HeadlessOption) *Headless {
	h := &Headless{
		logger:  config.NopLogger(),
		nextID:  1,
		windows: make(map[NativeID]*HeadlessWindow),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateWindow records a new virtual window.
func (h *Headless) CreateWindow(attrs WindowAttributes) (Window, error) {
	if h.closed {
		return nil, ErrClosed
	}
	if h.createErr != nil {
		return nil, h.createErr
	}
	if attrs.Size[0] == 0 || attrs.Size[1] == 0 {
		return nil, fmt.Errorf("window size must be non-zero, got %dx%d", attrs.Size[0], attrs.Size[1])
	}
	if !attrs.State.Valid() {
		return nil, fmt.Errorf("invalid window state %d", attrs.State)
	}

	w := &HeadlessWindow{
		owner: h,
		id:    h.nextID,
		attrs: attrs,
	}
	h.nextID++
	h.windows[w.id] = w
	h.logger.Debug("headless window created", "native_id", w.id, "title", attrs.Title)
	return w, nil
}

// Pump drains the pending events. Headless never blocks, so timeout is
// ignored.
func (h *Headless) Pump(time.Duration) ([]Event, error) {
	if h.closed {
		return nil, ErrClosed
	}
	if h.pumpErr != nil {
		return nil, h.pumpErr
	}
	events := h.pending
	h.pending = nil
	return events, nil
}

// Close destroys every window.
func (h *Headless) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.windows = nil
	h.pending = nil
	return nil
}

// Inject queues platform events for the next Pump, as if the user had
// resized, moved, focused or closed a window.
//
// A destroyed event also removes the window.
func (h *Headless) Inject(events ...Event) {
	for _, e := range events {
		if e.Kind == EventDestroyed {
			delete(h.windows, e.Window)
		}
		if w, ok := h.windows[e.Window]; ok {
			w.observe(e)
		}
		h.pending = append(h.pending, e)
	}
}

// FailCreate makes CreateWindow fail with err until called with nil.
func (h *Headless) FailCreate(err error) { h.createErr = err }

// FailPump makes Pump fail with err until called with nil.
func (h *Headless) FailPump(err error) { h.pumpErr = err }

// Window returns a live window by native id.
func (h *Headless) Window(id NativeID) (*HeadlessWindow, bool) {
	w, ok := h.windows[id]
	return w, ok
}

// Len returns the number of live windows.
func (h *Headless) Len() int { return len(h.windows) }

func (h *Headless) push(e Event) {
	h.pending = append(h.pending, e)
}

// HeadlessWindow is a virtual window.
type HeadlessWindow struct {
	owner   *Headless
	id      NativeID
	attrs   WindowAttributes
	redraws int
	closed  bool
}

func (w *HeadlessWindow) ID() NativeID { return w.id }

func (w *HeadlessWindow) Size() [2]uint32 { return w.attrs.Size }

// Title returns the current title.
func (w *HeadlessWindow) Title() string { return w.attrs.Title }

// State returns the current presentation state.
func (w *HeadlessWindow) State() protocol.WindowState { return w.attrs.State }

// Redraws counts RequestRedraw calls.
func (w *HeadlessWindow) Redraws() int { return w.redraws }

func (w *HeadlessWindow) SetTitle(title string) error {
	if w.closed {
		return ErrClosed
	}
	w.attrs.Title = title
	return nil
}

// SetSize resizes the window and reports it on the next Pump.
func (w *HeadlessWindow) SetSize(size [2]uint32) error {
	if w.closed {
		return ErrClosed
	}
	if size[0] == 0 || size[1] == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", size[0], size[1])
	}
	w.attrs.Size = size
	w.owner.push(Event{Kind: EventResized, Window: w.id, Size: size})
	return nil
}

// SetState changes the presentation state and reports it on the next Pump.
func (w *HeadlessWindow) SetState(state protocol.WindowState) error {
	if w.closed {
		return ErrClosed
	}
	if !state.Valid() {
		return fmt.Errorf("invalid window state %d", state)
	}
	w.attrs.State = state
	w.owner.push(Event{Kind: EventStateChanged, Window: w.id, State: state})
	return nil
}

func (w *HeadlessWindow) RequestRedraw() {
	if !w.closed {
		w.redraws++
	}
}

// Close removes the window without reporting a destroyed event; the engine
// closed it and already knows.
func (w *HeadlessWindow) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.owner.windows != nil {
		delete(w.owner.windows, w.id)
	}
	return nil
}

func (w *HeadlessWindow) observe(e Event) {
	switch e.Kind {
	case EventResized:
		w.attrs.Size = e.Size
	case EventMoved:
		w.attrs.Position = e.Position
	case EventStateChanged:
		w.attrs.State = e.State
	}
}
