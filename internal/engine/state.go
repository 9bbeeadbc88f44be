package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
	"github.com/vulfram/vulfram-core/internal/result"
	"github.com/vulfram/vulfram-core/internal/shader"
)

// Collaborators are the delegated subsystems a State drives.
type Collaborators struct {
	Windowing platform.Windowing
	Graphics  platform.Graphics
	Shader    shader.Compiler
}

// State is the engine's single live instance.
//
// CRITICAL: every method must be called from the owner thread. State does
// no locking of its own.
type State struct {
	logger *slog.Logger

	windowing platform.Windowing
	graphics  platform.Graphics
	shader    shader.Compiler

	windows *windowRegistry
	buffers *BufferStore
	queue   *EventQueue
	clock   FrameClock

	maxBatch    int
	pumpTimeout time.Duration
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.logger = config.OrNop(l) }
}

// WithMaxBatchCommands bounds the number of envelopes in one Send.
// Zero means unlimited.
func WithMaxBatchCommands(n int) Option {
	return func(s *State) { s.maxBatch = n }
}

// WithPumpTimeout sets how long a tick may wait for platform events.
//
// Default: 0 (never block)
func WithPumpTimeout(d time.Duration) Option {
	return func(s *State) { s.pumpTimeout = d }
}

// New creates a State over the given collaborators.
func New(c Collaborators, opts ...Option) (*State, error) {
	if c.Windowing == nil {
		return nil, result.Errorf(result.WindowingInitError, "new state", "no windowing collaborator")
	}
	if c.Graphics == nil {
		return nil, result.Errorf(result.GraphicsInstanceError, "new state", "no graphics collaborator")
	}
	if c.Shader == nil {
		c.Shader = shader.Naga{}
	}

	s := &State{
		logger:    config.NopLogger(),
		windowing: c.Windowing,
		graphics:  c.Graphics,
		shader:    c.Shader,
		windows:   newWindowRegistry(),
		buffers:   NewBufferStore(),
		queue:     NewEventQueue(),
		maxBatch:  config.DefaultMaxBatchCommands,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send decodes a command batch and applies it.
//
// A malformed batch is rejected whole and nothing is applied. Once decoding
// succeeds Send returns nil; individual command failures are reported as
// command-failed events.
func (s *State) Send(batch []byte) error {
	envs, err := protocol.DecodeBatch(batch, s.maxBatch)
	if err != nil {
		s.logger.Warn("command batch rejected",
			"bytes", len(batch),
			"code", result.FromError(err),
			"error", err,
		)
		return err
	}
	s.Apply(envs)
	return nil
}

// Receive runs one phase of event retrieval against out. The queue is
// cleared only when the events were copied.
func (s *State) Receive(out []byte) (protocol.Negotiation, error) {
	payload, err := s.queue.Encode()
	if err != nil {
		return protocol.Negotiation{}, fmt.Errorf("encode events: %w", err)
	}
	n := protocol.Negotiate(out, payload)
	if n.Outcome == protocol.Copied {
		s.queue.Clear()
	}
	return n, nil
}

// Upload stores a copy of data under id.
func (s *State) Upload(id uint64, data []byte) {
	s.buffers.Upload(id, data)
}

// Download runs one phase of buffer retrieval against out. The buffer stays
// in the store.
func (s *State) Download(id uint64, out []byte) (protocol.Negotiation, error) {
	data, ok := s.buffers.Get(id)
	if !ok {
		return protocol.Negotiation{}, result.Errorf(result.UnknownError, "download", "buffer %d not found", id)
	}
	return protocol.Negotiate(out, data), nil
}

// Clear removes the buffer under id, if any.
func (s *State) Clear(id uint64) {
	s.buffers.Remove(id)
}

// Buffers exposes the buffer store.
func (s *State) Buffers() *BufferStore { return s.buffers }

// Queue exposes the event queue.
func (s *State) Queue() *EventQueue { return s.queue }

// Clock returns the frame clock.
func (s *State) Clock() FrameClock { return s.clock }

// GraphicsName reports the active graphics backend.
func (s *State) GraphicsName() string { return s.graphics.Name() }

// Window returns a copy of the handle for an engine window id.
func (s *State) Window(id uint32) (WindowHandle, bool) {
	h, ok := s.windows.get(id)
	if !ok {
		return WindowHandle{}, false
	}
	return *h, true
}

// WindowIDs lists live window ids in ascending order.
func (s *State) WindowIDs() []uint32 { return s.windows.ids() }

// WindowCount returns the number of live windows.
func (s *State) WindowCount() int { return s.windows.count() }

// Close releases every window and the collaborators. It is called once,
// by dispose, and keeps going past individual failures.
func (s *State) Close() error {
	var errs []error
	for _, id := range s.windows.ids() {
		if err := s.releaseWindow(id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.graphics.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close graphics: %w", err))
	}
	if err := s.windowing.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close windowing: %w", err))
	}
	s.queue.Clear()
	return errors.Join(errs...)
}

// releaseWindow drops the surface before the native window that backs it.
func (s *State) releaseWindow(id uint32) error {
	h, ok := s.windows.get(id)
	if !ok {
		return nil
	}
	h.Surface.Release()
	s.windows.remove(id)
	if err := h.Native.Close(); err != nil {
		return fmt.Errorf("close window %d: %w", id, err)
	}
	return nil
}
