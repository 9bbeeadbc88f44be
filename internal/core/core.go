// Package core is the engine boundary: eight operations, each returning a
// result code, all pinned to the thread that first called Init.
//
// Core owns nothing but the guard. The engine state lives behind it and is
// created by Init and destroyed by Dispose. When a journal recorder is
// configured every call is recorded, including the ones the guard rejects.
package core

import (
	"log/slog"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/engine"
	"github.com/vulfram/vulfram-core/internal/guard"
	"github.com/vulfram/vulfram-core/internal/journal"
	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
	"github.com/vulfram/vulfram-core/internal/result"
	"github.com/vulfram/vulfram-core/internal/shader"
)

// Version is the engine version stamped on journal sessions.
const Version = "0.1.0"

// Factory builds the collaborators for a new engine instance.
type Factory func(cfg config.Config, logger *slog.Logger) (engine.Collaborators, error)

// DefaultFactory uses headless windowing, the configured graphics backend
// and the naga shader compiler.
func DefaultFactory(cfg config.Config, logger *slog.Logger) (engine.Collaborators, error) {
	win := platform.NewHeadless(platform.WithHeadlessLogger(logger))
	gfx, err := platform.NewGraphics(cfg.Graphics)
	if err != nil {
		_ = win.Close()
		return engine.Collaborators{}, err
	}
	return engine.Collaborators{Windowing: win, Graphics: gfx, Shader: shader.Naga{}}, nil
}

// Recorder receives one entry per boundary call.
// Implemented by *journal.Recorder.
type Recorder interface {
	Record(c journal.Call)
}

// Core is the engine boundary.
type Core struct {
	cfg      config.Config
	logger   *slog.Logger
	guard    *guard.Guard[engine.State]
	factory  Factory
	recorder Recorder
	thread   guard.ThreadID
}

// Option configures a Core.
type Option func(*Core)

// WithConfig sets the configuration used by Init.
func WithConfig(cfg config.Config) Option {
	return func(c *Core) { c.cfg = cfg }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) { c.logger = config.OrNop(l) }
}

// WithThreadID overrides the thread identity source.
func WithThreadID(fn guard.ThreadID) Option {
	return func(c *Core) { c.thread = fn }
}

// WithFactory overrides how collaborators are built on Init.
func WithFactory(f Factory) Option {
	return func(c *Core) { c.factory = f }
}

// WithRecorder journals every call.
func WithRecorder(r Recorder) Option {
	return func(c *Core) { c.recorder = r }
}

// New creates a Core with no owner thread and no instance.
func New(opts ...Option) *Core {
	c := &Core{
		cfg:     config.Default(),
		logger:  config.NopLogger(),
		factory: DefaultFactory,
		thread:  guard.CurrentThread,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.guard = guard.New[engine.State](
		guard.WithThreadID(c.thread),
		guard.WithLogger(c.logger),
	)
	return c
}

// Config returns the configuration used by Init.
func (c *Core) Config() config.Config { return c.cfg }

// Init pins the calling thread and constructs the engine.
func (c *Core) Init() result.Code {
	code := c.guard.Init(c.construct)
	if code == result.Success {
		c.logger.Info("engine initialized",
			"version", Version,
			"graphics", c.cfg.Graphics,
			"owner", c.guard.Owner(),
		)
	}
	c.record(journal.Call{Op: journal.OpInit, Result: code})
	return code
}

func (c *Core) construct() (*engine.State, error) {
	collab, err := c.factory(c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	return engine.New(collab,
		engine.WithLogger(c.logger),
		engine.WithMaxBatchCommands(c.cfg.MaxBatchCommands),
		engine.WithPumpTimeout(c.cfg.PumpTimeout),
	)
}

// Dispose destroys the engine. The owner pin is kept.
func (c *Core) Dispose() result.Code {
	code := c.guard.Dispose((*engine.State).Close)
	if code == result.Success {
		c.logger.Info("engine disposed")
	}
	c.record(journal.Call{Op: journal.OpDispose, Result: code})
	return code
}

// Send decodes and applies a command batch.
func (c *Core) Send(batch []byte) result.Code {
	code := c.guard.With(func(s *engine.State) result.Code {
		return result.FromError(s.Send(batch))
	})
	c.record(journal.Call{Op: journal.OpSend, Payload: clone(batch), Result: code})
	return code
}

// Receive runs one phase of event retrieval. A nil out asks for the size.
func (c *Core) Receive(out []byte, length *uint64) result.Code {
	var n protocol.Negotiation
	code := c.guard.With(func(s *engine.State) result.Code {
		if length == nil {
			return result.InvalidParameter
		}
		var err error
		n, err = s.Receive(out)
		if err != nil {
			return result.FromError(err)
		}
		*length = uint64(n.Length)
		return n.Code()
	})
	c.record(negotiated(journal.Call{Op: journal.OpReceive, NilLength: length == nil, Result: code}, out, n))
	return code
}

// Upload stores a copy of data under id.
func (c *Core) Upload(id uint64, data []byte) result.Code {
	code := c.guard.With(func(s *engine.State) result.Code {
		s.Upload(id, data)
		return result.Success
	})
	c.record(journal.Call{Op: journal.OpUpload, BufferID: id, Payload: clone(data), Result: code})
	return code
}

// Download runs one phase of buffer retrieval. A nil out asks for the size.
func (c *Core) Download(id uint64, out []byte, length *uint64) result.Code {
	var n protocol.Negotiation
	code := c.guard.With(func(s *engine.State) result.Code {
		if length == nil {
			return result.InvalidParameter
		}
		var err error
		n, err = s.Download(id, out)
		if err != nil {
			return result.FromError(err)
		}
		*length = uint64(n.Length)
		return n.Code()
	})
	c.record(negotiated(journal.Call{Op: journal.OpDownload, BufferID: id, NilLength: length == nil, Result: code}, out, n))
	return code
}

// Clear removes the buffer under id. Missing ids are not an error.
func (c *Core) Clear(id uint64) result.Code {
	code := c.guard.With(func(s *engine.State) result.Code {
		s.Clear(id)
		return result.Success
	})
	c.record(journal.Call{Op: journal.OpClear, BufferID: id, Result: code})
	return code
}

// Tick advances the frame and pumps platform events.
func (c *Core) Tick(time uint64, delta uint32) result.Code {
	code := c.guard.With(func(s *engine.State) result.Code {
		return result.FromError(s.Tick(time, delta))
	})
	c.record(journal.Call{Op: journal.OpTick, Time: time, Delta: delta, Result: code})
	return code
}

// Inspect runs fn against the live engine on the owner thread. It is for
// tooling and tests; hosts use the eight operations.
func (c *Core) Inspect(fn func(s *engine.State)) result.Code {
	return c.guard.With(func(s *engine.State) result.Code {
		fn(s)
		return result.Success
	})
}

func (c *Core) record(call journal.Call) {
	if c.recorder == nil {
		return
	}
	if call.Op != journal.OpReceive && call.Op != journal.OpDownload {
		call.Capacity = journal.Probe
	}
	c.recorder.Record(call)
}

// negotiated fills the capacity, length and copied bytes of a retrieval call.
func negotiated(call journal.Call, out []byte, n protocol.Negotiation) journal.Call {
	call.Capacity = journal.Probe
	if out != nil {
		call.Capacity = int64(len(out))
	}
	call.Length = uint64(n.Length)
	if n.Outcome == protocol.Copied {
		call.Output = clone(out[:n.Length])
	}
	return call
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
