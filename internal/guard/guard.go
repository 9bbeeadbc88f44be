// Package guard pins engine access to a single owner thread.
//
// The first thread to call Init becomes the owner for the lifetime of the
// Guard (in production: the process). Every later call must come from that
// same thread, even after Dispose; the pin is never cleared or moved.
//
// The guard also owns the singleton slot: an instance exists iff a
// successful Init has not yet been followed by Dispose.
//
// There is no lock around the instance. Cross-thread calls are rejected with
// WrongThread before they touch it, so only the owner ever reads or writes it.
// The pin itself is an atomic compare-and-swap so racing first calls pin
// exactly one thread.
//
// Every callback runs behind a recover: a panic inside a constructor,
// destructor or accessor closure is logged and reported as UnknownError and
// never unwinds past the guard.
package guard

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/vulfram/vulfram-core/internal/result"
)

// ThreadID returns an identifier for the calling OS thread.
// Zero is reserved for "unset" and must never be returned.
type ThreadID func() uint64

// Guard holds the owner-thread pin and the singleton instance of T.
type Guard[T any] struct {
	thread   ThreadID
	owner    atomic.Uint64
	instance *T
	logger   *slog.Logger
}

// Option configures a Guard.
type Option func(*config)

type config struct {
	thread ThreadID
	logger *slog.Logger
}

// WithThreadID overrides the thread identity source.
// Tests use this to simulate foreign threads deterministically.
func WithThreadID(fn ThreadID) Option {
	return func(c *config) {
		c.thread = fn
	}
}

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// New creates a Guard with no owner and no instance.
func New[T any](opts ...Option) *Guard[T] {
	c := config{thread: CurrentThread, logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	return &Guard[T]{thread: c.thread, logger: c.logger}
}

// Init pins the calling thread (first call only) and constructs the instance.
//
//   - owner unset: pin caller, construct, Success (or the constructor's code)
//   - owner is caller, instance live: AlreadyInitialized, nothing changes
//   - owner is caller, no instance: construct
//   - owner is another thread: WrongThread
//
// A failed construction leaves no instance but keeps the pin.
func (g *Guard[T]) Init(construct func() (*T, error)) (code result.Code) {
	defer g.recoverInto(&code, "init")

	caller, ok := g.current()
	if !ok {
		return result.UnknownError
	}

	if !g.owner.CompareAndSwap(0, caller) && g.owner.Load() != caller {
		return result.WrongThread
	}

	if g.instance != nil {
		return result.AlreadyInitialized
	}

	inst, err := construct()
	if err != nil {
		g.logger.Error("engine construction failed", "error", err)
		return result.FromError(err)
	}
	if inst == nil {
		return result.UnknownError
	}
	g.instance = inst
	return result.Success
}

// Dispose destroys the instance. The owner pin is kept.
//
//   - owner unset: NotInitialized
//   - caller is not the owner: WrongThread
//   - no instance: NotInitialized
//
// The instance is dropped even if destroy fails or panics; the failure is
// logged and Success is still returned because the instance no longer exists.
func (g *Guard[T]) Dispose(destroy func(*T) error) (code result.Code) {
	defer g.recoverInto(&code, "dispose")

	if code := g.check(); code != result.Success {
		return code
	}
	if g.instance == nil {
		return result.NotInitialized
	}

	inst := g.instance
	g.instance = nil
	if err := g.safeDestroy(destroy, inst); err != nil {
		g.logger.Warn("engine destruction reported an error", "error", err)
	}
	return result.Success
}

// With runs fn with the live instance on the owner thread.
//
//   - owner unset or no instance: NotInitialized
//   - caller is not the owner: WrongThread
//   - fn panics: UnknownError
//
// Otherwise With returns fn's code.
func (g *Guard[T]) With(fn func(*T) result.Code) (code result.Code) {
	defer g.recoverInto(&code, "access")

	if code := g.check(); code != result.Success {
		return code
	}
	if g.instance == nil {
		return result.NotInitialized
	}
	return fn(g.instance)
}

// Owner returns the pinned owner thread id, or 0 if unpinned.
func (g *Guard[T]) Owner() uint64 {
	return g.owner.Load()
}

// check validates the caller against the pin without touching the instance.
func (g *Guard[T]) check() result.Code {
	owner := g.owner.Load()
	if owner == 0 {
		return result.NotInitialized
	}
	caller, ok := g.current()
	if !ok {
		return result.UnknownError
	}
	if caller != owner {
		return result.WrongThread
	}
	return result.Success
}

func (g *Guard[T]) current() (uint64, bool) {
	if g.thread == nil {
		g.logger.Error("no thread identity source for this platform")
		return 0, false
	}
	id := g.thread()
	if id == 0 {
		g.logger.Error("thread identity source returned zero")
		return 0, false
	}
	return id, true
}

func (g *Guard[T]) safeDestroy(destroy func(*T) error, inst *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during destroy: %v", r)
		}
	}()
	if destroy == nil {
		return nil
	}
	return destroy(inst)
}

// recoverInto converts a panic into UnknownError.
func (g *Guard[T]) recoverInto(code *result.Code, op string) {
	if r := recover(); r != nil {
		g.logger.Error("recovered panic at engine boundary",
			"op", op,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()),
		)
		*code = result.UnknownError
	}
}
