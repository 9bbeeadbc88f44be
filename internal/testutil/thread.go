package testutil

import "sync/atomic"

// FakeThread is a settable thread identity. Passing its Current method to
// the guard lets a test play several threads from one goroutine.
type FakeThread struct {
	id atomic.Uint64
}

// NewFakeThread starts as thread id.
func NewFakeThread(id uint64) *FakeThread {
	f := &FakeThread{}
	f.id.Store(id)
	return f
}

// Set switches the current thread.
func (f *FakeThread) Set(id uint64) { f.id.Store(id) }

// Current returns the current thread id.
func (f *FakeThread) Current() uint64 { return f.id.Load() }
