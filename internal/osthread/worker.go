// Package osthread runs closures on a dedicated, locked OS thread.
//
// The engine core pins its owner by OS thread, not goroutine. Go code that
// drives the core (the CLI, the scenario harness, tests) uses a Worker so
// every call lands on the same thread. Two live Workers are always on
// different threads because a locked thread is exclusive to its goroutine.
package osthread

import (
	"errors"
	"runtime"
	"sync"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("osthread: worker closed")

// Worker owns one goroutine locked to one OS thread.
type Worker struct {
	jobs   chan func()
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// New starts a Worker. Call Close to release the thread.
func New() *Worker {
	w := &Worker{
		jobs:   make(chan func()),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	ready := make(chan struct{})
	go w.loop(ready)
	<-ready
	return w
}

func (w *Worker) loop(ready chan<- struct{}) {
	// Never unlocked: the thread exits with the goroutine, so no other
	// goroutine inherits it.
	runtime.LockOSThread()
	defer close(w.exited)
	close(ready)
	for {
		select {
		case fn := <-w.jobs:
			fn()
		case <-w.done:
			return
		}
	}
}

// Do runs fn on the worker's thread and waits for it to return.
// A panic in fn is re-raised on the calling goroutine.
func (w *Worker) Do(fn func()) error {
	var (
		wg       sync.WaitGroup
		panicked any
	)
	wg.Add(1)
	job := func() {
		defer wg.Done()
		defer func() { panicked = recover() }()
		fn()
	}

	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case <-w.done:
		return ErrClosed
	case w.jobs <- job:
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return nil
}

// Close stops the worker and waits for its goroutine to exit.
// Safe to call more than once.
func (w *Worker) Close() {
	w.once.Do(func() {
		close(w.done)
		<-w.exited
	})
}
