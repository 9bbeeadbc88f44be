//go:build linux

package osthread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWorker_SameThreadAcrossCalls(t *testing.T) {
	w := New()
	defer w.Close()

	var first, second int
	require.NoError(t, w.Do(func() { first = unix.Gettid() }))
	require.NoError(t, w.Do(func() { second = unix.Gettid() }))

	assert.NotZero(t, first)
	assert.Equal(t, first, second, "worker must stay on one OS thread")
}

func TestWorker_DistinctWorkersDistinctThreads(t *testing.T) {
	a := New()
	defer a.Close()
	b := New()
	defer b.Close()

	var ta, tb int
	require.NoError(t, a.Do(func() { ta = unix.Gettid() }))
	require.NoError(t, b.Do(func() { tb = unix.Gettid() }))

	assert.NotEqual(t, ta, tb)
}

func TestWorker_ClosedRejectsWork(t *testing.T) {
	w := New()
	w.Close()
	w.Close()

	err := w.Do(func() { t.Fatal("must not run") })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWorker_PanicPropagates(t *testing.T) {
	w := New()
	defer w.Close()

	assert.PanicsWithValue(t, "boom", func() {
		_ = w.Do(func() { panic("boom") })
	})

	// Worker survives the panic.
	ran := false
	require.NoError(t, w.Do(func() { ran = true }))
	assert.True(t, ran)
}
