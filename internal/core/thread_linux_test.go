//go:build linux

package core

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/engine"
	"github.com/vulfram/vulfram-core/internal/osthread"
	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/result"
	"github.com/vulfram/vulfram-core/internal/shader"
)

// on runs fn on w and returns its code.
func on(t *testing.T, w *osthread.Worker, fn func() result.Code) result.Code {
	t.Helper()
	var code result.Code
	require.NoError(t, w.Do(func() { code = fn() }))
	return code
}

func TestCore_RealThreads(t *testing.T) {
	owner := osthread.New()
	defer owner.Close()
	foreign := osthread.New()
	defer foreign.Close()

	c := New(WithFactory(func(config.Config, *slog.Logger) (engine.Collaborators, error) {
		return engine.Collaborators{
			Windowing: platform.NewHeadless(),
			Graphics:  platform.NewHeadlessGraphics(),
			Shader:    shader.Func(func(string) ([]byte, error) { return fakeSPIRV, nil }),
		}, nil
	}))

	require.Equal(t, result.Success, on(t, owner, c.Init))
	assert.Equal(t, result.WrongThread, on(t, foreign, c.Init))
	assert.Equal(t, result.WrongThread, on(t, foreign, func() result.Code { return c.Upload(1, []byte{1}) }))
	assert.Equal(t, result.Success, on(t, owner, func() result.Code { return c.Upload(1, []byte{1}) }))

	require.Equal(t, result.Success, on(t, owner, c.Dispose))
	assert.Equal(t, result.WrongThread, on(t, foreign, c.Dispose))
	assert.Equal(t, result.WrongThread, on(t, foreign, c.Init))
}
