//go:build !nogpu

package platform

import (
	"errors"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// BackendWGPU is the name of the wgpu graphics backend.
const BackendWGPU = "wgpu"

// WGPU holds a wgpu instance for the lifetime of the engine.
//
// Surfaces are bookkeeping until the windowing collaborator exposes native
// handles; adapter and device selection happen on first presentation.
type WGPU struct {
	instance *core.Instance
	surfaces []*recordSurface
}

// NewWGPU creates the wgpu instance over the primary backends.
func NewWGPU() (*WGPU, error) {
	desc := &gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
		Flags:    0,
	}
	instance := core.NewInstance(desc)
	if instance == nil {
		return nil, errors.New("wgpu: no instance")
	}
	return &WGPU{instance: instance}, nil
}

func (g *WGPU) Name() string { return BackendWGPU }

func (g *WGPU) CreateSurface(w Window) (Surface, error) {
	if g.instance == nil {
		return nil, ErrClosed
	}
	s := &recordSurface{window: w.ID()}
	g.surfaces = append(g.surfaces, s)
	return s, nil
}

// Close releases outstanding surfaces and drops the instance.
func (g *WGPU) Close() error {
	for _, s := range g.surfaces {
		s.Release()
	}
	g.surfaces = nil
	// The instance has no explicit release.
	g.instance = nil
	return nil
}
