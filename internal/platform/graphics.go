package platform

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/result"
)

// SurfaceConfig describes how a window's surface is presented.
type SurfaceConfig struct {
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
	Size   gputypes.Extent3D
}

// DefaultSurfaceConfig is the configuration applied to a fresh surface.
func DefaultSurfaceConfig(size [2]uint32) SurfaceConfig {
	return SurfaceConfig{
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
		Size: gputypes.Extent3D{
			Width:              size[0],
			Height:             size[1],
			DepthOrArrayLayers: 1,
		},
	}
}

// Resized returns c with a new size. Format and usage are unchanged.
func (c SurfaceConfig) Resized(size [2]uint32) SurfaceConfig {
	c.Size.Width = size[0]
	c.Size.Height = size[1]
	return c
}

// Surface is the presentable target bound to one window.
type Surface interface {
	Configure(cfg SurfaceConfig) error
	Config() SurfaceConfig
	Release()
}

// Graphics creates surfaces for windows.
type Graphics interface {
	Name() string
	CreateSurface(w Window) (Surface, error)
	Close() error
}

// NewGraphics constructs the backend named by config.Graphics.
func NewGraphics(name string) (Graphics, error) {
	switch name {
	case config.GraphicsHeadless, "":
		return NewHeadlessGraphics(), nil
	case config.GraphicsWGPU:
		g, err := NewWGPU()
		if err != nil {
			return nil, result.Wrap(result.GraphicsInstanceError, "create wgpu instance", err)
		}
		return g, nil
	default:
		return nil, result.Errorf(result.GraphicsInstanceError, "create graphics", "unknown backend %q", name)
	}
}

// recordSurface is a surface that only remembers its configuration. Both
// backends use it until a native window can provide presentable handles.
type recordSurface struct {
	window   NativeID
	cfg      SurfaceConfig
	released bool
	// configures counts successful Configure calls.
	configures int
}

func (s *recordSurface) Configure(cfg SurfaceConfig) error {
	if s.released {
		return fmt.Errorf("surface for window %d: %w", s.window, ErrClosed)
	}
	if cfg.Size.Width == 0 || cfg.Size.Height == 0 {
		return fmt.Errorf("surface for window %d: zero size %dx%d", s.window, cfg.Size.Width, cfg.Size.Height)
	}
	s.cfg = cfg
	s.configures++
	return nil
}

func (s *recordSurface) Config() SurfaceConfig { return s.cfg }

func (s *recordSurface) Release() { s.released = true }
