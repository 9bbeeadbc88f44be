package engine

import (
	"fmt"
	"runtime/debug"

	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
	"github.com/vulfram/vulfram-core/internal/result"
	"github.com/vulfram/vulfram-core/internal/shader"
)

// Apply runs decoded commands in order.
//
// ERROR HANDLING: a failing command pushes command-failed with its
// correlation id and the loop moves on ("log and continue"). A panicking
// command is reported the same way with UnknownError.
func (s *State) Apply(envs []protocol.Envelope) {
	for _, env := range envs {
		if err := s.applyOne(env); err != nil {
			code := result.FromError(err)
			s.logger.Warn("command failed",
				"correlation_id", env.ID,
				"command", env.Command.Kind(),
				"code", code,
				"error", err,
			)
			s.queue.Push(protocol.Caused(env.ID, protocol.CommandFailed{
				Command: string(env.Command.Kind()),
				Code:    uint32(code),
				Message: err.Error(),
			}))
		}
	}
}

func (s *State) applyOne(env protocol.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command panicked",
				"correlation_id", env.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = result.Errorf(result.UnknownError, string(env.Command.Kind()), "panic: %v", r)
		}
	}()

	switch cmd := env.Command.(type) {
	case protocol.WindowCreate:
		return s.createWindow(env.ID, cmd)
	case protocol.WindowClose:
		return s.closeWindow(env.ID, cmd)
	case protocol.WindowSetTitle:
		return s.setWindowTitle(cmd)
	case protocol.WindowSetSize:
		return s.setWindowSize(cmd)
	case protocol.WindowSetState:
		return s.setWindowState(cmd)
	case protocol.ShaderCompile:
		return s.compileShader(env.ID, cmd)
	case protocol.ShaderValidate:
		return s.validateShader(env.ID, cmd)
	case protocol.UnknownCommand:
		return result.Errorf(result.CmdUnknownType, "apply", "unknown command type %q", cmd.Type)
	default:
		return result.Errorf(result.CmdUnknownType, "apply", "unhandled command %T", cmd)
	}
}

func (s *State) lookup(op string, id uint32) (*WindowHandle, error) {
	h, ok := s.windows.get(id)
	if !ok {
		return nil, result.Errorf(result.WindowNotFound, op, "window %d not found", id)
	}
	return h, nil
}

// createWindow opens a native window, binds a surface to it and only then
// assigns an engine id, so a failed create never consumes one.
func (s *State) createWindow(corr uint64, c protocol.WindowCreate) error {
	const op = "create window"

	state := protocol.WindowWindowed
	if c.InitialState != nil {
		state = *c.InitialState
	}
	if !state.Valid() {
		return result.Errorf(result.InvalidParameter, op, "invalid initial state %d", state)
	}
	if c.Size[0] == 0 || c.Size[1] == 0 {
		return result.Errorf(result.InvalidParameter, op, "size must be non-zero, got %dx%d", c.Size[0], c.Size[1])
	}
	if err := s.windows.reserve(); err != nil {
		return result.Wrap(result.WindowCreateError, op, err)
	}

	native, err := s.windowing.CreateWindow(platform.WindowAttributes{
		Title:       c.Title,
		Size:        c.Size,
		Position:    c.Position,
		Borderless:  c.Borderless,
		Resizable:   c.Resizable,
		AlwaysOnTop: c.AlwaysOnTop,
		Transparent: c.Transparent,
		State:       state,
	})
	if err != nil {
		return result.Wrap(result.WindowCreateError, op, err)
	}

	surface, err := s.graphics.CreateSurface(native)
	if err != nil {
		s.discardNative(native)
		return result.Wrap(result.SurfaceCreateError, op, err)
	}

	cfg := platform.DefaultSurfaceConfig(native.Size())
	if err := surface.Configure(cfg); err != nil {
		surface.Release()
		s.discardNative(native)
		return result.Wrap(result.SurfaceCreateError, op, err)
	}

	id, err := s.windows.add(&WindowHandle{
		Native:   native,
		Surface:  surface,
		Config:   cfg,
		State:    state,
		Position: c.Position,
	})
	if err != nil {
		surface.Release()
		s.discardNative(native)
		return result.Wrap(result.WindowCreateError, op, err)
	}

	s.logger.Debug("window created",
		"correlation_id", corr,
		"window", id,
		"native_id", native.ID(),
		"graphics", s.graphics.Name(),
	)
	s.queue.Push(protocol.Caused(corr, protocol.WindowCreated{ID: id}))
	return nil
}

func (s *State) discardNative(w platform.Window) {
	if err := w.Close(); err != nil {
		s.logger.Warn("close native window after failed create", "native_id", w.ID(), "error", err)
	}
}

func (s *State) closeWindow(corr uint64, c protocol.WindowClose) error {
	if _, err := s.lookup("close window", c.WindowID); err != nil {
		return err
	}
	if err := s.releaseWindow(c.WindowID); err != nil {
		// The window is unregistered either way.
		s.logger.Warn("native close failed", "window", c.WindowID, "error", err)
	}
	s.queue.Push(protocol.Caused(corr, protocol.WindowClosed{ID: c.WindowID}))
	return nil
}

func (s *State) setWindowTitle(c protocol.WindowSetTitle) error {
	const op = "set window title"
	h, err := s.lookup(op, c.WindowID)
	if err != nil {
		return err
	}
	if err := h.Native.SetTitle(c.Title); err != nil {
		return fmt.Errorf("%s %d: %w", op, c.WindowID, err)
	}
	return nil
}

// setWindowSize resizes the native window and reconfigures its surface right
// away; the platform's resize notification arrives on a later tick.
func (s *State) setWindowSize(c protocol.WindowSetSize) error {
	const op = "set window size"
	h, err := s.lookup(op, c.WindowID)
	if err != nil {
		return err
	}
	if c.Size[0] == 0 || c.Size[1] == 0 {
		return result.Errorf(result.InvalidParameter, op, "size must be non-zero, got %dx%d", c.Size[0], c.Size[1])
	}
	if err := h.Native.SetSize(c.Size); err != nil {
		return fmt.Errorf("%s %d: %w", op, c.WindowID, err)
	}
	return s.reconfigure(h, c.Size)
}

func (s *State) setWindowState(c protocol.WindowSetState) error {
	const op = "set window state"
	h, err := s.lookup(op, c.WindowID)
	if err != nil {
		return err
	}
	if !c.State.Valid() {
		return result.Errorf(result.InvalidParameter, op, "invalid state %d", c.State)
	}
	if err := h.Native.SetState(c.State); err != nil {
		return fmt.Errorf("%s %d: %w", op, c.WindowID, err)
	}
	h.State = c.State
	return nil
}

// reconfigure applies a new size to a window's surface. Zero sizes (a
// minimized window) keep the previous configuration.
func (s *State) reconfigure(h *WindowHandle, size [2]uint32) error {
	if size[0] == 0 || size[1] == 0 {
		return nil
	}
	if h.Config.Size.Width == size[0] && h.Config.Size.Height == size[1] {
		return nil
	}
	cfg := h.Config.Resized(size)
	if err := h.Surface.Configure(cfg); err != nil {
		return result.Wrap(result.SurfaceCreateError, "configure surface", err)
	}
	h.Config = cfg
	return nil
}

func (s *State) compileShader(corr uint64, c protocol.ShaderCompile) error {
	const op = "compile shader"
	src, ok := s.buffers.Get(c.SourceBuffer)
	if !ok {
		return result.Errorf(result.UnknownError, op, "source buffer %d not found", c.SourceBuffer)
	}
	spirv, err := s.shader.Compile(string(src))
	if err != nil {
		return result.Wrap(result.ShaderCompileError, op, err)
	}
	s.buffers.Upload(c.TargetBuffer, spirv)
	s.queue.Push(protocol.Caused(corr, protocol.ShaderCompiled{
		Buffer: c.TargetBuffer,
		Size:   uint64(len(spirv)),
	}))
	return nil
}

// validateShader answers with shader-validated either way; only a missing
// source buffer fails the command.
func (s *State) validateShader(corr uint64, c protocol.ShaderValidate) error {
	src, ok := s.buffers.Get(c.SourceBuffer)
	if !ok {
		return result.Errorf(result.UnknownError, "validate shader", "source buffer %d not found", c.SourceBuffer)
	}
	ev := protocol.ShaderValidated{Buffer: c.SourceBuffer, Valid: true}
	if err := shader.Check(s.shader, string(src)); err != nil {
		ev.Valid = false
		ev.Message = err.Error()
	}
	s.queue.Push(protocol.Caused(corr, ev))
	return nil
}
