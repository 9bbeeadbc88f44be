package protocol

import "github.com/fxamacker/cbor/v2"

// CommandType is the stable discriminant of a command.
type CommandType string

const (
	CmdWindowCreate   CommandType = "cmd-window-create"
	CmdWindowClose    CommandType = "cmd-window-close"
	CmdWindowSetTitle CommandType = "cmd-window-set-title"
	CmdWindowSetSize  CommandType = "cmd-window-set-size"
	CmdWindowSetState CommandType = "cmd-window-set-state"
	CmdShaderCompile  CommandType = "cmd-shader-compile"
	CmdShaderValidate CommandType = "cmd-shader-validate"
)

// Command is the closed union of host commands.
type Command interface {
	Kind() CommandType
	command()
}

// WindowState mirrors the native window presentation states.
// Discriminants are part of the wire format.
type WindowState uint32

const (
	WindowMinimized WindowState = iota
	WindowMaximized
	WindowWindowed
	WindowFullscreen
	WindowWindowedFullscreen
)

// Valid reports whether s is a defined state.
func (s WindowState) Valid() bool {
	return s <= WindowWindowedFullscreen
}

func (s WindowState) String() string {
	switch s {
	case WindowMinimized:
		return "minimized"
	case WindowMaximized:
		return "maximized"
	case WindowWindowed:
		return "windowed"
	case WindowFullscreen:
		return "fullscreen"
	case WindowWindowedFullscreen:
		return "windowed-fullscreen"
	default:
		return "unknown"
	}
}

// WindowCreate asks the engine to open a window.
// A nil InitialState means windowed.
type WindowCreate struct {
	Title        string       `cbor:"title"`
	Size         [2]uint32    `cbor:"size"`
	Position     [2]int32     `cbor:"position"`
	Borderless   bool         `cbor:"borderless"`
	Resizable    bool         `cbor:"resizable"`
	AlwaysOnTop  bool         `cbor:"always_on_top"`
	Transparent  bool         `cbor:"transparent"`
	InitialState *WindowState `cbor:"initial_state,omitempty"`
}

// WindowClose closes a window and releases its surface.
type WindowClose struct {
	WindowID uint32 `cbor:"window_id"`
}

// WindowSetTitle retitles a window.
type WindowSetTitle struct {
	WindowID uint32 `cbor:"window_id"`
	Title    string `cbor:"title"`
}

// WindowSetSize resizes a window's client area.
type WindowSetSize struct {
	WindowID uint32    `cbor:"window_id"`
	Size     [2]uint32 `cbor:"size"`
}

// WindowSetState changes a window's presentation state.
type WindowSetState struct {
	WindowID uint32      `cbor:"window_id"`
	State    WindowState `cbor:"state"`
}

// ShaderCompile translates the WGSL source held in SourceBuffer to SPIR-V
// and stores the result in TargetBuffer.
type ShaderCompile struct {
	SourceBuffer uint64 `cbor:"source_buffer"`
	TargetBuffer uint64 `cbor:"target_buffer"`
}

// ShaderValidate checks the WGSL source held in SourceBuffer without
// storing any output.
type ShaderValidate struct {
	SourceBuffer uint64 `cbor:"source_buffer"`
}

// UnknownCommand carries a tag this engine does not understand.
// It decodes successfully and fails when applied.
type UnknownCommand struct {
	Type    string
	Content cbor.RawMessage
}

func (WindowCreate) Kind() CommandType   { return CmdWindowCreate }
func (WindowClose) Kind() CommandType    { return CmdWindowClose }
func (WindowSetTitle) Kind() CommandType { return CmdWindowSetTitle }
func (WindowSetSize) Kind() CommandType  { return CmdWindowSetSize }
func (WindowSetState) Kind() CommandType { return CmdWindowSetState }
func (ShaderCompile) Kind() CommandType  { return CmdShaderCompile }
func (ShaderValidate) Kind() CommandType { return CmdShaderValidate }
func (c UnknownCommand) Kind() CommandType {
	return CommandType(c.Type)
}

func (WindowCreate) command()   {}
func (WindowClose) command()    {}
func (WindowSetTitle) command() {}
func (WindowSetSize) command()  {}
func (WindowSetState) command() {}
func (ShaderCompile) command()  {}
func (ShaderValidate) command() {}
func (UnknownCommand) command() {}

// Envelope pairs a command with the host's correlation id.
type Envelope struct {
	ID      uint64
	Command Command
}

// newCommand returns a zero value for a known tag, or nil.
func newCommand(t CommandType) Command {
	switch t {
	case CmdWindowCreate:
		return &WindowCreate{}
	case CmdWindowClose:
		return &WindowClose{}
	case CmdWindowSetTitle:
		return &WindowSetTitle{}
	case CmdWindowSetSize:
		return &WindowSetSize{}
	case CmdWindowSetState:
		return &WindowSetState{}
	case CmdShaderCompile:
		return &ShaderCompile{}
	case CmdShaderValidate:
		return &ShaderValidate{}
	default:
		return nil
	}
}

// deref turns the pointer produced by newCommand back into a value so the
// engine's type switches match on value types.
func deref(c Command) Command {
	switch v := c.(type) {
	case *WindowCreate:
		return *v
	case *WindowClose:
		return *v
	case *WindowSetTitle:
		return *v
	case *WindowSetSize:
		return *v
	case *WindowSetState:
		return *v
	case *ShaderCompile:
		return *v
	case *ShaderValidate:
		return *v
	default:
		return c
	}
}
