package protocol

// EventType is the stable discriminant of an engine event.
type EventType string

const (
	EvtWindowCreated        EventType = "window-created"
	EvtWindowClosed         EventType = "window-closed"
	EvtWindowResized        EventType = "window-resized"
	EvtWindowMoved          EventType = "window-moved"
	EvtWindowFocused        EventType = "window-focused"
	EvtWindowCloseRequested EventType = "window-close-requested"
	EvtWindowStateChanged   EventType = "window-state-changed"
	EvtShaderCompiled       EventType = "shader-compiled"
	EvtShaderValidated      EventType = "shader-validated"
	EvtCommandFailed        EventType = "command-failed"
)

// EventContent is the closed union of event payloads.
type EventContent interface {
	EventType() EventType
	eventContent()
}

// Event is one engine notification.
//
// CorrelationID echoes the envelope id of the command that caused the event.
// It is nil for platform-originated events (resize, focus, ...).
type Event struct {
	CorrelationID *uint64
	Content       EventContent
}

// Type returns the event's discriminant.
func (e Event) Type() EventType {
	if e.Content == nil {
		return ""
	}
	return e.Content.EventType()
}

// Caused returns an event correlated with the given command id.
func Caused(correlationID uint64, content EventContent) Event {
	id := correlationID
	return Event{CorrelationID: &id, Content: content}
}

// Platform returns an uncorrelated event.
func Platform(content EventContent) Event {
	return Event{Content: content}
}

type WindowCreated struct {
	ID uint32 `cbor:"id"`
}

type WindowClosed struct {
	ID uint32 `cbor:"id"`
}

type WindowResized struct {
	ID   uint32    `cbor:"id"`
	Size [2]uint32 `cbor:"size"`
}

type WindowMoved struct {
	ID       uint32   `cbor:"id"`
	Position [2]int32 `cbor:"position"`
}

type WindowFocused struct {
	ID      uint32 `cbor:"id"`
	Focused bool   `cbor:"focused"`
}

// WindowCloseRequested reports the user asked to close a window (e.g. the
// title bar button). The engine does not close it; the host decides.
type WindowCloseRequested struct {
	ID uint32 `cbor:"id"`
}

type WindowStateChanged struct {
	ID    uint32      `cbor:"id"`
	State WindowState `cbor:"state"`
}

// ShaderCompiled reports SPIR-V stored in Buffer.
type ShaderCompiled struct {
	Buffer uint64 `cbor:"buffer"`
	Size   uint64 `cbor:"size"`
}

// ShaderValidated reports whether the source in Buffer is valid WGSL.
// Message holds the first diagnostic when it is not.
type ShaderValidated struct {
	Buffer  uint64 `cbor:"buffer"`
	Valid   bool   `cbor:"valid"`
	Message string `cbor:"message,omitempty"`
}

// CommandFailed reports a command that could not be applied. Code is a
// result code; the rest of the batch was still applied.
type CommandFailed struct {
	Command string `cbor:"command"`
	Code    uint32 `cbor:"code"`
	Message string `cbor:"message"`
}

func (WindowCreated) EventType() EventType        { return EvtWindowCreated }
func (WindowClosed) EventType() EventType         { return EvtWindowClosed }
func (WindowResized) EventType() EventType        { return EvtWindowResized }
func (WindowMoved) EventType() EventType          { return EvtWindowMoved }
func (WindowFocused) EventType() EventType        { return EvtWindowFocused }
func (WindowCloseRequested) EventType() EventType { return EvtWindowCloseRequested }
func (WindowStateChanged) EventType() EventType   { return EvtWindowStateChanged }
func (ShaderCompiled) EventType() EventType       { return EvtShaderCompiled }
func (ShaderValidated) EventType() EventType      { return EvtShaderValidated }
func (CommandFailed) EventType() EventType        { return EvtCommandFailed }

func (WindowCreated) eventContent()        {}
func (WindowClosed) eventContent()         {}
func (WindowResized) eventContent()        {}
func (WindowMoved) eventContent()          {}
func (WindowFocused) eventContent()        {}
func (WindowCloseRequested) eventContent() {}
func (WindowStateChanged) eventContent()   {}
func (ShaderCompiled) eventContent()       {}
func (ShaderValidated) eventContent()      {}
func (CommandFailed) eventContent()        {}

func newEventContent(t EventType) EventContent {
	switch t {
	case EvtWindowCreated:
		return &WindowCreated{}
	case EvtWindowClosed:
		return &WindowClosed{}
	case EvtWindowResized:
		return &WindowResized{}
	case EvtWindowMoved:
		return &WindowMoved{}
	case EvtWindowFocused:
		return &WindowFocused{}
	case EvtWindowCloseRequested:
		return &WindowCloseRequested{}
	case EvtWindowStateChanged:
		return &WindowStateChanged{}
	case EvtShaderCompiled:
		return &ShaderCompiled{}
	case EvtShaderValidated:
		return &ShaderValidated{}
	case EvtCommandFailed:
		return &CommandFailed{}
	default:
		return nil
	}
}

func derefEvent(c EventContent) EventContent {
	switch v := c.(type) {
	case *WindowCreated:
		return *v
	case *WindowClosed:
		return *v
	case *WindowResized:
		return *v
	case *WindowMoved:
		return *v
	case *WindowFocused:
		return *v
	case *WindowCloseRequested:
		return *v
	case *WindowStateChanged:
		return *v
	case *ShaderCompiled:
		return *v
	case *ShaderValidated:
		return *v
	case *CommandFailed:
		return *v
	default:
		return c
	}
}
