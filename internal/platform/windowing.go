// Package platform defines the collaborators the engine delegates native
// work to: windowing and graphics.
//
// The engine never talks to an OS window system or a GPU directly. It holds
// a Windowing and a Graphics and drives them from the owner thread. The
// in-memory Headless implementations back tests, the CLI and hosts that run
// without a display.
package platform

import (
	"time"

	"github.com/vulfram/vulfram-core/internal/protocol"
)

// NativeID identifies a window inside its windowing system. It is distinct
// from the engine id the host sees.
type NativeID uint64

// WindowAttributes describe a window to create.
type WindowAttributes struct {
	Title       string
	Size        [2]uint32
	Position    [2]int32
	Borderless  bool
	Resizable   bool
	AlwaysOnTop bool
	Transparent bool
	State       protocol.WindowState
}

// Window is one native window.
type Window interface {
	ID() NativeID
	Size() [2]uint32
	SetTitle(title string) error
	SetSize(size [2]uint32) error
	SetState(state protocol.WindowState) error
	RequestRedraw()
	Close() error
}

// Windowing creates windows and pumps their event loop.
type Windowing interface {
	CreateWindow(attrs WindowAttributes) (Window, error)
	// Pump collects pending platform events, waiting at most timeout.
	// A zero timeout never blocks.
	Pump(timeout time.Duration) ([]Event, error)
	Close() error
}

// EventKind discriminates platform events.
type EventKind int

const (
	EventResized EventKind = iota + 1
	EventMoved
	EventFocused
	EventCloseRequested
	EventDestroyed
	EventStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventResized:
		return "resized"
	case EventMoved:
		return "moved"
	case EventFocused:
		return "focused"
	case EventCloseRequested:
		return "close-requested"
	case EventDestroyed:
		return "destroyed"
	case EventStateChanged:
		return "state-changed"
	default:
		return "unknown"
	}
}

// Event is one notification from the windowing system. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind     EventKind
	Window   NativeID
	Size     [2]uint32
	Position [2]int32
	Focused  bool
	State    protocol.WindowState
}
