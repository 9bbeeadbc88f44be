package engine

import (
	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
	"github.com/vulfram/vulfram-core/internal/result"
)

// Tick advances one frame: record the host's time, pump platform events
// once, fold them into window state, then ask every window to redraw.
func (s *State) Tick(time uint64, delta uint32) error {
	frame := s.clock.Advance(time, delta)

	events, err := s.windowing.Pump(s.pumpTimeout)
	if err != nil {
		return result.Wrap(result.WindowingPumpError, "pump", err)
	}
	for _, e := range events {
		s.fold(e)
	}

	for _, id := range s.windows.ids() {
		h, _ := s.windows.get(id)
		h.Native.RequestRedraw()
	}

	if len(events) > 0 {
		s.logger.Debug("tick", "frame", frame, "platform_events", len(events), "queued", s.queue.Len())
	}
	return nil
}

// fold applies one platform event. Events for windows the engine no longer
// tracks are dropped.
func (s *State) fold(e platform.Event) {
	h, ok := s.windows.native(e.Window)
	if !ok {
		s.logger.Debug("platform event for unknown window", "kind", e.Kind, "native_id", e.Window)
		return
	}

	switch e.Kind {
	case platform.EventResized:
		if err := s.reconfigure(h, e.Size); err != nil {
			s.logger.Warn("surface reconfigure failed", "window", h.ID, "error", err)
		}
		s.queue.Push(protocol.Platform(protocol.WindowResized{ID: h.ID, Size: e.Size}))

	case platform.EventMoved:
		h.Position = e.Position
		s.queue.Push(protocol.Platform(protocol.WindowMoved{ID: h.ID, Position: e.Position}))

	case platform.EventFocused:
		h.Focused = e.Focused
		s.queue.Push(protocol.Platform(protocol.WindowFocused{ID: h.ID, Focused: e.Focused}))

	case platform.EventCloseRequested:
		s.queue.Push(protocol.Platform(protocol.WindowCloseRequested{ID: h.ID}))

	case platform.EventDestroyed:
		// The native window is already gone; only the surface needs releasing.
		h.Surface.Release()
		s.windows.remove(h.ID)
		s.queue.Push(protocol.Platform(protocol.WindowClosed{ID: h.ID}))

	case platform.EventStateChanged:
		h.State = e.State
		s.queue.Push(protocol.Platform(protocol.WindowStateChanged{ID: h.ID, State: e.State}))

	default:
		s.logger.Debug("unhandled platform event", "kind", e.Kind, "window", h.ID)
	}
}
