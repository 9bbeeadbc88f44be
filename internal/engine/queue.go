package engine

import "github.com/vulfram/vulfram-core/internal/protocol"

// EventQueue is the FIFO of events waiting for the host.
//
// The queue is unbounded: a long batch or a busy pump may push many events
// before the host drains them.
type EventQueue struct {
	events []protocol.Event
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]protocol.Event, 0, 64)}
}

// Push appends an event.
func (q *EventQueue) Push(e protocol.Event) {
	q.events = append(q.events, e)
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Events returns a copy of the pending events in order.
func (q *EventQueue) Events() []protocol.Event {
	out := make([]protocol.Event, len(q.events))
	copy(out, q.events)
	return out
}

// Encode serializes the pending events. Encoding is deterministic, so two
// calls with no mutation in between return identical bytes.
func (q *EventQueue) Encode() ([]byte, error) {
	return protocol.EncodeEvents(q.events)
}

// Clear drops every pending event.
func (q *EventQueue) Clear() {
	// Zero the slots so dropped events can be collected.
	clear(q.events)
	q.events = q.events[:0]
}
