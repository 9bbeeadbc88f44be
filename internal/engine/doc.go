// Package engine holds the engine state the host drives through the core
// boundary.
//
// ARCHITECTURE:
//
// Single Owner:
// A State is created, mutated and destroyed on one OS thread. Nothing in this
// package locks; exclusivity is enforced one level up by the thread guard.
// Collaborators (windowing, graphics, shader translation) are driven
// synchronously from the same thread.
//
// Command Flow:
//  1. Send decodes a CBOR batch, all-or-nothing.
//  2. Apply runs each command in array order.
//  3. A failing command pushes a command-failed event carrying its
//     correlation id, then processing continues with the next command.
//  4. Successful creates, closes and shader compiles push their own events.
//
// Tick Flow:
//  1. The frame clock records host time and delta.
//  2. The windowing collaborator is pumped once without blocking.
//  3. Platform events are folded into window state and the event queue.
//  4. Every live window is asked to redraw.
//
// Events leave the engine only through Receive, which uses the two-phase
// size negotiation in package protocol. The queue is cleared only after a
// successful copy.
package engine
