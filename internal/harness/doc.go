// Package harness runs scripted host sessions against the engine core.
//
// A scenario plays the part of a host: it initializes the core, sends
// command batches, drains events, moves buffers, ticks frames and injects
// platform events, all from a dedicated OS thread. Steps can be marked to
// run on a second thread to exercise the owner-thread guard.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files with the following structure:
//
//	name: window_lifecycle
//	description: "Create a window, resize it, close it"
//	steps:
//	  - op: init
//	  - op: send
//	    batch:
//	      - id: 1
//	        type: cmd-window-create
//	        content: { title: main, size: [800, 600] }
//	  - op: receive
//	  - op: inject
//	    event: { kind: resized, window: 1, size: [1024, 768] }
//	  - op: tick
//	  - op: receive
//	  - op: dispose
//	assertions:
//	  - type: events
//	    events: [window-created, window-resized]
//	  - type: window_count
//	    count: 0
//
// Every step expects Success unless it names another result with expect.
// A receive or download without a capacity performs the host's full
// two-phase exchange: probe for the size, then copy.
//
// # Assertion Types
//
//   - events: the drained event types, in order, equal the list
//   - event_count: events of one type were drained exactly count times
//   - window_count: the live engine holds count windows
//   - buffer: the buffer holds data (or is absent when absent is set)
//   - replay: the recorded session replays against a fresh core with no
//     divergence
//
// # Determinism
//
// Ticks without explicit time advance a fixed-step clock, the journal
// session id is the scenario name, and all engine collaborators are
// headless, so the same scenario always produces the same report.
package harness
