// Package protocol defines the binary wire format between the host and the
// engine core.
//
// Commands travel host → engine as a CBOR array of envelopes:
//
//	[{"id": 7, "type": "cmd-window-create", "content": {"title": "Main", "size": [800, 600]}}, ...]
//
// Events travel engine → host as a CBOR array:
//
//	[{"type": "window-created", "correlation_id": 7, "content": {"id": 1}}, ...]
//
// Tags are stable kebab-case strings. New commands and events are added, never
// renamed or reordered. Unknown fields are ignored so an older engine can read
// a newer host's batches; unknown command tags decode successfully and are
// reported per command when applied.
//
// Decoding is all-or-nothing: one malformed envelope rejects the whole batch.
//
// Outbound payloads (event batches, buffers) are handed to the host through
// the two-phase negotiation in negotiate.go.
package protocol
