package testutil

import (
	"testing"

	"github.com/vulfram/vulfram-core/internal/protocol"
)

// Batch encodes commands as one batch, numbering correlation ids from 1.
func Batch(t testing.TB, cmds ...protocol.Command) []byte {
	t.Helper()
	envs := make([]protocol.Envelope, len(cmds))
	for i, c := range cmds {
		envs[i] = protocol.Envelope{ID: uint64(i + 1), Command: c}
	}
	data, err := protocol.EncodeBatch(envs)
	if err != nil {
		t.Fatalf("encode batch: %v", err)
	}
	return data
}

// Envelopes encodes envelopes with explicit correlation ids.
func Envelopes(t testing.TB, envs ...protocol.Envelope) []byte {
	t.Helper()
	data, err := protocol.EncodeBatch(envs)
	if err != nil {
		t.Fatalf("encode batch: %v", err)
	}
	return data
}

// DecodeEvents decodes a received payload or fails the test.
func DecodeEvents(t testing.TB, data []byte) []protocol.Event {
	t.Helper()
	events, err := protocol.DecodeEvents(data)
	if err != nil {
		t.Fatalf("decode events: %v", err)
	}
	return events
}
