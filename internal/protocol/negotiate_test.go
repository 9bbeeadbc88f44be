package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vulfram/vulfram-core/internal/result"
)

func TestNegotiate(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}

	tests := []struct {
		name    string
		out     []byte
		outcome Outcome
		length  int
		code    result.Code
	}{
		{"probe", nil, NeedsSize, 5, result.Success},
		{"exact fit", make([]byte, 5), Copied, 5, result.Success},
		{"larger buffer", make([]byte, 16), Copied, 5, result.Success},
		{"too small", make([]byte, 4), Overflow, 5, result.BufferOverflow},
		{"empty non-nil buffer", []byte{}, Overflow, 5, result.BufferOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Negotiate(tt.out, payload)
			assert.Equal(t, tt.outcome, n.Outcome)
			assert.Equal(t, tt.length, n.Length)
			assert.Equal(t, tt.code, n.Code())
		})
	}
}

func TestNegotiateCopiesPrefixOnly(t *testing.T) {
	out := []byte{9, 9, 9, 9, 9, 9}
	n := Negotiate(out, []byte{1, 2, 3})
	assert.Equal(t, Copied, n.Outcome)
	assert.Equal(t, []byte{1, 2, 3, 9, 9, 9}, out)
}

func TestNegotiateOverflowLeavesBufferUntouched(t *testing.T) {
	out := []byte{9, 9}
	Negotiate(out, []byte{1, 2, 3})
	assert.Equal(t, []byte{9, 9}, out)
}

func TestNegotiateEmptyPayload(t *testing.T) {
	assert.Equal(t, Negotiation{Outcome: NeedsSize, Length: 0}, Negotiate(nil, nil))
	assert.Equal(t, Negotiation{Outcome: Copied, Length: 0}, Negotiate([]byte{}, nil))
}
