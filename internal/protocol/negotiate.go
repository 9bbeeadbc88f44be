package protocol

import "github.com/vulfram/vulfram-core/internal/result"

// Outcome is the tagged result of one negotiation call.
type Outcome int

const (
	// NeedsSize: the caller passed no buffer; Length is the required size.
	NeedsSize Outcome = iota + 1
	// Copied: the payload was copied; Length is the number of bytes written.
	Copied
	// Overflow: the caller's buffer is too small; Length is the required size.
	Overflow
)

func (o Outcome) String() string {
	switch o {
	case NeedsSize:
		return "needs-size"
	case Copied:
		return "copied"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Negotiation is the result of handing a payload to a caller-allocated buffer.
type Negotiation struct {
	Outcome Outcome
	Length  int
}

// Code maps the outcome to its boundary code.
func (n Negotiation) Code() result.Code {
	if n.Outcome == Overflow {
		return result.BufferOverflow
	}
	return result.Success
}

// Negotiate performs one phase of the two-phase size negotiation used by
// event retrieval and buffer download.
//
// A nil out asks for the size only. A non-nil out is the caller's buffer;
// its length is the capacity. This is the only place payload bytes are
// copied into host memory, and copy never writes past len(out).
func Negotiate(out []byte, payload []byte) Negotiation {
	if out == nil {
		return Negotiation{Outcome: NeedsSize, Length: len(payload)}
	}
	if len(out) < len(payload) {
		return Negotiation{Outcome: Overflow, Length: len(payload)}
	}
	n := copy(out, payload)
	return Negotiation{Outcome: Copied, Length: n}
}
