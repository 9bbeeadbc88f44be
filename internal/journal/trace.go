package journal

import (
	"bytes"

	"github.com/vulfram/vulfram-core/internal/protocol"
)

// TraceJSON renders calls as canonical JSON, one object per line.
//
// Send payloads and receive outputs are decoded from CBOR so the trace shows
// commands and events; buffer bytes render as hex. A payload that does not
// decode (a rejected batch) is shown as hex too.
func TraceJSON(calls []Call) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range calls {
		line, err := protocol.MarshalCanonical(traceValue(c))
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func traceValue(c Call) map[string]any {
	v := map[string]any{
		"seq":    c.Seq,
		"op":     string(c.Op),
		"result": c.Result.String(),
	}

	switch c.Op {
	case OpSend:
		v["batch"] = decoded(c.Payload)
	case OpReceive:
		if c.NilLength {
			v["nil_length"] = true
		}
		v["capacity"] = c.Capacity
		v["length"] = c.Length
		if c.Output != nil {
			v["events"] = decoded(c.Output)
		}
	case OpUpload:
		v["buffer"] = c.BufferID
		v["data"] = bytesOrEmpty(c.Payload)
	case OpDownload:
		if c.NilLength {
			v["nil_length"] = true
		}
		v["buffer"] = c.BufferID
		v["capacity"] = c.Capacity
		v["length"] = c.Length
		if c.Output != nil {
			v["data"] = c.Output
		}
	case OpClear:
		v["buffer"] = c.BufferID
	case OpTick:
		v["time"] = c.Time
		v["delta"] = uint64(c.Delta)
	}
	return v
}

func decoded(data []byte) any {
	v, err := protocol.Generic(data)
	if err != nil {
		return bytesOrEmpty(data)
	}
	// Hosts may send values canonical JSON cannot carry (floats).
	if _, err := protocol.MarshalCanonical(v); err != nil {
		return bytesOrEmpty(data)
	}
	return v
}

func bytesOrEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
