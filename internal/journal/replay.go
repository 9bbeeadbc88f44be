package journal

import (
	"bytes"
	"fmt"

	"github.com/vulfram/vulfram-core/internal/result"
)

// Target is the boundary a session is replayed against. *core.Core
// satisfies it.
type Target interface {
	Init() result.Code
	Dispose() result.Code
	Send(batch []byte) result.Code
	Receive(out []byte, length *uint64) result.Code
	Upload(id uint64, data []byte) result.Code
	Download(id uint64, out []byte, length *uint64) result.Code
	Clear(id uint64) result.Code
	Tick(time uint64, delta uint32) result.Code
}

// Mismatch is one divergence between a recorded call and its replay.
type Mismatch struct {
	Seq   int64
	Op    Op
	Field string
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq %d (%s): %s: want %s, got %s", m.Seq, m.Op, m.Field, m.Want, m.Got)
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Calls      int
	Mismatches []Mismatch
}

// OK reports whether the replay reproduced every call.
func (r ReplayResult) OK() bool { return len(r.Mismatches) == 0 }

// Replay re-issues calls against t in seq order and compares result codes,
// length cells and copied bytes.
//
// The target must be driven from a single thread; calls recorded as
// WrongThread are skipped because they never reached the engine.
func Replay(calls []Call, t Target) ReplayResult {
	res := ReplayResult{Mismatches: []Mismatch{}}

	for _, c := range calls {
		if c.Result == result.WrongThread {
			continue
		}
		res.Calls++

		var (
			code   result.Code
			length uint64
			out    []byte
		)
		if c.Capacity != Probe {
			out = make([]byte, c.Capacity)
		}
		cell := &length
		if c.NilLength {
			cell = nil
		}

		switch c.Op {
		case OpInit:
			code = t.Init()
		case OpDispose:
			code = t.Dispose()
		case OpSend:
			code = t.Send(c.Payload)
		case OpReceive:
			code = t.Receive(out, cell)
		case OpUpload:
			code = t.Upload(c.BufferID, c.Payload)
		case OpDownload:
			code = t.Download(c.BufferID, out, cell)
		case OpClear:
			code = t.Clear(c.BufferID)
		case OpTick:
			code = t.Tick(c.Time, c.Delta)
		default:
			res.Mismatches = append(res.Mismatches, Mismatch{
				Seq: c.Seq, Op: c.Op, Field: "op", Want: "known op", Got: string(c.Op),
			})
			continue
		}

		if code != c.Result {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Seq: c.Seq, Op: c.Op, Field: "result", Want: c.Result.String(), Got: code.String(),
			})
			continue
		}

		if c.Op != OpReceive && c.Op != OpDownload {
			continue
		}
		if length != c.Length {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Seq: c.Seq, Op: c.Op, Field: "length",
				Want: fmt.Sprint(c.Length), Got: fmt.Sprint(length),
			})
			continue
		}
		if c.Capacity != Probe && code == result.Success {
			got := out[:length]
			if !bytes.Equal(got, c.Output) {
				res.Mismatches = append(res.Mismatches, Mismatch{
					Seq: c.Seq, Op: c.Op, Field: "output",
					Want: fmt.Sprintf("%x", c.Output), Got: fmt.Sprintf("%x", got),
				})
			}
		}
	}
	return res
}
