package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulfram/vulfram-core/internal/result"
)

// scriptedTarget answers every call from a fixed payload table and records
// what it was asked.
type scriptedTarget struct {
	events  []byte
	buffers map[uint64][]byte
	tickErr bool
	ops     []Op
}

func (s *scriptedTarget) Init() result.Code { s.ops = append(s.ops, OpInit); return result.Success }
func (s *scriptedTarget) Dispose() result.Code {
	s.ops = append(s.ops, OpDispose)
	return result.Success
}
func (s *scriptedTarget) Send([]byte) result.Code {
	s.ops = append(s.ops, OpSend)
	return result.Success
}

func (s *scriptedTarget) Receive(out []byte, length *uint64) result.Code {
	s.ops = append(s.ops, OpReceive)
	return negotiate(s.events, out, length)
}

func (s *scriptedTarget) Upload(id uint64, data []byte) result.Code {
	s.ops = append(s.ops, OpUpload)
	s.buffers[id] = append([]byte(nil), data...)
	return result.Success
}

func (s *scriptedTarget) Download(id uint64, out []byte, length *uint64) result.Code {
	s.ops = append(s.ops, OpDownload)
	data, ok := s.buffers[id]
	if !ok {
		return result.UnknownError
	}
	return negotiate(data, out, length)
}

func (s *scriptedTarget) Clear(id uint64) result.Code {
	s.ops = append(s.ops, OpClear)
	delete(s.buffers, id)
	return result.Success
}

func (s *scriptedTarget) Tick(uint64, uint32) result.Code {
	s.ops = append(s.ops, OpTick)
	if s.tickErr {
		return result.WindowingPumpError
	}
	return result.Success
}

func negotiate(payload, out []byte, length *uint64) result.Code {
	if length == nil {
		return result.InvalidParameter
	}
	*length = uint64(len(payload))
	if out == nil {
		return result.Success
	}
	if len(out) < len(payload) {
		return result.BufferOverflow
	}
	copy(out, payload)
	return result.Success
}

func recordedSession() []Call {
	return []Call{
		{Seq: 1, Op: OpInit, Capacity: Probe, Result: result.Success},
		{Seq: 2, Op: OpUpload, BufferID: 1, Payload: []byte("abc"), Capacity: Probe, Result: result.Success},
		{Seq: 3, Op: OpDownload, BufferID: 1, Capacity: Probe, Length: 3, Result: result.Success},
		{Seq: 4, Op: OpDownload, BufferID: 1, Capacity: 2, Length: 3, Result: result.BufferOverflow},
		{Seq: 5, Op: OpDownload, BufferID: 1, Capacity: 8, Output: []byte("abc"), Length: 3, Result: result.Success},
		{Seq: 6, Op: OpSend, Payload: []byte{0x80}, Capacity: Probe, Result: result.Success},
		{Seq: 7, Op: OpReceive, Capacity: 4, Output: []byte{0x80}, Length: 1, Result: result.Success},
		{Seq: 8, Op: OpTick, Time: 16, Delta: 16, Capacity: Probe, Result: result.Success},
		{Seq: 9, Op: OpClear, BufferID: 1, Capacity: Probe, Result: result.Success},
		{Seq: 10, Op: OpDispose, Capacity: Probe, Result: result.WrongThread},
		{Seq: 11, Op: OpDispose, Capacity: Probe, Result: result.Success},
	}
}

func TestReplay_Reproduces(t *testing.T) {
	target := &scriptedTarget{events: []byte{0x80}, buffers: map[uint64][]byte{}}

	res := Replay(recordedSession(), target)
	assert.True(t, res.OK(), "mismatches: %v", res.Mismatches)
	assert.Equal(t, 10, res.Calls, "wrong-thread calls are skipped")
	assert.Equal(t, []Op{
		OpInit, OpUpload, OpDownload, OpDownload, OpDownload,
		OpSend, OpReceive, OpTick, OpClear, OpDispose,
	}, target.ops)
}

func TestReplay_ReportsDivergence(t *testing.T) {
	target := &scriptedTarget{events: []byte{0x81, 0x00}, buffers: map[uint64][]byte{}, tickErr: true}

	res := Replay(recordedSession(), target)
	require.False(t, res.OK())

	var fields []string
	for _, m := range res.Mismatches {
		fields = append(fields, m.String())
	}
	joined := strings.Join(fields, "\n")
	assert.Contains(t, joined, "seq 7 (receive): length")
	assert.Contains(t, joined, "seq 8 (tick): result: want Success, got WindowingPumpError")
}

func TestReplay_NilLengthCell(t *testing.T) {
	target := &scriptedTarget{events: []byte{0x80}, buffers: map[uint64][]byte{1: []byte("abc")}}
	calls := []Call{
		{Seq: 1, Op: OpReceive, Capacity: 4, NilLength: true, Result: result.InvalidParameter},
		{Seq: 2, Op: OpDownload, BufferID: 1, Capacity: 8, NilLength: true, Result: result.InvalidParameter},
		{Seq: 3, Op: OpReceive, Capacity: 4, Output: []byte{0x80}, Length: 1, Result: result.Success},
	}

	res := Replay(calls, target)
	assert.True(t, res.OK(), "mismatches: %v", res.Mismatches)
	assert.Equal(t, 3, res.Calls)
}

func TestReplay_NilLengthCellDiverges(t *testing.T) {
	// Recorded with a cell, so the replay must pass one and see Success.
	calls := []Call{
		{Seq: 1, Op: OpReceive, Capacity: 4, Output: []byte{0x80}, Length: 1, Result: result.Success},
	}
	res := Replay(calls, &scriptedTarget{events: []byte{0x80}, buffers: map[uint64][]byte{}})
	require.True(t, res.OK(), "mismatches: %v", res.Mismatches)

	calls[0].NilLength = true
	res = Replay(calls, &scriptedTarget{events: []byte{0x80}, buffers: map[uint64][]byte{}})
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "seq 1 (receive): result: want Success, got InvalidParameter", res.Mismatches[0].String())
}

func TestReplay_OutputMismatch(t *testing.T) {
	target := &scriptedTarget{events: []byte{0x81}, buffers: map[uint64][]byte{}}
	calls := []Call{
		{Seq: 1, Op: OpReceive, Capacity: 4, Output: []byte{0x80}, Length: 1, Result: result.Success},
	}

	res := Replay(calls, target)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "output", res.Mismatches[0].Field)
	assert.Equal(t, "80", res.Mismatches[0].Want)
	assert.Equal(t, "81", res.Mismatches[0].Got)
}

func TestReplay_UnknownOp(t *testing.T) {
	res := Replay([]Call{{Seq: 1, Op: "explode"}}, &scriptedTarget{buffers: map[uint64][]byte{}})
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "op", res.Mismatches[0].Field)
}

func TestTraceJSON(t *testing.T) {
	calls := []Call{
		{Seq: 1, Op: OpInit, Capacity: Probe, Result: result.Success},
		{Seq: 2, Op: OpSend, Payload: []byte{0x80}, Capacity: Probe, Result: result.Success},
		{Seq: 3, Op: OpSend, Payload: []byte{0xff}, Capacity: Probe, Result: result.CmdInvalidCborError},
		{Seq: 4, Op: OpUpload, BufferID: 2, Payload: []byte{0xab}, Capacity: Probe, Result: result.Success},
		{Seq: 5, Op: OpTick, Time: 10, Delta: 5, Capacity: Probe, Result: result.Success},
		{Seq: 6, Op: OpReceive, Capacity: Probe, Length: 1, Result: result.Success},
		{Seq: 7, Op: OpDownload, BufferID: 2, Capacity: 4, NilLength: true, Result: result.InvalidParameter},
	}

	out, err := TraceJSON(calls)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`{"op":"init","result":"Success","seq":1}`,
		`{"batch":[],"op":"send","result":"Success","seq":2}`,
		`{"batch":"ff","op":"send","result":"CmdInvalidCborError","seq":3}`,
		`{"buffer":2,"data":"ab","op":"upload","result":"Success","seq":4}`,
		`{"delta":5,"op":"tick","result":"Success","seq":5,"time":10}`,
		`{"capacity":-1,"length":1,"op":"receive","result":"Success","seq":6}`,
		`{"buffer":2,"capacity":4,"length":0,"nil_length":true,"op":"download","result":"InvalidParameter","seq":7}`,
	}, "\n")+"\n", string(out))
}
