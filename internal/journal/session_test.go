package journal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulfram/vulfram-core/internal/result"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.Generate()
	b := gen.Generate()

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("one", "two")
	assert.Equal(t, "one", gen.Generate())
	assert.Equal(t, "two", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestRecorder_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := NewRecorder(ctx, s, NewFixedGenerator("session-1"), "1.2.3", "headless", nil)
	require.NoError(t, err)
	assert.Equal(t, Session{ID: "session-1", EngineVersion: "1.2.3", Graphics: "headless"}, rec.Session())

	rec.Record(Call{Op: OpInit, Capacity: Probe, Result: result.Success})
	rec.Record(Call{Op: OpUpload, BufferID: 4, Payload: []byte("abc"), Capacity: Probe, Result: result.Success})
	rec.Record(Call{Op: OpDispose, Capacity: Probe, Result: result.WrongThread})
	assert.Equal(t, int64(3), rec.Seq())

	calls, err := s.ReadCalls(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{calls[0].Seq, calls[1].Seq, calls[2].Seq})
	assert.Equal(t, []byte("abc"), calls[1].Payload)
	assert.Equal(t, result.WrongThread, calls[2].Result)
}

func TestRecorder_WriteFailureIsSwallowed(t *testing.T) {
	s := createTestStore(t)
	rec, err := NewRecorder(context.Background(), s, NewFixedGenerator("s"), "v", "headless", nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.NotPanics(t, func() {
		rec.Record(Call{Op: OpInit, Result: result.Success})
	})
	assert.Equal(t, int64(1), rec.Seq())
}

func TestNewRecorder_DuplicateSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := NewRecorder(ctx, s, NewFixedGenerator("same"), "v", "headless", nil)
	require.NoError(t, err)
	_, err = NewRecorder(ctx, s, NewFixedGenerator("same"), "v", "headless", nil)
	assert.Error(t, err)
}
