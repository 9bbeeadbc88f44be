package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vulfram/vulfram-core/internal/config"
)

// IDGenerator produces session ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics once every id has been used, to catch misconfigured tests.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Recorder appends calls to one session.
//
// Write failures are logged and swallowed: the journal is diagnostics and
// must never change what the host sees.
type Recorder struct {
	store   *Store
	session Session
	seq     int64
	logger  *slog.Logger
}

// NewRecorder starts a new session in store.
func NewRecorder(ctx context.Context, store *Store, gen IDGenerator, engineVersion, graphics string, logger *slog.Logger) (*Recorder, error) {
	sess := Session{
		ID:            gen.Generate(),
		EngineVersion: engineVersion,
		Graphics:      graphics,
	}
	if err := store.BeginSession(ctx, sess); err != nil {
		return nil, err
	}
	return &Recorder{
		store:   store,
		session: sess,
		logger:  config.OrNop(logger),
	}, nil
}

// Session returns the recorder's session.
func (r *Recorder) Session() Session { return r.session }

// Record stamps c with the next seq and writes it.
func (r *Recorder) Record(c Call) {
	r.seq++
	c.Seq = r.seq
	if err := r.store.WriteCall(context.Background(), r.session.ID, c); err != nil {
		r.logger.Warn("journal write failed",
			"session", r.session.ID,
			"seq", c.Seq,
			"op", c.Op,
			"error", err,
		)
	}
}

// Seq returns the seq of the last recorded call.
func (r *Recorder) Seq() int64 { return r.seq }
