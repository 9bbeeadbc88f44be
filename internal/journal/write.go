package journal

import (
	"context"
	"fmt"
)

// BeginSession inserts a session row. Session ids are unique; a second
// insert with the same id fails.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, engine_version, graphics)
		VALUES (?, ?, ?)
	`, sess.ID, sess.EngineVersion, sess.Graphics)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", sess.ID, err)
	}
	return nil
}

// WriteCall appends a call to a session. The session must exist.
func (s *Store) WriteCall(ctx context.Context, sessionID string, c Call) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls
		(session_id, seq, op, buffer_id, time, delta, capacity, payload, output, length, nil_length, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		c.Seq,
		string(c.Op),
		int64(c.BufferID),
		int64(c.Time),
		int64(c.Delta),
		c.Capacity,
		c.Payload,
		c.Output,
		int64(c.Length),
		c.NilLength,
		int64(c.Result),
	)
	if err != nil {
		return fmt.Errorf("write call %d (%s): %w", c.Seq, c.Op, err)
	}
	return nil
}
