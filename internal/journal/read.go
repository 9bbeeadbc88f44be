package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vulfram/vulfram-core/internal/result"
)

// ReadSessions returns every session in the order they began.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, engine_version, graphics
		FROM sessions
		ORDER BY ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.EngineVersion, &sess.Graphics); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently started session.
// Returns sql.ErrNoRows for an empty journal.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, engine_version, graphics
		FROM sessions
		ORDER BY ordinal DESC
		LIMIT 1
	`).Scan(&sess.ID, &sess.EngineVersion, &sess.Graphics)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ReadSession returns one session by id.
// Returns sql.ErrNoRows if absent.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, engine_version, graphics
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.EngineVersion, &sess.Graphics)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ReadCalls returns a session's calls ordered by seq.
// Returns an empty slice (not nil) when the session recorded nothing.
func (s *Store) ReadCalls(ctx context.Context, sessionID string) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, op, buffer_id, time, delta, capacity, payload, output, length, nil_length, result
		FROM calls
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

func scanCall(rows *sql.Rows) (Call, error) {
	var c Call
	var op string
	var bufferID, tm, delta, length, code int64
	if err := rows.Scan(&c.Seq, &op, &bufferID, &tm, &delta, &c.Capacity, &c.Payload, &c.Output, &length, &c.NilLength, &code); err != nil {
		return Call{}, fmt.Errorf("scan call: %w", err)
	}
	c.Op = Op(op)
	c.BufferID = uint64(bufferID)
	c.Time = uint64(tm)
	c.Delta = uint32(delta)
	c.Length = uint64(length)
	c.Result = result.Code(code)
	return c, nil
}
