package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/thisme/internal/ir"
)

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadSession retrieves a session by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_root, public_key, identity_hash, created_at
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if err != nil {
		return ir.Session{}, err
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by creation, then id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]ir.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_root, public_key, identity_hash, created_at
		FROM sessions
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently created session.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestSession(ctx context.Context) (ir.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_root, public_key, identity_hash, created_at
		FROM sessions
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	return scanSession(row)
}

// ReadThoughts returns a session's commit log in seq order.
// Returns an empty slice (not nil) if the session has no records.
func (s *Store) ReadThoughts(ctx context.Context, sessionID string) ([]ir.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, path, operator, expression, value, effective_secret, hash, timestamp
		FROM thoughts
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query thoughts: %w", err)
	}
	defer rows.Close()

	return collectThoughts(rows)
}

// ReadPathHistory returns every record committed at exactly path, in seq
// order.
func (s *Store) ReadPathHistory(ctx context.Context, sessionID, path string) ([]ir.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, path, operator, expression, value, effective_secret, hash, timestamp
		FROM thoughts
		WHERE session_id = ? AND path = ?
		ORDER BY seq ASC
	`, sessionID, path)
	if err != nil {
		return nil, fmt.Errorf("query path history: %w", err)
	}
	defer rows.Close()

	return collectThoughts(rows)
}

// ReadBranches returns a session's branch blobs keyed by scope root.
func (s *Store) ReadBranches(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, blob FROM branches
		WHERE session_id = ?
		ORDER BY scope COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	branches := make(map[string]string)
	for rows.Next() {
		var scope, blob string
		if err := rows.Scan(&scope, &blob); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches[scope] = blob
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}
	return branches, nil
}

func collectThoughts(rows *sql.Rows) ([]ir.Thought, error) {
	thoughts := []ir.Thought{}
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		thoughts = append(thoughts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thoughts: %w", err)
	}
	return thoughts, nil
}

func scanSession(row scanner) (ir.Session, error) {
	var sess ir.Session
	err := row.Scan(&sess.ID, &sess.IdentityRoot, &sess.PublicKey, &sess.IdentityHash, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return ir.Session{}, err
	}
	if err != nil {
		return ir.Session{}, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

func scanThought(row scanner) (ir.Thought, error) {
	var (
		t               ir.Thought
		op, expr, value sql.NullString
	)
	if err := row.Scan(&t.Seq, &t.Path, &op, &expr, &value, &t.EffectiveSecret, &t.Hash, &t.Timestamp); err != nil {
		return ir.Thought{}, fmt.Errorf("scan thought: %w", err)
	}
	t.Operator = op.String

	var err error
	if t.Expression, err = unmarshalValue(expr); err != nil {
		return ir.Thought{}, fmt.Errorf("thought seq %d expression: %w", t.Seq, err)
	}
	if t.Value, err = unmarshalValue(value); err != nil {
		return ir.Thought{}, fmt.Errorf("thought seq %d value: %w", t.Seq, err)
	}
	return t, nil
}
