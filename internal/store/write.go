package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/thisme/internal/ir"
)

// Snapshot is what a kernel exposes for persistence.
type Snapshot interface {
	Session() ir.Session
	Thoughts() []ir.Thought
	Branches() map[string]string
}

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; the first write wins.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("write session: empty session id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, identity_root, public_key, identity_hash, created_at, kernel_version, log_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.IdentityRoot,
		sess.PublicKey,
		sess.IdentityHash,
		sess.CreatedAt,
		ir.KernelVersion,
		ir.LogVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteThoughts appends commit records for a session in one transaction.
// Records whose (session_id, seq) already exist are skipped, so saving the
// same growing log repeatedly only inserts the new tail.
//
// Returns the number of records inserted.
func (s *Store) WriteThoughts(ctx context.Context, sessionID string, thoughts []ir.Thought) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write thoughts: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO thoughts
		(session_id, seq, path, operator, expression, value, effective_secret, hash, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("write thoughts: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range thoughts {
		expr, err := marshalValue(t.Expression)
		if err != nil {
			return 0, fmt.Errorf("write thoughts: seq %d expression: %w", t.Seq, err)
		}
		value, err := marshalValue(t.Value)
		if err != nil {
			return 0, fmt.Errorf("write thoughts: seq %d value: %w", t.Seq, err)
		}

		res, err := stmt.ExecContext(ctx,
			sessionID,
			t.Seq,
			t.Path,
			nullableString(t.Operator),
			expr,
			value,
			t.EffectiveSecret,
			t.Hash,
			t.Timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("write thoughts: seq %d: %w", t.Seq, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write thoughts: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write thoughts: commit: %w", err)
	}
	return inserted, nil
}

// WriteBranches replaces the stored branch blobs of a session.
func (s *Store) WriteBranches(ctx context.Context, sessionID string, branches map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write branches: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM branches WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("write branches: clear: %w", err)
	}

	scopes := make([]string, 0, len(branches))
	for scope := range branches {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)

	for _, scope := range scopes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO branches (session_id, scope, blob) VALUES (?, ?, ?)
		`, sessionID, scope, branches[scope]); err != nil {
			return fmt.Errorf("write branches: scope %q: %w", scope, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write branches: commit: %w", err)
	}
	return nil
}

// Save persists a kernel snapshot: session row, new log records and the
// current branch blobs.
func (s *Store) Save(ctx context.Context, snap Snapshot) (int, error) {
	sess := snap.Session()
	if err := s.WriteSession(ctx, sess); err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}
	n, err := s.WriteThoughts(ctx, sess.ID, snap.Thoughts())
	if err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}
	if err := s.WriteBranches(ctx, sess.ID, snap.Branches()); err != nil {
		return 0, fmt.Errorf("save: %w", err)
	}
	return n, nil
}
