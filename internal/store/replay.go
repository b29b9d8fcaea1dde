package store

import (
	"context"
	"fmt"

	"github.com/roach88/thisme/internal/ir"
)

// SessionState summarizes a stored session for inspection and recovery.
type SessionState struct {
	Session      ir.Session
	ThoughtCount int
	LastSeq      int64
	Tombstones   int
	Declarations int // redacted secret and noise records
	Branches     int
	Unverified   []int64 // seqs whose fingerprint does not match
}

// GetSessionState loads a session's log and branch rows and reports their
// shape. Every record's fingerprint is recomputed; mismatches are listed in
// Unverified rather than failing the call.
func (s *Store) GetSessionState(ctx context.Context, sessionID string) (SessionState, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}
	state := SessionState{Session: sess}

	thoughts, err := s.ReadThoughts(ctx, sessionID)
	if err != nil {
		return state, fmt.Errorf("get session state: %w", err)
	}
	state.ThoughtCount = len(thoughts)

	for _, t := range thoughts {
		if t.Seq > state.LastSeq {
			state.LastSeq = t.Seq
		}
		switch {
		case t.IsTombstone():
			state.Tombstones++
		case t.Operator == ir.OpSecret || t.Operator == ir.OpNoise:
			state.Declarations++
		}

		ok, err := ir.VerifyThought(t)
		if err != nil {
			return state, fmt.Errorf("get session state: verify seq %d: %w", t.Seq, err)
		}
		if !ok {
			state.Unverified = append(state.Unverified, t.Seq)
		}
	}

	branches, err := s.ReadBranches(ctx, sessionID)
	if err != nil {
		return state, fmt.Errorf("get session state: %w", err)
	}
	state.Branches = len(branches)

	return state, nil
}

// DeleteSession removes a session and, through ON DELETE CASCADE, its log
// and branches.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session %q: not found", sessionID)
	}
	return nil
}
