package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
	"github.com/roach88/thisme/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string  `json:"session_id"`
	Thoughts      int     `json:"thoughts"`
	LastSeq       int64   `json:"last_seq"`
	Tombstones    int     `json:"tombstones"`
	Declarations  int     `json:"declarations"`
	Branches      int     `json:"branches"`
	IndexKeys     int     `json:"index_keys"`
	Deterministic bool    `json:"deterministic"`
	Unverified    []int64 `json:"unverified,omitempty"`
	Diff          string  `json:"diff,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
	AllVerified      bool                  `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay stored logs and verify determinism",
		Long: `Replay stored commit logs to verify determinism and integrity.

For each session the log is read and folded into an index twice; the two
indexes must be identical. Every record's fingerprint is recomputed, and
records whose stored hash does not match are reported as unverified.

Exit codes:
  0 - All sessions deterministic and verified
  1 - Nondeterministic replay or unverified records
  2 - Command error (database not found, etc.)

Examples:
  me replay --db ./me.db
  me replay --db ./me.db --session 0192f0c4-...
  me replay --db ./me.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if opts.SessionID != "" {
		sess, err := resolveSession(ctx, st, opts.SessionID)
		if err != nil {
			return err
		}
		ids = []string{sess.ID}
	} else {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(ids)),
		TotalSessions:    len(ids),
		AllDeterministic: true,
		AllVerified:      true,
	}
	for _, id := range ids {
		f.VerboseLog("Replaying session %s", id)
		sr, err := replaySession(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
		if len(sr.Unverified) > 0 {
			result.AllVerified = false
		}
	}

	text := func(w io.Writer) { writeReplayText(w, result, opts.Verbose) }
	switch {
	case !result.AllDeterministic:
		return f.Fail(ExitFailure, ErrCodeDeterminism, "determinism verification failed", result, text)
	case !result.AllVerified:
		return f.Fail(ExitFailure, ErrCodeDeterminism, "fingerprint verification failed", result, text)
	}
	return f.Emit(result, text)
}

// replaySession folds a session's log twice and checks both passes agree.
func replaySession(ctx context.Context, st *store.Store, id string) (ReplaySessionResult, error) {
	state, err := st.GetSessionState(ctx, id)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	first, err := replayOnce(ctx, st, id)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	second, err := replayOnce(ctx, st, id)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	diff := cmp.Diff(first, second)
	return ReplaySessionResult{
		SessionID:     id,
		Thoughts:      state.ThoughtCount,
		LastSeq:       state.LastSeq,
		Tombstones:    state.Tombstones,
		Declarations:  state.Declarations,
		Branches:      state.Branches,
		IndexKeys:     len(first),
		Deterministic: diff == "",
		Unverified:    state.Unverified,
		Diff:          diff,
	}, nil
}

func replayOnce(ctx context.Context, st *store.Store, id string) (map[string]ir.IRValue, error) {
	thoughts, err := st.ReadThoughts(ctx, id)
	if err != nil {
		return nil, err
	}
	return kernel.ReplayIndex(thoughts), nil
}

func writeReplayText(w io.Writer, result ReplayResult, verbose bool) {
	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		mark := "✓"
		if !s.Deterministic || len(s.Unverified) > 0 {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s\n", mark, s.SessionID)
		if verbose {
			fmt.Fprintf(w, "  Thoughts: %d (last seq %d)\n", s.Thoughts, s.LastSeq)
			fmt.Fprintf(w, "  Tombstones: %d\n", s.Tombstones)
			fmt.Fprintf(w, "  Declarations: %d\n", s.Declarations)
			fmt.Fprintf(w, "  Branches: %d\n", s.Branches)
			fmt.Fprintf(w, "  Index keys: %d\n", s.IndexKeys)
		} else {
			fmt.Fprintf(w, "  Events: %d thoughts, %d index keys\n", s.Thoughts, s.IndexKeys)
		}
		if !s.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
			if verbose {
				fmt.Fprintln(w, s.Diff)
			}
		}
		if len(s.Unverified) > 0 {
			fmt.Fprintf(w, "  Warning: fingerprint mismatch at seq %v\n", s.Unverified)
		}
		fmt.Fprintln(w)
	}

	switch {
	case !result.AllDeterministic:
		fmt.Fprintln(w, "✗ Determinism verification failed")
	case !result.AllVerified:
		fmt.Fprintln(w, "✗ Fingerprint verification failed")
	default:
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
	}
}
