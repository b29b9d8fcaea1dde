package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/ir"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database  string
	SessionID string
	Path      string // optional - history of one path
}

// LogEntry is one commit record with its verification status.
type LogEntry struct {
	Thought  ir.Thought `json:"thought"`
	Verified bool       `json:"verified"`
}

// LogStats holds summary statistics for a log.
type LogStats struct {
	Total        int `json:"total"`
	Tombstones   int `json:"tombstones"`
	Declarations int `json:"declarations"`
	Unverified   int `json:"unverified"`
}

// LogResult is the output of the log command.
type LogResult struct {
	SessionID string     `json:"session_id"`
	Path      string     `json:"path,omitempty"`
	Entries   []LogEntry `json:"entries"`
	Stats     LogStats   `json:"stats"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show a session's commit log",
		Long: `Show the commit log of a stored session in seq order.

Every record's fingerprint is recomputed and shown as verified or not.
Secret and noise declarations appear redacted; values inside secret
branches appear as ciphertext.

Examples:
  me log --db ./me.db
  me log --db ./me.db --session 0192f0c4-... --path wallet.income
  me log --db ./me.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (default: most recent)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "only records at this path")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := resolveSession(ctx, st, opts.SessionID)
	if err != nil {
		return err
	}

	var thoughts []ir.Thought
	if opts.Path != "" {
		thoughts, err = st.ReadPathHistory(ctx, sess.ID, ir.ParsePath(opts.Path).String())
	} else {
		thoughts, err = st.ReadThoughts(ctx, sess.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	result, err := buildLogResult(sess.ID, opts.Path, thoughts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify log", err)
	}
	return f.Emit(result, func(w io.Writer) { writeLogText(w, result, opts.Verbose) })
}

func buildLogResult(sessionID, path string, thoughts []ir.Thought) (LogResult, error) {
	result := LogResult{
		SessionID: sessionID,
		Path:      path,
		Entries:   make([]LogEntry, 0, len(thoughts)),
	}
	for _, t := range thoughts {
		ok, err := ir.VerifyThought(t)
		if err != nil {
			return result, fmt.Errorf("seq %d: %w", t.Seq, err)
		}
		result.Entries = append(result.Entries, LogEntry{Thought: t, Verified: ok})

		result.Stats.Total++
		switch {
		case t.IsTombstone():
			result.Stats.Tombstones++
		case t.Operator == ir.OpSecret || t.Operator == ir.OpNoise:
			result.Stats.Declarations++
		}
		if !ok {
			result.Stats.Unverified++
		}
	}
	return result, nil
}

func writeLogText(w io.Writer, result LogResult, verbose bool) {
	fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	if result.Path != "" {
		fmt.Fprintf(w, "Path: %s\n", result.Path)
	}
	fmt.Fprintln(w)

	for _, entry := range result.Entries {
		mark := "✓"
		if !entry.Verified {
			mark = "✗"
		}
		e := entry.Thought
		op := e.Operator
		if op == "" {
			op = "·"
		}
		path := e.Path
		if path == "" {
			path = "(root)"
		}
		fmt.Fprintf(w, "%s %4d  %-2s %s = %s  #%s\n", mark, e.Seq, op, path, describeValue(e.Value), e.Hash)
		if verbose {
			if e.Expression != nil {
				fmt.Fprintf(w, "         expression: %s\n", describeValue(e.Expression))
			}
			fmt.Fprintf(w, "         effective_secret: %q\n", e.EffectiveSecret)
			fmt.Fprintf(w, "         at: %s\n", time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339Nano))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d thoughts, %d tombstones, %d declarations, %d unverified\n",
		result.Stats.Total, result.Stats.Tombstones, result.Stats.Declarations, result.Stats.Unverified)
}
