package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	Database  string
	SessionID string
}

// ReadOutput is the output of the read command.
type ReadOutput struct {
	SessionID string                `json:"session_id"`
	Path      string                `json:"path"`
	Found     bool                  `json:"found"`
	Value     ir.IRValue            `json:"value,omitempty"`
	Under     map[string]ir.IRValue `json:"under,omitempty"`
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Read a path from a replayed index",
		Long: `Rebuild a stored session's index from its log and print the raw entry
at a path, together with every entry below it.

Values are shown as stored: entries in secret branches are not in the
index at all, and encrypted values are not decrypted.

Exit codes:
  0 - Path (or something below it) is in the index
  1 - Nothing at or below the path
  2 - Command error

Examples:
  me read --db ./me.db ledger.host
  me read --db ./me.db --session 0192f0c4-... ledger`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (default: most recent)")

	return cmd
}

func runRead(opts *ReadOptions, path string, cmd *cobra.Command) error {
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
	thoughts, err := st.ReadThoughts(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	out := lookupIndex(kernel.ReplayIndex(thoughts), ir.ParsePath(path).String())
	out.SessionID = sess.ID

	text := func(w io.Writer) { writeReadText(w, out) }
	if !out.Found && len(out.Under) == 0 {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("nothing at %s", out.Path), out, text)
	}
	return f.Emit(out, text)
}

func lookupIndex(index map[string]ir.IRValue, key string) ReadOutput {
	out := ReadOutput{Path: key}
	for k, v := range index {
		switch {
		case k == key:
			out.Found = true
			out.Value = v
		case ir.IsAtOrUnder(k, key):
			if out.Under == nil {
				out.Under = make(map[string]ir.IRValue)
			}
			out.Under[k] = v
		}
	}
	return out
}

func writeReadText(w io.Writer, out ReadOutput) {
	name := out.Path
	if name == "" {
		name = "(root)"
	}
	if out.Found {
		fmt.Fprintf(w, "%s = %s\n", name, describeValue(out.Value))
	} else {
		fmt.Fprintf(w, "%s: (not in index)\n", name)
	}

	keys := make([]string, 0, len(out.Under))
	for k := range out.Under {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, describeValue(out.Under[k]))
	}
}
