package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/harness"
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
	"github.com/roach88/thisme/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario  string               `json:"scenario"`
	Pass      bool                 `json:"pass"`
	SessionID string               `json:"session_id"`
	Thoughts  int                  `json:"thoughts"`
	Saved     int                  `json:"saved,omitempty"`
	Errors    []string             `json:"errors,omitempty"`
	Trace     []harness.TraceEvent `json:"trace"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario against a fresh kernel",
		Long: `Run a scenario file against a fresh kernel with a deterministic clock.

Each step is traced. With --db the final session (log and branch blobs) is
persisted so it can be inspected with log, read and replay.

Exit codes:
  0 - Scenario passed
  1 - A step check or assertion failed
  2 - Command error (scenario not found, invalid profile, etc.)

Examples:
  me run ./scenarios/wallet.yaml
  me run ./scenarios/wallet.yaml --db ./me.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the session to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	f.VerboseLog("Loaded scenario %s (%d steps, %d assertions)", scenario.Name, len(scenario.Steps), len(scenario.Assertions))

	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunOutput{
		Scenario:  scenario.Name,
		Pass:      result.Pass,
		SessionID: result.Session.ID,
		Thoughts:  len(result.Thoughts),
		Errors:    result.Errors,
		Trace:     result.Trace,
	}

	if opts.Database != "" {
		n, err := persistResult(cmd.Context(), opts.Database, result)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to persist session", err)
		}
		out.Saved = n
		slog.Info("session persisted", "db", opts.Database, "session", result.Session.ID, "thoughts", n)
	}

	text := func(w io.Writer) { writeRunText(w, out, opts.Verbose) }
	if !result.Pass {
		return f.Fail(ExitFailure, ErrCodeTestFailed, fmt.Sprintf("scenario %s failed", scenario.Name), out, text)
	}
	return f.Emit(out, text)
}

func writeRunText(w io.Writer, out RunOutput, verbose bool) {
	mark := "✓"
	if !out.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (%d steps, %d thoughts)\n", mark, out.Scenario, len(out.Trace), out.Thoughts)
	fmt.Fprintf(w, "  session: %s\n", out.SessionID)
	if out.Saved > 0 {
		fmt.Fprintf(w, "  saved: %d thought(s)\n", out.Saved)
	}
	if verbose {
		for i, ev := range out.Trace {
			fmt.Fprintf(w, "  [%d] %s %s", i, ev.Type, ev.Path)
			if len(ev.Args) > 0 {
				fmt.Fprintf(w, " %v", ev.Args)
			}
			switch {
			case ev.Error != "":
				fmt.Fprintf(w, " error=%s", ev.Error)
			case ev.Type == harness.TraceRead && !ev.Found:
				fmt.Fprint(w, " -> (hidden)")
			case ev.Value != nil:
				fmt.Fprintf(w, " -> %s", describeValue(ev.Value))
			}
			if ev.Seq > 0 {
				fmt.Fprintf(w, " seq=%d", ev.Seq)
			}
			fmt.Fprintln(w)
		}
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// resultSnapshot exposes a scenario result to store.Save.
type resultSnapshot struct {
	r *harness.Result
}

func (s resultSnapshot) Session() ir.Session         { return s.r.Session }
func (s resultSnapshot) Thoughts() []ir.Thought      { return s.r.Thoughts }
func (s resultSnapshot) Branches() map[string]string { return s.r.Branches }

func persistResult(ctx context.Context, dbPath string, result *harness.Result) (int, error) {
	return saveSnapshot(ctx, dbPath, resultSnapshot{r: result})
}

// saveKernel persists a live kernel session.
func saveKernel(cmd *cobra.Command, dbPath string, k *kernel.Kernel) (int, error) {
	return saveSnapshot(cmd.Context(), dbPath, k)
}

func saveSnapshot(ctx context.Context, dbPath string, snap store.Snapshot) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()
	return st.Save(ctx, snap)
}
