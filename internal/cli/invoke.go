package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/compiler"
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
	"github.com/roach88/thisme/internal/operator"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Database string
	Profile  string
	Username string
	Secret   string
	Reads    []string
}

// InvokeRead is one read made after the call.
type InvokeRead struct {
	Path  string     `json:"path"`
	Found bool       `json:"found"`
	Value ir.IRValue `json:"value,omitempty"`
}

// InvokeOutput is the output of the invoke command.
type InvokeOutput struct {
	SessionID string       `json:"session_id"`
	Path      string       `json:"path"`
	Reply     string       `json:"reply"` // "accessor", "value" or "read"
	Chain     string       `json:"chain,omitempty"`
	Found     bool         `json:"found"`
	Value     ir.IRValue   `json:"value,omitempty"`
	Thought   *ir.Thought  `json:"thought,omitempty"`
	Reads     []InvokeRead `json:"reads,omitempty"`
	Saved     int          `json:"saved,omitempty"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <path> [args...]",
		Short: "Dispatch one call on a fresh kernel",
		Long: `Dispatch a single call at a dotted path on a fresh kernel.

Arguments that are valid JSON are decoded (integers only, no floats);
anything else is passed as a string. Use "" as the path to call the root.
An operator profile and an identity can be applied first, reads can be
made afterwards, and with --db the resulting session is persisted.

Examples:
  me invoke ledger.host localhost:8161
  me invoke wallet._ s --read wallet.income
  me invoke "" ledger.host --profile ./social.cue
  me invoke profile.name Alice --username alice --secret s --db ./me.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeCall(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the session to this SQLite database")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "operator profile (.cue) to apply first")
	cmd.Flags().StringVar(&opts.Username, "username", "", "identity username")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "identity root secret")
	cmd.Flags().StringArrayVar(&opts.Reads, "read", nil, "path to read after the call (repeatable)")

	return cmd
}

func invokeCall(opts *InvokeOptions, path string, rawArgs []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	args := make([]any, len(rawArgs))
	for i, raw := range rawArgs {
		v, err := parseArg(raw)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("argument %d", i+1), err)
		}
		args[i] = v
	}

	k, err := newInvokeKernel(opts)
	if err != nil {
		return err
	}

	reply, err := k.Dispatch(ir.ParsePath(path), args...)
	if err != nil {
		code := string(operator.ErrorCode(err))
		if code == "" {
			code = ErrCodeCall
		}
		return f.Fail(ExitFailure, code, err.Error(), nil, func(w io.Writer) {
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
		})
	}

	out := InvokeOutput{
		SessionID: k.Session().ID,
		Path:      ir.ParsePath(path).String(),
		Reply:     replyName(reply.Kind),
		Found:     reply.Found,
		Value:     reply.Value,
		Thought:   reply.Thought,
	}
	if reply.Kind == kernel.ReplyAccessor {
		out.Chain = reply.Path.String()
	}
	for _, r := range opts.Reads {
		v, found := k.Read(ir.ParsePath(r))
		out.Reads = append(out.Reads, InvokeRead{Path: r, Found: found, Value: v})
	}

	if opts.Database != "" {
		n, err := saveKernel(cmd, opts.Database, k)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to persist session", err)
		}
		out.Saved = n
	}

	return f.Emit(out, func(w io.Writer) { writeInvokeText(w, out) })
}

func newInvokeKernel(opts *InvokeOptions) (*kernel.Kernel, error) {
	kopts := []kernel.Option{kernel.WithLogger(slog.Default())}
	if opts.Username != "" {
		kopts = append(kopts, kernel.WithIdentity(opts.Username, opts.Secret))
	}
	k, err := kernel.New(kopts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create kernel", err)
	}

	if opts.Profile != "" {
		p, err := compiler.LoadProfile(opts.Profile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load profile", err)
		}
		if errs := compiler.Validate(p); len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, "invalid profile", errs[0])
		}
		if err := k.Apply(*p); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to apply profile", err)
		}
	}
	return k, nil
}

func replyName(k kernel.ReplyKind) string {
	switch k {
	case kernel.ReplyValue:
		return "value"
	case kernel.ReplyRead:
		return "read"
	default:
		return "accessor"
	}
}

func writeInvokeText(w io.Writer, out InvokeOutput) {
	name := out.Path
	if name == "" {
		name = "(root)"
	}
	switch out.Reply {
	case "read":
		if out.Found {
			fmt.Fprintf(w, "%s -> %s\n", name, describeValue(out.Value))
		} else {
			fmt.Fprintf(w, "%s -> (hidden)\n", name)
		}
	case "value":
		fmt.Fprintf(w, "%s -> %s\n", name, describeValue(out.Value))
	default:
		if t := out.Thought; t != nil {
			fmt.Fprintf(w, "✓ %s committed seq=%d hash=%s\n", name, t.Seq, t.Hash)
		} else {
			fmt.Fprintf(w, "✓ %s (nothing committed)\n", name)
		}
		chain := out.Chain
		if chain == "" {
			chain = "(root)"
		}
		fmt.Fprintf(w, "  chain: %s\n", chain)
	}
	for _, r := range out.Reads {
		if r.Found {
			fmt.Fprintf(w, "  %s = %s\n", r.Path, describeValue(r.Value))
		} else {
			fmt.Fprintf(w, "  %s = (hidden)\n", r.Path)
		}
	}
	if out.Saved > 0 {
		fmt.Fprintf(w, "  saved %d thought(s) to session %s\n", out.Saved, out.SessionID)
	}
}
