package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/remote"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Endpoint  string
	WS        string
	Watch     time.Duration
	Reconnect time.Duration
}

// StatusOutput is the output of the status command.
type StatusOutput struct {
	Endpoint   string            `json:"endpoint"`
	Active     bool              `json:"active"`
	Version    *string           `json:"version"`
	Error      bool              `json:"error"`
	Identities []remote.Identity `json:"identities"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a this.me daemon",
		Long: `Ask a daemon for its status and the identities it knows.

An unreachable daemon is reported as inactive rather than failing. With
--ws the command also follows the daemon's push channel, printing every
state change and reconnecting when it drops, until --watch elapses or the
process is interrupted.

Examples:
  me status
  me status --endpoint http://localhost:7777/graphql --format json
  me status --ws ws://localhost:7777/ws --watch 1m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", remote.DefaultEndpoint, "GraphQL endpoint")
	cmd.Flags().StringVar(&opts.WS, "ws", "", "push channel URL to follow")
	cmd.Flags().DurationVar(&opts.Watch, "watch", 0, "how long to follow the push channel (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.Reconnect, "reconnect", remote.DefaultReconnectDelay, "push channel reconnect delay")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	client := remote.New(opts.Endpoint,
		remote.WithLogger(slog.Default()),
		remote.WithReconnectDelay(opts.Reconnect),
	)

	st := client.Status(parent)
	ids := client.ListIdentities(parent)
	out := StatusOutput{
		Endpoint:   client.Endpoint(),
		Active:     st.Active,
		Version:    st.Version,
		Error:      client.State().Status.Error,
		Identities: ids,
	}
	if err := f.Emit(out, func(w io.Writer) { writeStatusText(w, out) }); err != nil {
		return err
	}

	if opts.WS == "" {
		return nil
	}
	return followPushChannel(parent, opts, client, f)
}

func followPushChannel(parent context.Context, opts *StatusOptions, client *remote.Client, f *OutputFormatter) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Watch > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Watch)
		defer cancel()
	}

	var mu sync.Mutex
	unsubscribe := client.OnChange(func(s remote.State) {
		out := StatusOutput{
			Endpoint:   opts.WS,
			Active:     s.Status.Active,
			Error:      s.Status.Error,
			Identities: s.ListUs,
		}
		if s.Status.Data != nil {
			out.Version = s.Status.Data.Version
		}
		mu.Lock()
		defer mu.Unlock()
		_ = f.Emit(out, func(w io.Writer) { writeStatusText(w, out) })
	})
	defer unsubscribe()

	f.VerboseLog("Following %s", opts.WS)
	err := client.Subscribe(ctx, opts.WS)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func writeStatusText(w io.Writer, out StatusOutput) {
	state := "inactive"
	if out.Active {
		state = "active"
	}
	version := "unknown"
	if out.Version != nil {
		version = *out.Version
	}
	fmt.Fprintf(w, "%s: %s (version %s)", out.Endpoint, state, version)
	if out.Error {
		fmt.Fprint(w, " [unreachable]")
	}
	fmt.Fprintln(w)
	for _, id := range out.Identities {
		fmt.Fprintf(w, "  @%s\n", id.Username)
	}
}
