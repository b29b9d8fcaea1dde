package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/compiler"
	"github.com/roach88/thisme/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileOutput summarizes a compiled profile.
type CompileOutput struct {
	Profile   *ir.Profile `json:"profile"`
	Operators int         `json:"operators"`
	Seed      int         `json:"seed"`
	Output    string      `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <profile.cue>",
		Short: "Compile an operator profile to canonical JSON",
		Long: `Compile a CUE operator profile to its canonical JSON form.

The output has sorted keys and integer-only numbers, so the same profile
always compiles to the same bytes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	p, err := compiler.LoadProfile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("profile not found: %s", path), err)
	}
	if err != nil {
		verr := compileErrorToValidation(err)
		return f.Fail(ExitFailure, verr.Code, verr.Error(), nil, func(w io.Writer) {
			fmt.Fprintf(w, "✗ %s\n", verr.Error())
		})
	}

	data, err := canonicalProfile(p)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode profile", err)
	}

	out := CompileOutput{Profile: p, Operators: len(p.Operators), Seed: len(p.Seed), Output: opts.Output}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
		f.VerboseLog("Wrote %s", opts.Output)
	}

	return f.Emit(out, func(w io.Writer) {
		if opts.Output != "" {
			fmt.Fprintf(w, "✓ Compiled profile %s (%d operators, %d seed writes) -> %s\n", p.Name, out.Operators, out.Seed, opts.Output)
			return
		}
		fmt.Fprintln(w, string(data))
	})
}

// canonicalProfile renders p as canonical JSON.
func canonicalProfile(p *ir.Profile) ([]byte, error) {
	ops := make(ir.IRArray, len(p.Operators))
	for i, def := range p.Operators {
		ops[i] = ir.IRObject{"token": ir.IRString(def.Token), "kind": ir.IRString(def.Kind)}
	}
	seed := make(ir.IRArray, len(p.Seed))
	for i, s := range p.Seed {
		args := s.Args
		if args == nil {
			args = ir.IRArray{}
		}
		seed[i] = ir.IRObject{"path": ir.IRString(s.Path), "args": args}
	}
	return ir.MarshalCanonical(ir.IRObject{
		"name":      ir.IRString(p.Name),
		"operators": ops,
		"seed":      seed,
	})
}
