package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/compiler"
	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Profile   string                     `json:"profile,omitempty"`
	Operators int                        `json:"operators"`
	Seed      int                        `json:"seed"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <profile.cue>",
		Short: "Validate an operator profile",
		Long: `Validate a CUE operator profile.

The profile is compiled, its token definitions and seed paths are checked,
and it is applied to a scratch kernel to make sure every seed write is
accepted. Pointer cycles in the seed are reported as warnings.

Exit codes:
  0 - Profile is valid (warnings allowed)
  1 - Profile has errors
  2 - Command error (file not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	result := ValidationResult{}
	p, err := compiler.LoadProfile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("profile not found: %s", path), err)
	}
	if err != nil {
		result.Errors = []compiler.ValidationError{compileErrorToValidation(err)}
		return outputValidation(f, result)
	}

	result.Profile = p.Name
	result.Operators = len(p.Operators)
	result.Seed = len(p.Seed)
	f.VerboseLog("Compiled profile %s: %d operator(s), %d seed write(s)", p.Name, len(p.Operators), len(p.Seed))

	result.Errors = compiler.Validate(p)
	if len(result.Errors) == 0 {
		if err := dryRunProfile(p); err != nil {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "seed",
				Message: err.Error(),
				Code:    ErrCodeProfile,
			})
		}
	}
	result.Warnings = compiler.AnalyzeCycles(p)

	return outputValidation(f, result)
}

// dryRunProfile applies p to a throwaway kernel.
func dryRunProfile(p *ir.Profile) error {
	k, err := kernel.New(kernel.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return err
	}
	return k.Apply(*p)
}

// compileErrorToValidation converts a compile failure, keeping its line.
func compileErrorToValidation(err error) compiler.ValidationError {
	var cErr *compiler.CompileError
	if errors.As(err, &cErr) {
		line := 0
		if cErr.Pos.IsValid() {
			line = cErr.Pos.Line()
		}
		return compiler.ValidationError{
			Field:   cErr.Field,
			Message: cErr.Message,
			Code:    ErrCodeProfile,
			Line:    line,
		}
	}
	return compiler.ValidationError{Field: "profile", Message: err.Error(), Code: ErrCodeGeneric}
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	result.Valid = len(result.Errors) == 0
	text := func(w io.Writer) { writeValidationText(w, result) }
	if !result.Valid {
		return f.Fail(ExitFailure, ErrCodeValidation, fmt.Sprintf("%d validation error(s)", len(result.Errors)), result, text)
	}
	return f.Emit(result, text)
}

func writeValidationText(w io.Writer, result ValidationResult) {
	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s\n", e.Error())
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn.Message)
	}
	if result.Valid {
		fmt.Fprintf(w, "✓ Profile %s is valid (%d operators, %d seed writes)\n", result.Profile, result.Operators, result.Seed)
	}
}
