package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to <scenarios>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "mismatch"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>",
		Short: "Run a directory of scenarios",
		Long: `Run every scenario file under a directory (or a single file).

Each scenario's step checks and assertions must hold. When a golden file
<golden-dir>/<scenario name>.golden exists, the canonical commit log must
match it byte for byte; --update rewrites the golden files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  me test ./scenarios
  me test ./scenarios --filter "wallet*"
  me test ./scenarios --update
  me test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <scenarios>/golden)")

	return cmd
}

func runTests(opts *TestOptions, root string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	info, err := os.Stat(root)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenarios not found: %s", root), err)
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		base := root
		if !info.IsDir() {
			base = filepath.Dir(root)
		}
		goldenDir = filepath.Join(base, "golden")
	}

	paths, err := harness.FindScenarios(root, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	f.VerboseLog("Found %d scenario(s) under %s", len(paths), root)

	suite := harness.RunSuite(paths)
	result := collectTestResult(suite, goldenDir, opts.Update)

	text := func(w io.Writer) { writeTestText(w, result) }
	if result.Failed > 0 {
		return f.Fail(ExitFailure, ErrCodeTestFailed, fmt.Sprintf("%d scenario(s) failed", result.Failed), result, text)
	}
	return f.Emit(result, text)
}

// collectTestResult merges suite outcomes with golden comparisons, in
// scenario path order.
func collectTestResult(suite *harness.SuiteResult, goldenDir string, update bool) TestResult {
	result := TestResult{Scenarios: []ScenarioResult{}, Total: suite.Total}

	failures := make(map[string]string, len(suite.Failures))
	for _, fl := range suite.Failures {
		failures[fl.ScenarioPath] = fl.Error
	}

	ran := make(map[string]bool, len(suite.Results))
	for _, entry := range suite.Results {
		ran[entry.Path] = true
		sr := ScenarioResult{Name: entry.Name, Path: entry.Path, Pass: entry.Result.Pass}
		if !sr.Pass {
			sr.Errors = entry.Result.Errors
		}

		golden, err := checkGolden(goldenDir, entry, update)
		sr.Golden = golden
		if err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	for path, msg := range failures {
		if ran[path] {
			continue
		}
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   filepath.Base(path),
			Path:   path,
			Errors: []string{msg},
		})
	}

	slices.SortFunc(result.Scenarios, func(a, b ScenarioResult) int {
		return strings.Compare(a.Path, b.Path)
	})
	for _, sr := range result.Scenarios {
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result
}

// checkGolden compares or rewrites <dir>/<name>.golden. A missing golden
// file is not an error unless update is set.
func checkGolden(dir string, entry harness.SuiteEntry, update bool) (string, error) {
	data, err := harness.GoldenBytes(entry.Name, entry.Result)
	if err != nil {
		return "", fmt.Errorf("golden: %w", err)
	}
	path := filepath.Join(dir, entry.Name+".golden")

	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("golden: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("golden: %w", err)
		}
		return "updated", nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("golden: %w", err)
	}
	if !bytes.Equal(want, data) {
		return "mismatch", errors.New("commit log does not match golden file (run with --update to regenerate)")
	}
	return "match", nil
}

func writeTestText(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		suffix := ""
		if sr.Golden == "updated" {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(w, "%s %s%s\n", mark, sr.Name, suffix)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
