package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", i+1, event.Type, event.Path)
			if len(event.Args) > 0 {
				fmt.Fprintf(&buf, " %v", event.Args)
			}
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%s", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides the persisted session for log assertions.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	SessionID string
}

// assertBranchExists checks that a branch blob is stored at the scope.
func assertBranchExists(result *Result, assertion Assertion) error {
	if _, ok := result.Branches[assertion.Path]; ok {
		return nil
	}
	scopes := make([]string, 0, len(result.Branches))
	for scope := range result.Branches {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)
	return &AssertionError{
		Type:     AssertBranchExists,
		Expected: fmt.Sprintf("branch at %s", assertion.Path),
		Actual:   fmt.Sprintf("branches at %v", scopes),
		Trace:    result.Trace,
	}
}

// assertIndexExcludes checks that the index has no entry at the path.
func assertIndexExcludes(result *Result, assertion Assertion) error {
	v, ok := result.Index[assertion.Path]
	if !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertIndexExcludes,
		Expected: fmt.Sprintf("no index entry at %s", assertion.Path),
		Actual:   fmt.Sprintf("index holds %s", describe(v)),
		Trace:    result.Trace,
	}
}

// assertIndexEquals checks the raw index value at the path.
func assertIndexEquals(result *Result, assertion Assertion) error {
	want, err := convertToIRValue(assertion.Value)
	if err != nil {
		return fmt.Errorf("%s %s: %w", AssertIndexEquals, assertion.Path, err)
	}
	got, ok := result.Index[assertion.Path]
	if ok && ir.Equal(got, want) {
		return nil
	}
	actual := "no entry"
	if ok {
		actual = describe(got)
	}
	return &AssertionError{
		Type:     AssertIndexEquals,
		Expected: fmt.Sprintf("%s at %s", describe(want), assertion.Path),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertLogCount checks the number of persisted records.
func assertLogCount(thoughts []ir.Thought, assertion Assertion) error {
	if len(thoughts) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogCount,
		Expected: fmt.Sprintf("%d records", assertion.Count),
		Actual:   fmt.Sprintf("%d records", len(thoughts)),
	}
}

// assertLogOperators checks the persisted operator sequence.
func assertLogOperators(thoughts []ir.Thought, assertion Assertion) error {
	ops := make([]string, len(thoughts))
	for i, t := range thoughts {
		ops[i] = t.Operator
	}
	if slices.Equal(ops, assertion.Operators) {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogOperators,
		Expected: fmt.Sprintf("%q", assertion.Operators),
		Actual:   fmt.Sprintf("%q", ops),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// Log assertions read the session back through actx.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	var (
		persisted []ir.Thought
		loaded    bool
		loadErr   error
	)
	loadLog := func() ([]ir.Thought, error) {
		if !loaded {
			loaded = true
			if actx == nil || actx.Store == nil {
				loadErr = fmt.Errorf("log assertions require database context")
			} else {
				persisted, loadErr = actx.Store.ReadThoughts(actx.Ctx, actx.SessionID)
			}
		}
		return persisted, loadErr
	}

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertBranchExists:
			err = assertBranchExists(result, assertion)
		case AssertIndexExcludes:
			err = assertIndexExcludes(result, assertion)
		case AssertIndexEquals:
			err = assertIndexEquals(result, assertion)
		case AssertLogCount, AssertLogOperators:
			thoughts, lerr := loadLog()
			switch {
			case lerr != nil:
				err = fmt.Errorf("assertion[%d]: %w", i, lerr)
			case assertion.Type == AssertLogCount:
				err = assertLogCount(thoughts, assertion)
			default:
				err = assertLogOperators(thoughts, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
