package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
)

func assertionResult() *Result {
	r := NewResult()
	r.Index = map[string]ir.IRValue{
		"a":   ir.IRInt(1),
		"obj": ir.IRObject{"k": ir.IRString("v")},
	}
	r.Branches = map[string]string{"wallet": "blob"}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(assertionResult(), []Assertion{
		{Type: AssertBranchExists, Path: "wallet"},
		{Type: AssertIndexExcludes, Path: "wallet.income"},
		{Type: AssertIndexEquals, Path: "a", Value: 1},
		{Type: AssertIndexEquals, Path: "obj", Value: map[string]any{"k": "v"}},
	}, nil)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	errs := EvaluateAssertions(assertionResult(), []Assertion{
		{Type: AssertBranchExists, Path: "vault"},
		{Type: AssertIndexExcludes, Path: "a"},
		{Type: AssertIndexEquals, Path: "a", Value: 2},
		{Type: AssertIndexEquals, Path: "none", Value: 2},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0], "branches at [wallet]")
	assert.Contains(t, errs[1], "index holds 1")
	assert.Contains(t, errs[2], "Actual: 1")
	assert.Contains(t, errs[3], "Actual: no entry")
	assert.Contains(t, errs[4], `unknown assertion type "bogus"`)
}

func TestEvaluateAssertions_LogNeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertLogCount, Count: 0},
		{Type: AssertLogOperators, Operators: []string{}},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "require database context")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertLogCount,
		Expected: "1 records",
		Actual:   "0 records",
		Trace: []TraceEvent{
			{Type: TraceCall, Path: "a", Args: []any{1}},
			{Type: TraceCall, Path: "b.@", Error: "INVALID_USERNAME"},
		},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: log_count")
	assert.Contains(t, msg, "[1] call a [1]")
	assert.Contains(t, msg, "[2] call b.@ error=INVALID_USERNAME")
}
