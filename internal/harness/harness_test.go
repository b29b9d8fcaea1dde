package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"plain_ledger", "wallet_branch", "social_profile"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "social_profile")

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, r1.Thoughts, r2.Thoughts)
	assert.Equal(t, r1.Branches, r2.Branches)
}

func TestRun_Trace(t *testing.T) {
	result, err := Run(loadTestScenario(t, "wallet_branch"))
	require.NoError(t, err)
	require.Len(t, result.Trace, 6)

	assert.Equal(t, TraceEvent{Type: TraceCall, Path: "wallet._", Args: []any{"s"}, Seq: 1}, result.Trace[0])
	assert.Equal(t, TraceEvent{Type: TraceRead, Path: "wallet.income", Value: ir.IRInt(100), Found: true}, result.Trace[2])
	assert.Equal(t, "INVALID_USERNAME", result.Trace[4].Error)
	assert.Equal(t, "UNSUPPORTED_VALUE", result.Trace[5].Error)
}

func TestRun_FailedChecksAreReported(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "every check fails",
		Steps: []Step{
			{Call: []string{"a"}, Args: []any{1}},
			{Read: "a", Expect: 2},
			{Read: "a", Hidden: true},
			{Read: "missing", Null: true},
			{Call: []string{"b"}, Args: []any{1}, Error: "INVALID_USERNAME"},
			{Call: []string{"c"}, Args: []any{1.5}},
			{Call: []string{"d", "@"}, Args: []any{"Bad Name"}, Error: "UNSUPPORTED_VALUE"},
		},
		Assertions: []Assertion{
			{Type: AssertLogCount, Count: 5},
			{Type: AssertIndexExcludes, Path: "a"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 8)
	assert.Contains(t, result.Errors[0], "expected 2, got 1")
	assert.Contains(t, result.Errors[1], "expected hidden")
	assert.Contains(t, result.Errors[2], "expected null, got hidden")
	assert.Contains(t, result.Errors[3], "succeeded, expected INVALID_USERNAME")
	assert.Contains(t, result.Errors[4], "call c failed")
	assert.Contains(t, result.Errors[5], "failed with INVALID_USERNAME, expected UNSUPPORTED_VALUE")
	assert.Contains(t, result.Errors[6], "Assertion failed: log_count")
	assert.Contains(t, result.Errors[7], "Assertion failed: index_excludes")
}

func TestRun_Identity(t *testing.T) {
	s := &Scenario{
		Name:        "identity",
		Description: "identity-bearing kernel",
		Identity:    &IdentitySpec{Username: "jabellae", Secret: "pw"},
		SessionID:   "fixed",
		Steps: []Step{
			{Call: []string{"note"}, Args: []any{"hi"}},
			{Read: "note", Expect: "hi"},
		},
		Assertions: []Assertion{
			{Type: AssertLogOperators, Operators: []string{"@", "_", ""}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "fixed", result.Session.ID)
	assert.NotEmpty(t, result.Session.IdentityRoot)
	require.Len(t, result.Thoughts, 3)
	assert.Equal(t, ir.IRIdentity{ID: "jabellae"}, result.Thoughts[0].Value)
}

func TestRun_BadProfile(t *testing.T) {
	s := &Scenario{
		Name:        "bad",
		Description: "profile does not exist",
		Profile:     filepath.Join(t.TempDir(), "missing.cue"),
		Steps:       []Step{{Read: "a"}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load profile")
}

func TestConvertToIRValue(t *testing.T) {
	v, err := convertToIRValue(map[string]any{"n": 1.0, "list": []any{"a", nil}})
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"n":    ir.IRInt(1),
		"list": ir.IRArray{ir.IRString("a"), ir.IRNull{}},
	}, v)

	v, err = convertToIRValue(map[string]any{"__id": "jabellae"})
	require.NoError(t, err)
	assert.Equal(t, ir.IRIdentity{ID: "jabellae"}, v)

	v, err = convertToIRValue(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)

	_, err = convertToIRValue([]any{1.5})
	assert.Error(t, err)
}
