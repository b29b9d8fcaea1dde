package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_MixedResults(t *testing.T) {
	out, err := execute(t, "test", filepath.Join("testdata", "scenarios"), "--golden-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ ledger")
	assert.Contains(t, out, "✗ wrong_expect")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", filepath.Join("testdata", "scenarios"), "--filter", "led*", "--golden-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_JSON(t *testing.T) {
	out, err := execute(t, "test", filepath.Join("testdata", "scenarios"), "--format", "json", "--golden-dir", t.TempDir())
	require.Error(t, err)

	var data TestResult
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, data.Total)
	require.Len(t, data.Scenarios, 2)
	assert.Equal(t, "ledger", data.Scenarios[0].Name)
	assert.True(t, data.Scenarios[0].Pass)
	assert.False(t, data.Scenarios[1].Pass)
	assert.NotEmpty(t, data.Scenarios[1].Errors)
}

func TestTest_GoldenUpdateAndCompare(t *testing.T) {
	golden := t.TempDir()
	scenario := scenarioPath("ledger.yaml")

	out, err := execute(t, "test", scenario, "--update", "--golden-dir", golden)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ledger (golden updated)")

	data, err := os.ReadFile(filepath.Join(golden, "ledger.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"ledger"`)

	var result TestResult
	out, err = execute(t, "test", scenario, "--golden-dir", golden, "--format", "json")
	require.NoError(t, err)
	decodeResponse(t, out, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "ledger.golden"), []byte("{}"), 0o644))
	out, err = execute(t, "test", scenario, "--golden-dir", golden)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
