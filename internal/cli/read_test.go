package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
)

func TestRead_Leaf(t *testing.T) {
	out, err := execute(t, "read", "--db", seededDB(t), "ledger.port")
	require.NoError(t, err)
	assert.Equal(t, "ledger.port = 8161\n", out)
}

func TestRead_Subtree(t *testing.T) {
	out, err := execute(t, "read", "--db", seededDB(t), "ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger: (not in index)")
	assert.Contains(t, out, `  ledger.host = "localhost:8161"`)
	assert.Contains(t, out, "  ledger.port = 8161")
}

func TestRead_JSON(t *testing.T) {
	out, err := execute(t, "read", "--db", seededDB(t), "ledger.host", "--format", "json")
	require.NoError(t, err)

	var data struct {
		SessionID string          `json:"session_id"`
		Found     bool            `json:"found"`
		Value     json.RawMessage `json:"value"`
	}
	decodeResponse(t, out, &data)
	assert.Equal(t, "test-session-default", data.SessionID)
	assert.True(t, data.Found)
	assert.JSONEq(t, `"localhost:8161"`, string(data.Value))
}

func TestRead_Removed(t *testing.T) {
	out, err := execute(t, "read", "--db", seededDB(t), "tmp")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing at tmp")
	assert.Contains(t, out, "tmp: (not in index)")
}

func TestLookupIndex(t *testing.T) {
	index := map[string]ir.IRValue{
		"a":   ir.IRInt(1),
		"a.b": ir.IRInt(2),
		"ab":  ir.IRInt(3),
		"c.d": ir.IRString("x"),
	}

	out := lookupIndex(index, "a")
	assert.True(t, out.Found)
	assert.Equal(t, ir.IRInt(1), out.Value)
	assert.Equal(t, map[string]ir.IRValue{"a.b": ir.IRInt(2)}, out.Under)

	out = lookupIndex(index, "")
	assert.False(t, out.Found)
	assert.Len(t, out.Under, 4)
}
