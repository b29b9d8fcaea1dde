package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
	"github.com/roach88/thisme/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestKernel returns a kernel with a small mixed log: plain, root
// encrypted, branch, marker and tombstone records.
func createTestKernel(t *testing.T, sessionID string) *kernel.Kernel {
	t.Helper()
	k, err := kernel.New(
		kernel.WithLogger(testutil.DiscardLogger()),
		kernel.WithClock(testutil.NewDeterministicClock()),
		kernel.WithNow(testutil.SteppingTime(testutil.Epoch, time.Second)),
		kernel.WithSessionIDGenerator(testutil.NewFixedSessionGenerator(sessionID)),
		kernel.WithIdentity("jabellae", ""),
	)
	require.NoError(t, err)

	calls := []struct {
		path string
		expr any
	}{
		{"ledger.host", "localhost:8161"},
		{"ledger.tags", []any{"a", int64(1), true, nil}},
		{"wallet._", "secret"},
		{"wallet.income", 100},
		{"home.__", "ledger.host"},
		{"tmp.x", 1},
		{"tmp.-", nil},
		{"area.~", "n"},
		{"area.v", map[string]any{"k": "v"}},
		{"empty", nil},
	}
	for _, c := range calls {
		_, err := k.Postulate(ir.ParsePath(c.path), c.expr)
		require.NoError(t, err, c.path)
	}
	return k
}
