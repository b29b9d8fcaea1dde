package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FileAndMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "me.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)

	mem, err := Open(":memory:")
	require.NoError(t, err)
	defer mem.Close()

	sessions, err := mem.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "me.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"sessions", "thoughts", "branches"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "me.db"))
	assert.Error(t, err)
}

func TestClose_ZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, expected := range want {
		got, err := s.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, expected, got, name)
	}
}

func TestMigrations(t *testing.T) {
	s := createTestStore(t)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)
	assert.Equal(t, 2, schemaVersion)

	for _, idx := range []string{"idx_thoughts_session_path", "idx_thoughts_session_operator"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, idx).Scan(&name)
		assert.NoError(t, err, "index %s", idx)
	}
}

func TestMigrations_FromOlderVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "me.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`DROP INDEX idx_thoughts_session_operator`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	var name string
	err = s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_thoughts_session_operator'`).Scan(&name)
	assert.NoError(t, err)
}
