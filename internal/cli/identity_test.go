package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"identity", "--dir", dir, "--hash", "s3cret"}, args...)...)
}

func TestIdentity_CreateAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := identity(t, dir, "create", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created identity alice")
	assert.Contains(t, out, "file:       "+filepath.Join(dir, "alice.me"))

	out, err = identity(t, dir, "show", "alice", "--format", "json")
	require.NoError(t, err)

	var data IdentityOutput
	decodeResponse(t, out, &data)
	assert.Equal(t, "alice", data.Username)
	assert.NotEmpty(t, data.PublicKey)
	assert.Empty(t, data.Attributes)
}

func TestIdentity_SetAndEndorse(t *testing.T) {
	dir := t.TempDir()
	_, err := identity(t, dir, "create", "alice")
	require.NoError(t, err)

	_, err = identity(t, dir, "set", "alice", "age", "31")
	require.NoError(t, err)
	_, err = identity(t, dir, "set", "alice", "city", "Lisbon")
	require.NoError(t, err)
	_, err = identity(t, dir, "endorse", "alice", "--by", "bob", "--statement", "knows Go")
	require.NoError(t, err)

	out, err := identity(t, dir, "show", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "attributes:\n  age: 31\n  city: Lisbon\n")
	assert.Contains(t, out, "endorsements:\n  bob: knows Go\n")
}

func TestIdentity_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := identity(t, dir, "create", "alice")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		hash string
		code int
	}{
		{"already exists", []string{"create", "alice"}, "s3cret", ExitFailure},
		{"wrong hash", []string{"show", "alice"}, "nope", ExitFailure},
		{"unknown identity", []string{"show", "carol"}, "s3cret", ExitCommandError},
		{"invalid username", []string{"create", "Not Valid!"}, "s3cret", ExitCommandError},
		{"short hash", []string{"create", "dave"}, "abc", ExitCommandError},
		{"endorsement without statement", []string{"endorse", "alice", "--by", "bob"}, "s3cret", ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"identity", "--dir", dir, "--hash", tt.hash}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestIdentity_HashRequired(t *testing.T) {
	_, err := execute(t, "identity", "show", "alice", "--dir", t.TempDir())
	require.Error(t, err)
}
