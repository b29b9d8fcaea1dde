package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "me", cmd.Use)
	assert.Contains(t, cmd.Long, "fingerprinted thought")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "test", "replay", "log", "read", "invoke", "validate", "compile", "identity", "status"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestIdentitySubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"create", "show", "set", "endorse"} {
		sub, _, err := cmd.Find([]string{"identity", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		command []string
		flag    string
		def     string
	}{
		{[]string{"run"}, "db", ""},
		{[]string{"test"}, "update", "false"},
		{[]string{"test"}, "filter", ""},
		{[]string{"replay"}, "db", ""},
		{[]string{"replay"}, "session", ""},
		{[]string{"log"}, "path", ""},
		{[]string{"read"}, "session", ""},
		{[]string{"invoke"}, "profile", ""},
		{[]string{"compile"}, "output", ""},
		{[]string{"status"}, "endpoint", "http://localhost:7777/graphql"},
		{[]string{"status"}, "reconnect", "10s"},
	}
	for _, tt := range tests {
		sub, _, err := cmd.Find(tt.command)
		require.NoError(t, err)
		f := sub.Flags().Lookup(tt.flag)
		require.NotNil(t, f, "%v --%s", tt.command, tt.flag)
		assert.Equal(t, tt.def, f.DefValue, "%v --%s", tt.command, tt.flag)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "validate", profilePath("social.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}
