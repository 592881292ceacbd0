package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "seqmine", cmd.Use)
	assert.Contains(t, cmd.Long, "closed-form")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"process", "init", "download", "verify", "blacklist", "xref", "stats"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}

	for _, sub := range []string{"add", "list"} {
		subCmd, _, err := cmd.Find([]string{"blacklist", sub})
		require.NoError(t, err)
		assert.Equal(t, sub, subCmd.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	quietFlag := cmd.PersistentFlags().Lookup("quiet")
	require.NotNil(t, quietFlag)
	assert.Equal(t, "q", quietFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "cache-dir"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestProcessFlagsOnRootAndSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	processCmd, _, err := cmd.Find([]string{"process"})
	require.NoError(t, err)

	for _, name := range []string{"reprocess", "ignore-blacklist", "capacity", "metrics-addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "root %s", name)
		assert.NotNil(t, processCmd.Flags().Lookup(name), "process %s", name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "stats", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVerboseAndQuietConflict(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "stats", "-v", "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
