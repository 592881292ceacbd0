package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesOnce(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := w.run(t, "init", "--capacity", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "with 20 sequences")

	out, _, err = w.run(t, "init", "--capacity", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "already initialised (capacity 20)")
}

func TestInit_JSON(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := w.run(t, "init", "--capacity", "7", "--format", "json")
	require.NoError(t, err)

	var res InitResult
	decodeData(t, out, &res)
	assert.True(t, res.Created)
	assert.Equal(t, 7, res.Capacity)
	assert.Equal(t, w.db, res.Database)
}

func TestInit_RejectsBadCapacity(t *testing.T) {
	w := newWorkspace(t)

	_, _, err := w.run(t, "init", "--capacity", "1000000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
