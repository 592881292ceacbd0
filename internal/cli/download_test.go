package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_FillsCache(t *testing.T) {
	w := newWorkspace(t)
	w.seedCatalog()

	out, _, err := w.run(t, "download", "2", "A000005")
	require.Error(t, err, "A000005 is missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "requested 4: cached 0, fetched 3, failed 1\nfailed: A000005\n")

	out, _, err = w.run(t, "download", "A000002", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "requested 3: cached 3, fetched 0, failed 0\n")
}

func TestDownload_CachedEntriesServeProcess(t *testing.T) {
	w := newWorkspace(t)
	w.seedCatalog()

	_, _, err := w.run(t, "download", "2", "4")
	require.NoError(t, err)
	calls := len(w.source.Calls())

	out, _, err := w.run(t, "--capacity", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 3")
	assert.Len(t, w.source.Calls(), calls)
}

func TestDownload_InvalidRange(t *testing.T) {
	w := newWorkspace(t)

	tests := [][]string{
		{"download", "5", "2"},
		{"download", "0", "2"},
		{"download", "x", "2"},
		{"download", "1", "B000002"},
	}
	for _, args := range tests {
		_, _, err := w.run(t, args...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), "%v", args)
	}
	assert.Empty(t, w.source.Calls())
}
