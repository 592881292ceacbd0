package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqmine/internal/ir"
)

func TestBlacklist_AddExtractsIDs(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := w.run(t, "blacklist", "add", "Decimal expansion (A000045),", "see A000217 and A000045")
	require.NoError(t, err)
	assert.Equal(t, "added 2 of 2 ids\n", out)

	out, _, err = w.run(t, "blacklist", "add", "A000045")
	require.NoError(t, err)
	assert.Equal(t, "added 0 of 1 ids\n", out)
}

func TestBlacklist_AddWithoutIDs(t *testing.T) {
	w := newWorkspace(t)

	_, _, err := w.run(t, "blacklist", "add", "nothing", "to", "see")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBlacklist_ListMergesSources(t *testing.T) {
	w := newWorkspace(t)
	cfgPath := filepath.Join(w.dir, "seqmine.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("blacklist: [A000010]\n"), 0o644))

	_, _, err := w.run(t, "blacklist", "add", "A000217")
	require.NoError(t, err)

	out, _, err := w.run(t, "blacklist", "list", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var res struct {
		IDs []ir.ID `json:"ids"`
	}
	decodeData(t, out, &res)
	assert.Equal(t, []ir.ID{"A000001", "A000010", "A000217", "A000796", "A001113", "A002193"}, res.IDs)
}

func TestBlacklist_AddedIDsAreSkipped(t *testing.T) {
	w := newWorkspace(t)
	w.seedCatalog()

	_, _, err := w.run(t, "blacklist", "add", "A000002")
	require.NoError(t, err)

	out, _, err := w.run(t, "--capacity", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 2, found 2, new 0")
	assert.Contains(t, out, "skipped 2")
	assert.NotContains(t, w.source.Calls(), ir.FormatID(2))
}
