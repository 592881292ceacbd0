package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}

func TestStats_Text(t *testing.T) {
	w := newWorkspace(t)
	w.seedCatalog()

	_, _, err := w.run(t, "--capacity", "5")
	require.NoError(t, err)

	out, _, err := w.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "sequences:        5 (capacity 5)\n")
	assert.Contains(t, out, "fetched:          3\n")
	assert.Contains(t, out, "solved:           3\n")
	assert.Contains(t, out, "new:              1\n")
	assert.Contains(t, out, "verified:         3 passed, 0 failed\n")
	assert.Contains(t, out, "runs:             1\n  run-1 process   done")
}

func TestStats_JSON(t *testing.T) {
	w := newWorkspace(t)
	w.seedCatalog()

	_, _, err := w.run(t, "--capacity", "5")
	require.NoError(t, err)

	out, _, err := w.run(t, "stats", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Capacity int `json:"capacity"`
		Total    int `json:"total"`
		Runs     int `json:"runs"`
		Recent   []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"recent_runs"`
	}
	decodeData(t, out, &res)
	assert.Equal(t, 5, res.Capacity)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.Runs)
	require.Len(t, res.Recent, 1)
	assert.Equal(t, "run-1", res.Recent[0].ID)
}

func TestStats_EmptyStore(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := w.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "sequences:        0 (capacity 0)\n")
}
