package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/testutil"
)

// workspace is a job store, cache and fake catalog in a temp dir, shared
// by the commands of one test.
type workspace struct {
	dir    string
	db     string
	cache  string
	source *testutil.FakeSource
	runIDs *testutil.FixedRunIDs
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	return &workspace{
		dir:    dir,
		db:     filepath.Join(dir, "data", "seqmine.db"),
		cache:  filepath.Join(dir, "data", "cache"),
		source: testutil.NewFakeSource(),
		runIDs: testutil.NewFixedRunIDs("run-1", "run-2", "run-3", "run-4", "run-5"),
	}
}

// run executes the root command with the workspace paths appended.
func (w *workspace) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	opts := &RootOptions{Source: w.source, RunIDs: w.runIDs}
	return execute(t, opts, append(args, "--db", w.db, "--cache-dir", w.cache)...)
}

func execute(t *testing.T, opts *RootOptions, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeData unmarshals the data field of a JSON response into v.
func decodeData(t *testing.T, raw string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func fibonacci(count int) []int64 {
	out := make([]int64, count)
	a, b := int64(0), int64(1)
	for i := range out {
		out[i] = a
		a, b = b, a+b
	}
	return out
}

func squares(count int) []int64 {
	out := make([]int64, count)
	for i := range out {
		out[i] = int64(i * i)
	}
	return out
}

// seedCatalog serves A000002..A000004; A000005 is missing and
// A000001 is on the default blacklist.
func (w *workspace) seedCatalog() {
	w.source.AddTerms(ir.FormatID(2), "Fibonacci numbers", fibonacci(20))
	w.source.AddTerms(ir.FormatID(3), "The squares", squares(20), "a(n) = n*n.")
	w.source.AddTerms(ir.FormatID(4), "Squares again", squares(20), "a(n) = n^2.")
}
