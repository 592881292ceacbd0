package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/seqmine/internal/blacklist"
	"github.com/roach88/seqmine/internal/cache"
	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/oracle"
	"github.com/roach88/seqmine/internal/store"
	"github.com/roach88/seqmine/internal/testutil"
)

// fixture wires a store, a cache and a fake catalog the way the CLI does.
type fixture struct {
	store    *store.Store
	cache    *cache.Cache
	source   *testutil.FakeSource
	resolver *cache.Resolver
	oracle   *oracle.Adapter
	runIDs   *testutil.FixedRunIDs
	out      *bytes.Buffer
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "seqmine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.CreateSchema(context.Background(), capacity, nil)
	require.NoError(t, err)

	c, err := cache.Open(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	src := testutil.NewFakeSource()
	orc, err := oracle.NewAdapter(oracle.Native{}, nil, oracle.Config{}, nil)
	require.NoError(t, err)

	return &fixture{
		store:    st,
		cache:    c,
		source:   src,
		resolver: cache.NewResolver(c, src, nil),
		oracle:   orc,
		runIDs:   testutil.NewFixedRunIDs("run-1", "run-2", "run-3", "run-4", "run-5"),
		out:      &bytes.Buffer{},
	}
}

func (f *fixture) miner(bl blacklist.Set, opts Options) *Miner {
	return f.minerWith(f.resolver, bl, opts)
}

func (f *fixture) minerWith(res Resolver, bl blacklist.Set, opts Options) *Miner {
	return NewMiner(f.store, res, f.oracle, bl, opts,
		WithReporter(NewReporter(f.out, false)),
		WithRunIDs(f.runIDs),
		WithClock(testutil.NewDeterministicClock(time.Second)),
	)
}

func (f *fixture) get(t *testing.T, n int) ir.SequenceRecord {
	t.Helper()
	rec, err := f.store.Get(context.Background(), ir.FormatID(n))
	require.NoError(t, err)
	return rec
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

func primes() []int64 {
	return []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47}
}

// cancelAfter cancels a context once a number of ids have been resolved.
type cancelAfter struct {
	Resolver
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Resolve(ctx context.Context, id ir.ID) (*catalog.Document, cache.Origin, error) {
	doc, origin, err := c.Resolver.Resolve(ctx, id)
	c.n--
	if c.n == 0 {
		c.cancel()
	}
	return doc, origin, err
}
