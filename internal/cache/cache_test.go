package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/metrics"
	"github.com/roach88/seqmine/internal/testutil"
)

func createTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleDoc() *catalog.Document {
	return &catalog.Document{
		Count: 1,
		Results: []catalog.Entry{{
			Number:  45,
			Name:    "Fibonacci numbers: F(n) = F(n-1) + F(n-2) with F(0) = 0 and F(1) = 1.",
			Data:    "0,1,1,2,3,5,8,13,21,34,55,89",
			Formula: []string{"a(n) = a(n-1) + a(n-2).", "a(n) = fibonacci(n)."},
			Xref:    catalog.TextList{"Cf. A000032."},
			Keyword: "core,nonn,easy",
		}},
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := createTestCache(t)
	doc := sampleDoc()

	raw, compressed, err := c.Put("A000045", doc)
	require.NoError(t, err)
	assert.Positive(t, raw)
	assert.Positive(t, compressed)

	got, ok, err := c.Get("A000045")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc, got)

	_, err = os.Stat(filepath.Join(c.Root(), "sequences", "000", "A000045.zst"))
	assert.NoError(t, err, "writes always use the double-shard layout")
}

func TestCache_Miss(t *testing.T) {
	c := createTestCache(t)
	doc, ok, err := c.Get("A123456")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestCache_LegacyLayouts(t *testing.T) {
	for name, layout := range map[string]Layout{"flat": Flat, "single": SingleShard} {
		t.Run(name, func(t *testing.T) {
			c := createTestCache(t)
			id := ir.ID("A000045")
			writeLegacy(t, layout(c.Root(), id), sampleDoc())

			got, ok, err := c.Get(id)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sampleDoc(), got)

			has, err := c.Has(id)
			require.NoError(t, err)
			assert.True(t, has)
		})
	}
}

func TestCache_LookupOrderPrefersFlat(t *testing.T) {
	c := createTestCache(t)
	id := ir.ID("A000045")

	older := sampleDoc()
	older.Results[0].Name = "legacy"
	writeLegacy(t, Flat(c.Root(), id), older)
	_, _, err := c.Put(id, sampleDoc())
	require.NoError(t, err)

	got, ok, err := c.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "legacy", got.Results[0].Name)
}

func TestCache_Invalidate(t *testing.T) {
	c := createTestCache(t)
	id := ir.ID("A000045")

	removed, err := c.Invalidate(id)
	require.NoError(t, err)
	assert.False(t, removed)

	writeLegacy(t, SingleShard(c.Root(), id), sampleDoc())
	_, _, err = c.Put(id, sampleDoc())
	require.NoError(t, err)

	removed, err = c.Invalidate(id)
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err := c.Get(id)
	require.NoError(t, err)
	assert.False(t, ok, "every layout is cleared")
}

func TestCache_CorruptEntryPropagates(t *testing.T) {
	c := createTestCache(t)
	path := DoubleShard(c.Root(), "A000001")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0o644))

	_, _, err := c.Get("A000001")
	assert.Error(t, err)
}

func TestCache_ConcurrentPutsShareShard(t *testing.T) {
	c := createTestCache(t)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := c.Put(ir.FormatID(n), sampleDoc())
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	entries, err := os.ReadDir(filepath.Join(c.Root(), "sequences", "000"))
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestResolver_CacheThenNetwork(t *testing.T) {
	ctx := context.Background()
	c := createTestCache(t)
	src := testutil.NewFakeSource().AddTerms("A000027", "The positive integers.", []int64{1, 2, 3, 4})
	r := NewResolver(c, src, metrics.New())

	doc, origin, err := r.Resolve(ctx, "A000027")
	require.NoError(t, err)
	assert.Equal(t, FromNetwork, origin)
	assert.Equal(t, "1,2,3,4", doc.Results[0].Data)

	doc, origin, err = r.Resolve(ctx, "A000027")
	require.NoError(t, err)
	assert.Equal(t, FromCache, origin)
	assert.Equal(t, "1,2,3,4", doc.Results[0].Data)

	assert.Len(t, src.Calls(), 1)
}

func TestResolver_FetchErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := createTestCache(t)
	src := testutil.NewFakeSource().AddTerms("A000027", "The positive integers.", []int64{1, 2, 3})
	src.Fail(1)
	r := NewResolver(c, src, nil)

	_, _, err := r.Resolve(ctx, "A000027")
	assert.ErrorIs(t, err, testutil.ErrUnavailable)

	has, err := c.Has("A000027")
	require.NoError(t, err)
	assert.False(t, has)

	_, origin, err := r.Resolve(ctx, "A000027")
	require.NoError(t, err)
	assert.Equal(t, FromNetwork, origin)
}

func writeLegacy(t *testing.T, path string, doc *catalog.Document) {
	t.Helper()
	b, err := catalog.Encode(doc)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, enc.EncodeAll(b, nil), 0o644))
}
