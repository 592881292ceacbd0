package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
)

func TestDownloader_Run(t *testing.T) {
	f := newFixture(t, 1)
	for _, n := range []int{1, 2, 3, 5} {
		f.source.AddTerms(ir.FormatID(n), "The squares", squares(10))
	}
	_, _, err := f.cache.Put(ir.FormatID(1), &catalog.Document{Results: []catalog.Entry{{Name: "cached"}}})
	require.NoError(t, err)

	sum, err := NewDownloader(f.resolver, 2).Run(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, DownloadSummary{Requested: 5, Cached: 1, Fetched: 3, Failed: []ir.ID{"A000004"}}, sum)

	for _, n := range []int{2, 3, 5} {
		ok, err := f.cache.Has(ir.FormatID(n))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NotContains(t, f.source.Calls(), ir.FormatID(1))
}

func TestDownloader_InvalidRange(t *testing.T) {
	f := newFixture(t, 1)
	d := NewDownloader(f.resolver, 0)
	for _, r := range [][2]int{{0, 5}, {5, 1}, {1, ir.MaxIDNumber + 1}} {
		_, err := d.Run(context.Background(), r[0], r[1])
		assert.Error(t, err, "%v", r)
	}
}

func TestDownloader_Cancelled(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewDownloader(f.resolver, 1).Run(ctx, 1, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, sum.Cached+sum.Fetched, 100)
}
