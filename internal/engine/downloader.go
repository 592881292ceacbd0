package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/seqmine/internal/cache"
	"github.com/roach88/seqmine/internal/ir"
)

// DefaultDownloadWorkers bounds concurrent fetches of a download.
const DefaultDownloadWorkers = 4

// DownloadSummary is the outcome of filling the cache for an id range.
type DownloadSummary struct {
	Requested int     `json:"requested"`
	Cached    int     `json:"cached"`
	Fetched   int     `json:"fetched"`
	Failed    []ir.ID `json:"failed,omitempty"`
}

// Downloader fills the content cache for a range of ids without guessing.
// Pacing against the catalog is left to the resolver's source.
type Downloader struct {
	resolver Resolver
	workers  int
	logger   *slog.Logger
}

// NewDownloader creates a Downloader running at most workers fetches at a
// time. A non-positive workers selects DefaultDownloadWorkers.
func NewDownloader(res Resolver, workers int) *Downloader {
	if workers <= 0 {
		workers = DefaultDownloadWorkers
	}
	return &Downloader{resolver: res, workers: workers, logger: slog.Default()}
}

// Run resolves every id numbered from..to inclusive. Individual failures
// are collected, not fatal; only cancellation stops the run early.
func (d *Downloader) Run(ctx context.Context, from, to int) (DownloadSummary, error) {
	var sum DownloadSummary
	if from < 1 || to > ir.MaxIDNumber || from > to {
		return sum, fmt.Errorf("download: invalid range %d..%d", from, to)
	}
	sum.Requested = to - from + 1

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for n := from; n <= to; n++ {
		if gctx.Err() != nil {
			break
		}
		id := ir.FormatID(n)
		g.Go(func() error {
			_, origin, err := d.resolver.Resolve(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				sum.Failed = append(sum.Failed, id)
				d.logger.Warn("download failed", "id", id, "error", err)
			case origin == cache.FromCache:
				sum.Cached++
			default:
				sum.Fetched++
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	slices.Sort(sum.Failed)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return sum, fmt.Errorf("download: %w", err)
	}
	d.logger.Info("download finished", "requested", sum.Requested, "cached", sum.Cached,
		"fetched", sum.Fetched, "failed", len(sum.Failed))
	return sum, err
}
