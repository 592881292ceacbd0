package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/metrics"
)

// Origin tells where a resolved document came from.
type Origin int

const (
	FromCache Origin = iota
	FromNetwork
)

func (o Origin) String() string {
	if o == FromCache {
		return "cache"
	}
	return "network"
}

// Resolver answers lookups from the cache first and falls back to the
// remote source, writing fetched documents back. Concurrent lookups of the
// same id share one fetch.
type Resolver struct {
	cache   *Cache
	source  catalog.Source
	metrics *metrics.Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

// NewResolver wires a cache to a remote source. m may be nil.
func NewResolver(c *Cache, src catalog.Source, m *metrics.Metrics) *Resolver {
	return &Resolver{cache: c, source: src, metrics: m, logger: slog.Default()}
}

type resolved struct {
	doc    *catalog.Document
	origin Origin
}

// Resolve returns the document for id. Cache read errors are returned as-is
// so a broken disk is not mistaken for an outage of the remote catalog; a
// failed write-back is logged and the fetched document is still returned.
func (r *Resolver) Resolve(ctx context.Context, id ir.ID) (*catalog.Document, Origin, error) {
	v, err, _ := r.group.Do(string(id), func() (any, error) {
		doc, ok, err := r.cache.Get(id)
		if err != nil {
			r.metrics.CacheLookup("error")
			return nil, fmt.Errorf("cache get %s: %w", id, err)
		}
		if ok {
			r.metrics.CacheLookup("hit")
			return resolved{doc: doc, origin: FromCache}, nil
		}
		r.metrics.CacheLookup("miss")

		start := time.Now()
		doc, err = r.source.Fetch(ctx, id)
		r.metrics.Fetch(err, time.Since(start))
		if err != nil {
			return nil, err
		}
		raw, compressed, err := r.cache.Put(id, doc)
		if err != nil {
			r.logger.Warn("cache write failed", "id", id, "error", err)
		} else {
			r.metrics.CacheWrite(raw, compressed)
			r.logger.Debug("cached", "id", id, "raw", raw, "compressed", compressed)
		}
		return resolved{doc: doc, origin: FromNetwork}, nil
	})
	if err != nil {
		return nil, FromNetwork, err
	}
	res := v.(resolved)
	return res.doc, res.origin, nil
}

// Invalidate evicts id from the cache.
func (r *Resolver) Invalidate(id ir.ID) (bool, error) {
	return r.cache.Invalidate(id)
}
