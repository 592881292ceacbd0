// Package metrics holds the Prometheus instruments for a mining run.
//
// Instruments live on a private registry so tests and concurrent runs in one
// process never collide on the default registerer. Every recording method is
// safe on a nil *Metrics, which is how callers opt out.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seqmine"

// Metrics is the set of instruments shared by the pipeline components.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups   *prometheus.CounterVec
	cacheBytes     *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	oracleCalls    *prometheus.CounterVec
	oracleLatency  prometheus.Histogram
	processed      *prometheus.CounterVec
	xrefCompared   prometheus.Counter
	xrefMatches    prometheus.Counter
	consecutiveErr prometheus.Gauge
}

// New builds a Metrics with every instrument registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Content cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the content cache (raw, compressed).",
		}, []string{"kind"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "fetches_total",
			Help:      "Remote catalog fetches by outcome (ok, error).",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "fetch_duration_seconds",
			Help:      "Remote catalog fetch latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "guesses_total",
			Help:      "Closed-form guesses by result (found, absent, memo, timeout).",
		}, []string{"result"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "guess_duration_seconds",
			Help:      "Closed-form guess latency, memo hits excluded.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "miner",
			Name:      "sequences_total",
			Help:      "Sequences handled by the miner by outcome.",
		}, []string{"outcome"}),
		xrefCompared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xref",
			Name:      "pairs_compared_total",
			Help:      "Formula pairs checked for symbolic equality.",
		}),
		xrefMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xref",
			Name:      "matches_total",
			Help:      "Cross-references recorded.",
		}),
		consecutiveErr: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "miner",
			Name:      "consecutive_fetch_failures",
			Help:      "Current run of consecutive fetch failures.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheLookups, m.cacheBytes,
		m.fetches, m.fetchLatency,
		m.oracleCalls, m.oracleLatency,
		m.processed, m.consecutiveErr,
		m.xrefCompared, m.xrefMatches,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheWrite(raw, compressed int) {
	if m == nil {
		return
	}
	m.cacheBytes.WithLabelValues("raw").Add(float64(raw))
	m.cacheBytes.WithLabelValues("compressed").Add(float64(compressed))
}

func (m *Metrics) Fetch(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) OracleGuess(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.oracleLatency.Observe(elapsed.Seconds())
	}
}

// Processed counts one miner outcome: found, new, unsolved, skipped,
// allocated or failed.
func (m *Metrics) Processed(outcome string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ConsecutiveFailures(n int) {
	if m == nil {
		return
	}
	m.consecutiveErr.Set(float64(n))
}

func (m *Metrics) XrefCompared(pairs int) {
	if m == nil {
		return
	}
	m.xrefCompared.Add(float64(pairs))
}

func (m *Metrics) XrefMatch() {
	if m == nil {
		return
	}
	m.xrefMatches.Inc()
}
