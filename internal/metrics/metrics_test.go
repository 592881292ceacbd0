package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("hit")
		m.CacheWrite(10, 5)
		m.Fetch(nil, time.Second)
		m.OracleGuess("found", time.Millisecond)
		m.Processed("new")
		m.ConsecutiveFailures(3)
		m.XrefCompared(4)
		m.XrefMatch()
	})
}

func TestMetrics_Counts(t *testing.T) {
	m := New()
	m.CacheLookup("hit")
	m.CacheLookup("hit")
	m.CacheLookup("miss")
	m.Fetch(errors.New("boom"), 10*time.Millisecond)
	m.Fetch(nil, 10*time.Millisecond)
	m.XrefCompared(7)

	body := scrape(t, m)
	assert.Contains(t, body, `seqmine_cache_lookups_total{result="hit"} 2`)
	assert.Contains(t, body, `seqmine_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, `seqmine_catalog_fetches_total{outcome="error"} 1`)
	assert.Contains(t, body, `seqmine_xref_pairs_compared_total 7`)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Processed("found")
	assert.Contains(t, scrape(t, m), `seqmine_miner_sequences_total{outcome="found"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
