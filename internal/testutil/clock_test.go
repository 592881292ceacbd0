package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqmine/internal/catalog"
)

func TestDeterministicClock_Steps(t *testing.T) {
	clock := NewDeterministicClock(2 * time.Second)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, int64(2), clock.Ticks())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), clock.Ticks())
}

func TestFixedRunIDs(t *testing.T) {
	gen := NewFixedRunIDs("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())

	assert.Equal(t, "test-run", NewFixedRunIDs().Generate())
}

func TestFakeSource(t *testing.T) {
	ctx := context.Background()
	src := NewFakeSource().AddTerms("A000027", "The positive integers.", []int64{1, 2, 3})

	doc, err := src.Fetch(ctx, "A000027")
	require.NoError(t, err)
	e, err := doc.First()
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", e.Data)
	assert.Equal(t, 27, e.Number)

	_, err = src.Fetch(ctx, "A000001")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	src.Fail(1)
	_, err = src.Fetch(ctx, "A000027")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = src.Fetch(ctx, "A000027")
	assert.NoError(t, err)

	assert.Len(t, src.Calls(), 4)
}
