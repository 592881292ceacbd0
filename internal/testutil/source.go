package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
)

// ErrUnavailable is what FakeSource returns for scripted failures.
var ErrUnavailable = errors.New("catalog unavailable")

// FakeSource is an in-memory catalog.Source. Entries are served by id;
// Fail makes the next n fetches fail regardless of id.
type FakeSource struct {
	mu      sync.Mutex
	entries map[ir.ID]catalog.Entry
	failing int
	calls   []ir.ID
}

// NewFakeSource creates an empty source.
func NewFakeSource() *FakeSource {
	return &FakeSource{entries: make(map[ir.ID]catalog.Entry)}
}

// Add registers an entry for id.
func (s *FakeSource) Add(id ir.ID, e catalog.Entry) *FakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Number == 0 {
		e.Number = id.Number()
	}
	s.entries[id] = e
	return s
}

// AddTerms registers an entry with the given name and terms.
func (s *FakeSource) AddTerms(id ir.ID, name string, terms []int64, formulas ...string) *FakeSource {
	parts := make([]string, len(terms))
	for i, v := range terms {
		parts[i] = fmt.Sprint(v)
	}
	return s.Add(id, catalog.Entry{
		Name:    name,
		Data:    strings.Join(parts, ","),
		Formula: formulas,
		Keyword: "nonn",
	})
}

// Fail makes the next n fetches return ErrUnavailable.
func (s *FakeSource) Fail(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = n
}

// Fetch implements catalog.Source.
func (s *FakeSource) Fetch(ctx context.Context, id ir.ID) (*catalog.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if s.failing > 0 {
		s.failing--
		return nil, fmt.Errorf("fetch %s: %w", id, ErrUnavailable)
	}
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", id, catalog.ErrNotFound)
	}
	return &catalog.Document{Count: 1, Results: []catalog.Entry{e}}, nil
}

// Calls returns the ids fetched so far, in order.
func (s *FakeSource) Calls() []ir.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ir.ID(nil), s.calls...)
}
