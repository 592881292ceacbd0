package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/seqmine/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createInitializedStore creates a store with capacity empty rows.
func createInitializedStore(t *testing.T, capacity int, defaults ...ir.ID) *Store {
	t.Helper()
	s := createTestStore(t)
	if _, err := s.CreateSchema(context.Background(), capacity, defaults); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return s
}

// fetchedRecord returns a record in the fetched-but-unsolved state.
func fetchedRecord(id ir.ID, name string) ir.SequenceRecord {
	return ir.SequenceRecord{
		ID:      id,
		Name:    name,
		Data:    "1,2,3,4,5",
		Formula: []string{"a(n) = n."},
		State:   ir.StateGuessed,
	}
}

// solvedRecord returns a record with a closed form.
func solvedRecord(id ir.ID, closedForm string, parsed ...string) ir.SequenceRecord {
	rec := fetchedRecord(id, "solved "+string(id))
	rec.ClosedForm = closedForm
	rec.ParsedFormulas = parsed
	rec.AlgorithmUsed = "polynomial"
	rec.NumericFieldUsed = "ZZ"
	return rec
}

// drain collects every id a cursor yields.
func drain(t *testing.T, c *Cursor) []ir.ID {
	t.Helper()
	var ids []ir.ID
	for {
		id, ok, err := c.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		if !ok {
			return ids
		}
		ids = append(ids, id)
	}
}
