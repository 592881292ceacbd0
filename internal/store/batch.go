package store

import (
	"context"
	"fmt"

	"github.com/roach88/seqmine/internal/ir"
)

// Batch buffers record updates and writes them in one transaction.
//
// The buffer is the durability boundary: rows added since the last Flush
// are lost on a crash, rows flushed are fully written. A failed Flush
// leaves the buffer intact so the caller can retry.
type Batch struct {
	store   *Store
	size    int
	pending []ir.SequenceRecord
	written int
}

// NewBatch returns a batch that flushes automatically every size records.
func (s *Store) NewBatch(size int) *Batch {
	if size <= 0 {
		size = 1
	}
	return &Batch{store: s, size: size}
}

// Add buffers rec and flushes when the buffer is full. flushed reports
// whether a commit happened.
func (b *Batch) Add(ctx context.Context, rec ir.SequenceRecord) (flushed bool, err error) {
	b.pending = append(b.pending, rec)
	if len(b.pending) < b.size {
		return false, nil
	}
	if err := b.Flush(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Len returns the number of buffered records.
func (b *Batch) Len() int { return len(b.pending) }

// Written returns the number of records committed so far.
func (b *Batch) Written() int { return b.written }

// Flush commits every buffered record.
func (b *Batch) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush batch: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range b.pending {
		if err := upsert(ctx, tx, rec); err != nil {
			return fmt.Errorf("flush batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush batch: commit: %w", err)
	}
	b.written += len(b.pending)
	b.pending = b.pending[:0]
	return nil
}
