package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/seqmine/internal/ir"
)

// DefaultPageSize is how many ids a Cursor reads per query.
const DefaultPageSize = 500

// Cursor lazily walks the ids matching a filter in ascending order.
//
// Each page is read completely and its rows closed before Next returns, so
// no query stays open while the caller does slow work or writes through the
// single connection. Paging resumes after the last id handed out, which
// makes rows updated mid-pass harmless.
//
// Thread-safety: Next and Reset are safe for concurrent use; each id is
// returned at most once per pass.
type Cursor struct {
	store    *Store
	where    string
	pageSize int

	mu   sync.Mutex
	last string
	page []ir.ID
	done bool
}

func (s *Store) newCursor(where string) *Cursor {
	return &Cursor{store: s, where: where, pageSize: DefaultPageSize}
}

// Pending iterates rows that still need processing. Normal mode yields
// rows never fetched; reprocess mode yields fetched rows without a closed
// form.
func (s *Store) Pending(reprocess bool) *Cursor {
	if reprocess {
		return s.newCursor(`name IS NOT NULL AND (closed_form IS NULL OR closed_form = '')`)
	}
	return s.newCursor(`name IS NULL`)
}

// PendingVerification iterates solved rows. Unless all is set, rows the
// verification pass has already judged are skipped.
func (s *Store) PendingVerification(all bool) *Cursor {
	where := `closed_form IS NOT NULL AND closed_form != ''`
	if !all {
		where += ` AND verified IS NULL`
	}
	return s.newCursor(where)
}

// WithPageSize overrides the page size; n <= 0 keeps the default.
func (c *Cursor) WithPageSize(n int) *Cursor {
	if n > 0 {
		c.pageSize = n
	}
	return c
}

// Next returns the next id. ok is false once the cursor is exhausted.
func (c *Cursor) Next(ctx context.Context) (id ir.ID, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.page) == 0 && !c.done {
		if err := c.fill(ctx); err != nil {
			return "", false, err
		}
	}
	if len(c.page) == 0 {
		return "", false, nil
	}
	id, c.page = c.page[0], c.page[1:]
	c.last = string(id)
	return id, true, nil
}

// Reset restarts the cursor from the smallest matching id.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = ""
	c.page = nil
	c.done = false
}

func (c *Cursor) fill(ctx context.Context) error {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id FROM sequences
		WHERE id > ? AND `+c.where+`
		ORDER BY id COLLATE BINARY ASC
		LIMIT ?
	`, c.last, c.pageSize)
	if err != nil {
		return fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	page := make([]ir.ID, 0, c.pageSize)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan pending: %w", err)
		}
		page = append(page, ir.ID(id))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pending: %w", err)
	}
	c.page = page
	c.done = len(page) < c.pageSize
	return nil
}
