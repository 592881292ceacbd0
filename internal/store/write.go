package store

import (
	"context"
	"fmt"

	"github.com/roach88/seqmine/internal/ir"
)

// CreateSchema initialises the job table with one empty row per identifier
// in [1, capacity] and records the default blacklist. It is a no-op,
// returning created=false, when the store was initialised before.
//
// Everything is written in one transaction so an interrupted
// initialisation leaves no marker and is simply retried.
func (s *Store) CreateSchema(ctx context.Context, capacity int, defaults []ir.ID) (created bool, err error) {
	if capacity <= 0 || capacity > ir.MaxIDNumber {
		return false, fmt.Errorf("create schema: capacity %d out of range [1, %d]", capacity, ir.MaxIDNumber)
	}
	if _, ok, err := s.Capacity(ctx); err != nil {
		return false, fmt.Errorf("create schema: %w", err)
	} else if ok {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("create schema: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO sequences (id) VALUES (?)`)
	if err != nil {
		return false, fmt.Errorf("create schema: prepare: %w", err)
	}
	defer stmt.Close()

	for n := 1; n <= capacity; n++ {
		if _, err := stmt.ExecContext(ctx, string(ir.FormatID(n))); err != nil {
			return false, fmt.Errorf("create schema: insert %s: %w", ir.FormatID(n), err)
		}
	}

	for _, id := range defaults {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO blacklist (id, reason) VALUES (?, 'default')
		`, string(id)); err != nil {
			return false, fmt.Errorf("create schema: blacklist %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('capacity', ?)
	`, fmt.Sprint(capacity)); err != nil {
		return false, fmt.Errorf("create schema: mark initialised: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("create schema: commit: %w", err)
	}
	return true, nil
}

// Update writes every derived field of rec, inserting the row if needed.
// The stored state never decreases.
func (s *Store) Update(ctx context.Context, rec ir.SequenceRecord) error {
	return upsert(ctx, s.db, rec)
}

func upsert(ctx context.Context, ex execer, rec ir.SequenceRecord) error {
	formula, err := marshalList(rec.Formula)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	parsed, err := marshalList(rec.ParsedFormulas)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	xrefs, err := marshalIDs(rec.CrossReferences)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO sequences
		(id, name, data, formula, closed_form, simplified_closed_form, is_new,
		 regex_matched, parsed_formulas, keyword, cross_references,
		 algorithm_used, numeric_field_used, verified, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			data = excluded.data,
			formula = excluded.formula,
			closed_form = excluded.closed_form,
			simplified_closed_form = excluded.simplified_closed_form,
			is_new = excluded.is_new,
			regex_matched = excluded.regex_matched,
			parsed_formulas = excluded.parsed_formulas,
			keyword = excluded.keyword,
			cross_references = excluded.cross_references,
			algorithm_used = excluded.algorithm_used,
			numeric_field_used = excluded.numeric_field_used,
			verified = excluded.verified,
			state = MAX(sequences.state, excluded.state),
			updated_at = excluded.updated_at
	`,
		string(rec.ID),
		nullString(rec.Name),
		nullString(rec.Data),
		formula,
		nullString(rec.ClosedForm),
		nullString(rec.SimplifiedClosedForm),
		rec.IsNew,
		rec.RegexMatched,
		parsed,
		nullString(string(rec.Keyword)),
		xrefs,
		nullString(rec.AlgorithmUsed),
		nullString(rec.NumericFieldUsed),
		nullBool(rec.Verified),
		int(rec.State),
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	return nil
}

// SetVerified records the outcome of the verification pass. A passing row
// advances to StateVerified.
func (s *Store) SetVerified(ctx context.Context, id ir.ID, ok bool) error {
	state := ir.StateGuessed
	if ok {
		state = ir.StateVerified
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sequences
		SET verified = ?, state = MAX(state, ?),
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?
	`, ok, int(state), string(id))
	if err != nil {
		return fmt.Errorf("set verified %s: %w", id, err)
	}
	return nil
}

// AddBlacklist appends ids to the exclusion table and returns how many were
// new. Existing entries keep their original reason.
func (s *Store) AddBlacklist(ctx context.Context, ids []ir.ID, reason string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add blacklist: begin tx: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO blacklist (id, reason) VALUES (?, ?)
			ON CONFLICT(id) DO NOTHING
		`, string(id), reason)
		if err != nil {
			return 0, fmt.Errorf("add blacklist %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("add blacklist %s: rows affected: %w", id, err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add blacklist: commit: %w", err)
	}
	return added, nil
}

// InsertCrossReference records a match. Uses ON CONFLICT DO NOTHING for
// idempotency; inserted reports whether the row is new.
func (s *Store) InsertCrossReference(ctx context.Context, x ir.CrossReference) (inserted bool, err error) {
	if x.B < x.A {
		x.A, x.B = x.B, x.A
		x.FormulaA, x.FormulaB = x.FormulaB, x.FormulaA
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO xrefs (id_a, id_b, formula_a, formula_b)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, string(x.A), string(x.B), x.FormulaA, x.FormulaB)
	if err != nil {
		return false, fmt.Errorf("insert xref %s-%s: %w", x.A, x.B, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert xref %s-%s: rows affected: %w", x.A, x.B, err)
	}
	return n > 0, nil
}
