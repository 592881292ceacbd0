package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/seqmine/internal/ir"
)

// ErrNotInitialized is returned by commands that need CreateSchema to have
// run first.
var ErrNotInitialized = errors.New("store not initialised")

const recordColumns = `
	id, name, data, formula, closed_form, simplified_closed_form, is_new,
	regex_matched, parsed_formulas, keyword, cross_references,
	algorithm_used, numeric_field_used, verified, state`

// Capacity returns the capacity recorded by CreateSchema. ok is false for a
// store that has never been initialised.
func (s *Store) Capacity(ctx context.Context) (capacity int, ok bool, err error) {
	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'capacity'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read capacity: %w", err)
	}
	capacity, err = strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("read capacity: %w", err)
	}
	return capacity, true, nil
}

// Get retrieves a single record by id.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) Get(ctx context.Context, id ir.ID) (ir.SequenceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM sequences WHERE id = ?`, string(id))
	rec, err := scanRecord(row)
	if err != nil {
		return ir.SequenceRecord{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// Blacklist returns every stored exclusion in id order.
func (s *Store) Blacklist(ctx context.Context) ([]ir.ID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM blacklist ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query blacklist: %w", err)
	}
	defer rows.Close()

	ids := []ir.ID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blacklist: %w", err)
		}
		ids = append(ids, ir.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blacklist: %w", err)
	}
	return ids, nil
}

// CorpusEntry is one sequence's parsed formula expressions.
type CorpusEntry struct {
	ID          ir.ID
	Expressions []string
}

// FormulaCorpus returns every row with at least one parsed formula
// expression, ordered by id.
func (s *Store) FormulaCorpus(ctx context.Context) ([]CorpusEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parsed_formulas FROM sequences
		WHERE parsed_formulas IS NOT NULL AND parsed_formulas != '' AND parsed_formulas != '[]'
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query formula corpus: %w", err)
	}
	defer rows.Close()

	var corpus []CorpusEntry
	for rows.Next() {
		var id string
		var parsed sql.NullString
		if err := rows.Scan(&id, &parsed); err != nil {
			return nil, fmt.Errorf("scan formula corpus: %w", err)
		}
		exprs, err := unmarshalList(parsed)
		if err != nil {
			return nil, fmt.Errorf("formula corpus %s: %w", id, err)
		}
		if len(exprs) > 0 {
			corpus = append(corpus, CorpusEntry{ID: ir.ID(id), Expressions: exprs})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate formula corpus: %w", err)
	}
	return corpus, nil
}

// CrossReferences returns every recorded match ordered by (id_a, id_b).
func (s *Store) CrossReferences(ctx context.Context) ([]ir.CrossReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id_a, id_b, formula_a, formula_b FROM xrefs
		ORDER BY id_a COLLATE BINARY ASC, id_b COLLATE BINARY ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query xrefs: %w", err)
	}
	defer rows.Close()

	xrefs := []ir.CrossReference{}
	for rows.Next() {
		var a, b string
		var x ir.CrossReference
		if err := rows.Scan(&a, &b, &x.FormulaA, &x.FormulaB); err != nil {
			return nil, fmt.Errorf("scan xref: %w", err)
		}
		x.A, x.B = ir.ID(a), ir.ID(b)
		xrefs = append(xrefs, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate xrefs: %w", err)
	}
	return xrefs, nil
}

// Stats summarises the job table.
type Stats struct {
	Total           int `json:"total"`
	Fetched         int `json:"fetched"`
	Solved          int `json:"solved"`
	New             int `json:"new"`
	Verified        int `json:"verified"`
	VerifyFailed    int `json:"verify_failed"`
	Blacklisted     int `json:"blacklisted"`
	CrossReferences int `json:"cross_references"`
	Runs            int `json:"runs"`
}

// Stats counts rows per lifecycle milestone.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(name),
			COALESCE(SUM(closed_form IS NOT NULL AND closed_form != ''), 0),
			COALESCE(SUM(is_new), 0),
			COALESCE(SUM(verified = 1), 0),
			COALESCE(SUM(verified = 0), 0)
		FROM sequences
	`).Scan(&st.Total, &st.Fetched, &st.Solved, &st.New, &st.Verified, &st.VerifyFailed)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM blacklist),
			(SELECT COUNT(*) FROM xrefs),
			(SELECT COUNT(*) FROM runs)
	`).Scan(&st.Blacklisted, &st.CrossReferences, &st.Runs)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ir.SequenceRecord, error) {
	var (
		rec                    ir.SequenceRecord
		id                     string
		name, data, formula    sql.NullString
		closedForm, simplified sql.NullString
		parsed, keyword, xrefs sql.NullString
		algorithm, field       sql.NullString
		verified               sql.NullBool
		state                  int
	)
	err := row.Scan(&id, &name, &data, &formula, &closedForm, &simplified,
		&rec.IsNew, &rec.RegexMatched, &parsed, &keyword, &xrefs,
		&algorithm, &field, &verified, &state)
	if err != nil {
		return ir.SequenceRecord{}, err
	}

	rec.ID = ir.ID(id)
	rec.Name = name.String
	rec.Data = data.String
	rec.ClosedForm = closedForm.String
	rec.SimplifiedClosedForm = simplified.String
	rec.Keyword = ir.Keyword(keyword.String)
	rec.AlgorithmUsed = algorithm.String
	rec.NumericFieldUsed = field.String
	rec.Verified = boolPtr(verified)
	rec.State = ir.State(state)

	if rec.Formula, err = unmarshalList(formula); err != nil {
		return ir.SequenceRecord{}, err
	}
	if rec.ParsedFormulas, err = unmarshalList(parsed); err != nil {
		return ir.SequenceRecord{}, err
	}
	if rec.CrossReferences, err = unmarshalIDs(xrefs); err != nil {
		return ir.SequenceRecord{}, err
	}
	return rec, nil
}
