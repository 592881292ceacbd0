package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/seqmine/internal/ir"
)

// marshalList converts a string list to JSON TEXT. Empty lists are stored
// as NULL so "absent" and "empty" read back the same way.
// HTML escaping is disabled so formulas containing < > & stay readable.
func marshalList(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return sql.NullString{}, fmt.Errorf("marshal list: %w", err)
	}
	return sql.NullString{String: strings.TrimSpace(buf.String()), Valid: true}, nil
}

// unmarshalList parses JSON TEXT written by marshalList.
func unmarshalList(data sql.NullString) ([]string, error) {
	if !data.Valid || data.String == "" || data.String == "[]" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(data.String), &list); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return list, nil
}

func marshalIDs(ids []ir.ID) (sql.NullString, error) {
	list := make([]string, len(ids))
	for i, id := range ids {
		list[i] = string(id)
	}
	return marshalList(list)
}

func unmarshalIDs(data sql.NullString) ([]ir.ID, error) {
	list, err := unmarshalList(data)
	if err != nil || list == nil {
		return nil, err
	}
	ids := make([]ir.ID, len(list))
	for i, s := range list {
		ids[i] = ir.ID(s)
	}
	return ids, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	return ir.BoolPtr(b.Bool)
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s.String, err)
	}
	return t, nil
}
