package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/roach88/seqmine/internal/ir"
)

// ErrNotFound is returned when the catalog answers but has no entry for the
// requested identifier.
var ErrNotFound = errors.New("sequence not found in catalog")

// Document is the catalog's search response for a single identifier.
type Document struct {
	Greeting string  `json:"greeting,omitempty"`
	Query    string  `json:"query,omitempty"`
	Count    int     `json:"count,omitempty"`
	Start    int     `json:"start,omitempty"`
	Results  []Entry `json:"results"`
}

// Entry is one catalog record.
type Entry struct {
	Number  int      `json:"number"`
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Data    string   `json:"data"`
	Offset  string   `json:"offset,omitempty"`
	Formula []string `json:"formula,omitempty"`
	Xref    TextList `json:"xref,omitempty"`
	Keyword string   `json:"keyword"`
	Author  string   `json:"author,omitempty"`
}

// TextList is free text that the catalog sends either as one string or as a
// list of lines.
type TextList []string

// UnmarshalJSON accepts a JSON string or an array of strings.
func (t *TextList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TextList{s}
		return nil
	}
	var lines []string
	if err := json.Unmarshal(b, &lines); err != nil {
		return err
	}
	*t = lines
	return nil
}

// Decode parses a catalog response. Besides the {"results": [...]} envelope
// it accepts a bare top-level array of entries.
func Decode(b []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode catalog document: empty body")
	}
	if trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode catalog document: %w", err)
		}
		return &Document{Count: len(entries), Results: entries}, nil
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}
	return &doc, nil
}

// Encode renders the canonical text form of a document.
func Encode(doc *Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode catalog document: %w", err)
	}
	return b, nil
}

// First returns the first result, or ErrNotFound for an empty document.
func (d *Document) First() (*Entry, error) {
	if d == nil || len(d.Results) == 0 {
		return nil, ErrNotFound
	}
	return &d.Results[0], nil
}

// Terms parses the comma-separated data field.
func (e *Entry) Terms() ([]*big.Int, error) {
	return ParseTerms(e.Data)
}

// ParseTerms parses a comma-separated list of integers.
func ParseTerms(data string) ([]*big.Int, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	parts := strings.Split(data, ",")
	terms := make([]*big.Int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, ok := new(big.Int).SetString(p, 10)
		if !ok {
			return nil, fmt.Errorf("parse terms: invalid integer %q", p)
		}
		terms = append(terms, v)
	}
	return terms, nil
}

// IsAllocated reports whether the identifier is reserved upstream but has no
// published content yet.
func (e *Entry) IsAllocated() bool {
	return ir.HasKeyword(e.Keyword, ir.KeywordAllocated)
}

// CrossReferences extracts the identifiers mentioned in the xref text,
// excluding the entry itself.
func (e *Entry) CrossReferences(self ir.ID) []ir.ID {
	var out []ir.ID
	for _, id := range ir.ExtractIDs(strings.Join(e.Xref, "\n")) {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// FormulaText is the serialized formula list used for containment checks.
func (e *Entry) FormulaText() string {
	if len(e.Formula) == 0 {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.Formula); err != nil {
		return strings.Join(e.Formula, "\n")
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
