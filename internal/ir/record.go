package ir

import "strings"

// State is the lifecycle position of a SequenceRecord.
//
// States only move forward: Unfetched -> Fetched -> Guessed -> Verified.
// Guessed covers both a successful and a failed guess; ClosedForm tells them
// apart. The store enforces the ordering with MAX(state, new_state).
type State int

const (
	StateUnfetched State = iota
	StateFetched
	StateGuessed
	StateVerified
)

func (s State) String() string {
	switch s {
	case StateUnfetched:
		return "unfetched"
	case StateFetched:
		return "fetched"
	case StateGuessed:
		return "guessed"
	case StateVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Keyword is the difficulty flag carried over from the catalog's keyword tags.
type Keyword string

const (
	KeywordNone Keyword = ""
	KeywordHard Keyword = "hard"
	KeywordEasy Keyword = "easy"
)

// KeywordAllocated marks an identifier that exists upstream but has no
// published content yet.
const KeywordAllocated = "allocated"

// SplitKeywords splits a space- or comma-delimited tag string.
func SplitKeywords(tags string) []string {
	return strings.FieldsFunc(tags, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// ParseKeyword returns the difficulty flag present in tags. When both "hard"
// and "easy" appear, "hard" wins.
func ParseKeyword(tags string) Keyword {
	kw := KeywordNone
	for _, tag := range SplitKeywords(tags) {
		switch tag {
		case string(KeywordHard):
			return KeywordHard
		case string(KeywordEasy):
			kw = KeywordEasy
		}
	}
	return kw
}

// HasKeyword reports whether tags contains the exact tag.
func HasKeyword(tags, tag string) bool {
	for _, t := range SplitKeywords(tags) {
		if t == tag {
			return true
		}
	}
	return false
}

// SequenceRecord is one row of the job store.
//
// Name being empty means the row has never been fetched. Optional fields use
// the zero value for "absent" except Verified, where nil means the
// verification pass has not looked at the row.
type SequenceRecord struct {
	ID      ID       `json:"id"`
	Name    string   `json:"name,omitempty"`
	Data    string   `json:"data,omitempty"`
	Formula []string `json:"formula,omitempty"`

	ClosedForm           string   `json:"closed_form,omitempty"`
	SimplifiedClosedForm string   `json:"simplified_closed_form,omitempty"`
	IsNew                bool     `json:"is_new"`
	RegexMatched         bool     `json:"regex_matched"`
	ParsedFormulas       []string `json:"parsed_formula_expressions,omitempty"`
	Keyword              Keyword  `json:"keyword,omitempty"`
	CrossReferences      []ID     `json:"cross_references,omitempty"`
	AlgorithmUsed        string   `json:"algorithm_used,omitempty"`
	NumericFieldUsed     string   `json:"numeric_field_used,omitempty"`
	Verified             *bool    `json:"verified,omitempty"`

	State State `json:"state"`
}

// Solved reports whether a closed form has been recorded.
func (r *SequenceRecord) Solved() bool {
	return r.ClosedForm != ""
}

// BoolPtr is a small helper for the optional Verified field.
func BoolPtr(b bool) *bool {
	return &b
}

// CrossReference records two sequences sharing a symbolically equal formula.
// A is always ordered before B.
type CrossReference struct {
	A        ID     `json:"id_a"`
	B        ID     `json:"id_b"`
	FormulaA string `json:"formula_a"`
	FormulaB string `json:"formula_b"`
}
