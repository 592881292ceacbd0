package ir

import "golang.org/x/text/unicode/norm"

// NormalizeText returns s in Unicode NFC form.
//
// Catalog text mixes composed and decomposed forms (author names, the odd
// typographic minus), so containment checks normalise both sides first.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}
