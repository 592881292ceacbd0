// Package verify checks a closed form against a sequence's known terms.
package verify

import (
	"math/big"

	"github.com/roach88/seqmine/internal/symbolic"
)

// Verify reports whether e reproduces truth.
//
// e is evaluated at n = 0..len(truth). Inexact results are rounded to the
// nearest integer; exact non-integers never match. Because catalogs start
// sequences at either offset 0 or 1, two alignments are accepted: the
// evaluated terms without the last one, or without the first one. Any
// evaluation error fails the whole check.
func Verify(e symbolic.Expr, truth []*big.Int) bool {
	if e == nil || len(truth) == 0 {
		return false
	}
	vals, ok := Evaluate(e, len(truth)+1)
	if !ok {
		return false
	}
	return equalTerms(vals[:len(truth)], truth) || equalTerms(vals[1:], truth)
}

// Evaluate returns e at n = 0..count-1 as integers, or false if any point
// fails to evaluate or is not an integer.
func Evaluate(e symbolic.Expr, count int) ([]*big.Int, bool) {
	out := make([]*big.Int, count)
	for n := range out {
		v, err := e.Eval(int64(n))
		if err != nil {
			return nil, false
		}
		i, ok := v.RoundInt()
		if !ok {
			return nil, false
		}
		out[n] = i
	}
	return out, true
}

func equalTerms(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}
