package verify

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/seqmine/internal/symbolic"
)

func ints(vs ...int64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestVerify_Alignments(t *testing.T) {
	truth := ints(1, 1, 2, 3, 5, 8)

	// evaluates to 1,1,2,3,5,8,13 at n = 0..6
	assert.True(t, Verify(symbolic.MustParse("fibonacci(n+1)"), truth), "drop-last alignment")

	// evaluates to 0,1,1,2,3,5,8 at n = 0..6
	assert.True(t, Verify(symbolic.MustParse("fibonacci(n)"), truth), "drop-first alignment")

	assert.False(t, Verify(symbolic.MustParse("fibonacci(n+2)"), truth), "offset of two is rejected")
	assert.False(t, Verify(symbolic.MustParse("lucas(n)"), truth))
}

func TestVerify_Rounding(t *testing.T) {
	// Binet's formula evaluates in floating point.
	binet := symbolic.MustParse("((1+sqrt(5))/2)^n/sqrt(5)")
	assert.True(t, Verify(symbolic.MustParse("floor(((1+sqrt(5))/2)^n/sqrt(5) + 1/2)"), ints(0, 1, 1, 2, 3, 5, 8, 13)))
	assert.True(t, Verify(binet, ints(1, 1, 2, 3, 5, 8, 13)), "inexact values round to the nearest integer")

	assert.False(t, Verify(symbolic.MustParse("n/2"), ints(0, 0, 1, 1, 2)), "exact non-integers do not match")
}

func TestVerify_EvaluationErrorFails(t *testing.T) {
	// 1/(n-3) is undefined at n = 3.
	assert.False(t, Verify(symbolic.MustParse("1/(n-3) + n"), ints(0, 1, 2, 3, 4, 5)))
	assert.False(t, Verify(symbolic.MustParse("sqrt(n - 2)"), ints(0, 1, 2)))
}

func TestVerify_Degenerate(t *testing.T) {
	assert.False(t, Verify(symbolic.MustParse("n"), nil))
	assert.False(t, Verify(nil, ints(1)))
	assert.True(t, Verify(symbolic.MustParse("n"), ints(0)))
}

func TestEvaluate(t *testing.T) {
	got, ok := Evaluate(symbolic.MustParse("2^n"), 5)
	assert.True(t, ok)
	assert.Equal(t, ints(1, 2, 4, 8, 16), got)

	_, ok = Evaluate(symbolic.MustParse("n/3"), 2)
	assert.False(t, ok)
}
