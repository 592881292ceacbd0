package symbolic

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	// EqualityPoints is how many consecutive indices (from 0) Equal samples.
	EqualityPoints = 16

	// fingerprintPoints is how many indices feed a Fingerprint.
	fingerprintPoints = 8

	// maxSimplifyDegree caps the polynomial normal form search.
	maxSimplifyDegree = 12
)

// Equal decides whether a and b denote the same function of n by comparing
// them at n = 0..EqualityPoints-1. Points where both are undefined are
// ignored; a point defined on only one side makes them unequal, as does
// having no comparable point at all.
func Equal(a, b Expr) bool {
	compared := 0
	for n := int64(0); n < EqualityPoints; n++ {
		va, errA := a.Eval(n)
		vb, errB := b.Eval(n)
		switch {
		case errA != nil && errB != nil:
			continue
		case errA != nil || errB != nil:
			return false
		}
		if !va.Equal(vb) {
			return false
		}
		compared++
	}
	return compared > 0
}

// Fingerprint summarises the first few values of e. Expressions that are
// Equal share a fingerprint, so callers can bucket candidates before paying
// for a full comparison.
func Fingerprint(e Expr) string {
	parts := make([]string, fingerprintPoints)
	for n := int64(0); n < fingerprintPoints; n++ {
		v, err := e.Eval(n)
		if err != nil {
			parts[n] = "!"
			continue
		}
		parts[n] = fingerprintValue(v)
	}
	return strings.Join(parts, ",")
}

func fingerprintValue(v Value) string {
	if i, ok := v.Int(); ok {
		return i.String()
	}
	f := v.Float64()
	if r := math.Round(f); math.Abs(f-r) <= 1e-6*math.Max(1, math.Abs(f)) {
		i, _ := big.NewFloat(r).Int(nil)
		return i.String()
	}
	return strconv.FormatFloat(f, 'g', 8, 64)
}

// Simplify returns a canonical, usually shorter, rendering of e. Constant
// subexpressions are folded, trivial identities removed, and expressions that
// are polynomials in n are rewritten in expanded form.
func Simplify(e Expr) (string, error) {
	folded := fold(e)
	if p, ok := polynomialForm(folded); ok {
		return p.Expr().String(), nil
	}
	return folded.String(), nil
}

func polynomialForm(e Expr) (Poly, bool) {
	if IsConstant(e) {
		return nil, false
	}
	values := make([]*big.Rat, maxSimplifyDegree+3)
	for i := range values {
		v, err := e.Eval(int64(i))
		if err != nil || !v.IsExact() {
			return nil, false
		}
		values[i] = v.Rat()
	}
	p, ok := FitPolynomial(values, maxSimplifyDegree)
	if !ok {
		return nil, false
	}
	// confirm away from the fitted window
	for _, n := range []int64{23, 37, 64} {
		v, err := e.Eval(n)
		if err != nil || !v.IsExact() || v.Rat().Cmp(p.At(n)) != 0 {
			return nil, false
		}
	}
	return p, true
}

// fold evaluates variable-free exact subtrees and drops identities such as
// x*1 and x+0.
func fold(e Expr) Expr {
	switch e.(type) {
	case *Num, Var:
		return e
	}
	if IsConstant(e) {
		if v, err := e.Eval(0); err == nil && v.IsExact() {
			return NewRat(v.Rat())
		}
	}
	switch x := e.(type) {
	case *Neg:
		inner := fold(x.X)
		if n, ok := inner.(*Num); ok {
			return NewRat(new(big.Rat).Neg(n.Val))
		}
		if nn, ok := inner.(*Neg); ok {
			return nn.X
		}
		return &Neg{X: inner}
	case *Binary:
		l, r := fold(x.Left), fold(x.Right)
		switch x.Op {
		case '+':
			if isNum(l, 0) {
				return r
			}
			if isNum(r, 0) {
				return l
			}
		case '-':
			if isNum(r, 0) {
				return l
			}
		case '*':
			if isNum(l, 1) {
				return r
			}
			if isNum(r, 1) {
				return l
			}
		case '/':
			if isNum(r, 1) {
				return l
			}
		case '^':
			if isNum(r, 1) {
				return l
			}
		}
		return &Binary{Op: x.Op, Left: l, Right: r}
	case *Factorial:
		return &Factorial{X: fold(x.X)}
	case *Call:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = fold(a)
		}
		return &Call{Fn: x.Fn, Args: args}
	}
	return e
}

func isNum(e Expr, v int64) bool {
	n, ok := e.(*Num)
	return ok && n.Val.Cmp(big.NewRat(v, 1)) == 0
}
