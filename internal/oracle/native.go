package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/roach88/seqmine/internal/symbolic"
)

// Native algorithm names.
const (
	AlgorithmPolynomial = "polynomial"
	AlgorithmCFinite    = "cfinite"
)

const (
	// maxPolyDegree caps the polynomial search.
	maxPolyDegree = 20

	// maxRecurrenceOrder caps the C-finite search.
	maxRecurrenceOrder = 16

	// surplusTerms is how many terms beyond the minimum a fit must explain
	// before it is believed.
	surplusTerms = 2
)

// Native guesses closed forms in pure Go.
//
// polynomial fits the lowest-degree polynomial by exact finite
// differences. cfinite finds the shortest linear recurrence with constant
// coefficients (Berlekamp-Massey over the rationals) and solves it through
// the rational roots of its characteristic polynomial; the golden-ratio
// factor x^2 - x - 1 is rendered with fibonacci(n) and lucas(n). Any other
// irrational root is reported as found but not renderable.
//
// Over ZZ every coefficient, root and weight must be an integer.
type Native struct{}

// Algorithms implements Guesser.
func (Native) Algorithms() []string {
	return []string{AlgorithmPolynomial, AlgorithmCFinite}
}

// Guess implements Guesser.
func (n Native) Guess(ctx context.Context, terms []*big.Int, algorithm string, field Field) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	values := make([]*big.Rat, len(terms))
	for i, t := range terms {
		values[i] = new(big.Rat).SetInt(t)
	}
	switch algorithm {
	case AlgorithmPolynomial:
		return guessPolynomial(values, field), nil
	case AlgorithmCFinite:
		return guessCFinite(values, field), nil
	}
	return Solution{}, fmt.Errorf("native guesser: unknown algorithm %q", algorithm)
}

func guessPolynomial(values []*big.Rat, field Field) Solution {
	maxDeg := len(values) - 1 - surplusTerms
	if maxDeg > maxPolyDegree {
		maxDeg = maxPolyDegree
	}
	if maxDeg < 0 {
		return Solution{}
	}
	p, ok := symbolic.FitPolynomial(values, maxDeg)
	if !ok {
		return Solution{}
	}
	if field == ZZ && !p.IsIntegral() {
		return Solution{}
	}
	return Solution{Found: true, ClosedForm: p.Expr().String()}
}

func guessCFinite(values []*big.Rat, field Field) Solution {
	c := berlekampMassey(values)
	order := len(c) - 1
	if order == 0 {
		// all zero
		return Solution{Found: true, ClosedForm: "0"}
	}
	if order > maxRecurrenceOrder || len(values) < 2*order+surplusTerms {
		return Solution{}
	}
	if field == ZZ && !allIntegral(c) {
		return Solution{}
	}

	// characteristic polynomial x^L + c1 x^(L-1) + ... + cL, low degree first
	char := make([]*big.Rat, order+1)
	for k := 0; k <= order; k++ {
		char[k] = new(big.Rat).Set(c[order-k])
	}

	basis, ok := characteristicBasis(char, field)
	if !ok {
		return Solution{Found: true}
	}
	weights, ok := solveWeights(basis, values[:order])
	if !ok {
		return Solution{Found: true}
	}
	if field == ZZ && !allIntegral(weights) {
		return Solution{}
	}

	expr := combine(basis, weights)
	for i, want := range values {
		v, err := expr.Eval(int64(i))
		if err != nil || !v.IsExact() || v.Rat().Cmp(want) != 0 {
			return Solution{Found: true}
		}
	}
	return Solution{Found: true, ClosedForm: expr.String()}
}

// berlekampMassey returns the connection polynomial C of the shortest
// linear recurrence generating s: C[0] = 1 and
// s[n] + C[1] s[n-1] + ... + C[L] s[n-L] = 0 for n >= L.
func berlekampMassey(s []*big.Rat) []*big.Rat {
	one := big.NewRat(1, 1)
	c := []*big.Rat{new(big.Rat).Set(one)}
	b := []*big.Rat{new(big.Rat).Set(one)}
	l, m := 0, 1
	bd := new(big.Rat).Set(one)

	for n := range s {
		d := new(big.Rat).Set(s[n])
		for i := 1; i <= l && i < len(c); i++ {
			d.Add(d, new(big.Rat).Mul(c[i], s[n-i]))
		}
		if d.Sign() == 0 {
			m++
			continue
		}
		prev := cloneRats(c)
		coef := new(big.Rat).Quo(d, bd)
		for len(c) < len(b)+m {
			c = append(c, new(big.Rat))
		}
		for i, bi := range b {
			c[i+m].Sub(c[i+m], new(big.Rat).Mul(coef, bi))
		}
		if 2*l <= n {
			l = n + 1 - l
			b = prev
			bd = d
			m = 1
		} else {
			m++
		}
	}
	for len(c) < l+1 {
		c = append(c, new(big.Rat))
	}
	return c[:l+1]
}

// basisTerm is one solution of the recurrence: n^power * root^n, or the
// fibonacci/lucas pair for the golden-ratio factor.
type basisTerm struct {
	expr symbolic.Expr
}

// characteristicBasis factors char (low degree first) and returns one
// basis expression per root counted with multiplicity.
func characteristicBasis(char []*big.Rat, field Field) ([]basisTerm, bool) {
	roots, rest, ok := rationalRoots(char)
	if !ok {
		return nil, false
	}
	var basis []basisTerm
	for _, r := range roots {
		if r.root.Sign() == 0 {
			return nil, false
		}
		if field == ZZ && !r.root.IsInt() {
			return nil, false
		}
		for j := r.multiplicity - 1; j >= 0; j-- {
			basis = append(basis, basisTerm{expr: powerTerm(r.root, j)})
		}
	}
	switch degree(rest) {
	case 0:
	case 2:
		if !isGolden(rest) {
			return nil, false
		}
		basis = append(basis,
			basisTerm{expr: &symbolic.Call{Fn: "fibonacci", Args: []symbolic.Expr{symbolic.Var{}}}},
			basisTerm{expr: &symbolic.Call{Fn: "lucas", Args: []symbolic.Expr{symbolic.Var{}}}},
		)
	default:
		return nil, false
	}
	return basis, true
}

// powerTerm renders n^j * r^n.
func powerTerm(r *big.Rat, j int) symbolic.Expr {
	var poly symbolic.Expr
	switch j {
	case 0:
	case 1:
		poly = symbolic.Var{}
	default:
		poly = &symbolic.Binary{Op: '^', Left: symbolic.Var{}, Right: symbolic.NewInt(int64(j))}
	}
	if r.Cmp(big.NewRat(1, 1)) == 0 {
		if poly == nil {
			return symbolic.NewInt(1)
		}
		return poly
	}
	exp := &symbolic.Binary{Op: '^', Left: symbolic.NewRat(r), Right: symbolic.Var{}}
	if poly == nil {
		return exp
	}
	return &symbolic.Binary{Op: '*', Left: poly, Right: exp}
}

type rootMult struct {
	root         *big.Rat
	multiplicity int
}

// maxRootSearch bounds the integers whose divisors are enumerated.
var maxRootSearch = big.NewInt(1_000_000_000_000)

// rationalRoots finds every rational root of p (low degree first) with
// multiplicity, ordered by decreasing root, and returns the remaining
// factor.
func rationalRoots(p []*big.Rat) ([]rootMult, []*big.Rat, bool) {
	p = trimRats(p)
	ints := integerCoefficients(p)
	lead := new(big.Int).Abs(ints[len(ints)-1])
	if ints[0].Sign() == 0 {
		// root 0
		mult := 0
		for mult < len(p) && p[mult].Sign() == 0 {
			mult++
		}
		rest := p[mult:]
		roots, rest, ok := rationalRoots(rest)
		if !ok {
			return nil, nil, false
		}
		return append(roots, rootMult{root: new(big.Rat), multiplicity: mult}), rest, true
	}
	constant := new(big.Int).Abs(ints[0])
	if constant.Cmp(maxRootSearch) > 0 || lead.Cmp(maxRootSearch) > 0 {
		return nil, nil, false
	}

	var candidates []*big.Rat
	for _, num := range divisors(constant.Int64()) {
		for _, den := range divisors(lead.Int64()) {
			candidates = append(candidates, big.NewRat(num, den), big.NewRat(-num, den))
		}
	}
	sortRatsDesc(candidates)

	var roots []rootMult
	seen := map[string]bool{}
	for _, r := range candidates {
		if seen[r.RatString()] {
			continue
		}
		seen[r.RatString()] = true
		mult := 0
		for degree(p) > 0 {
			q, rem := syntheticDivide(p, r)
			if rem.Sign() != 0 {
				break
			}
			p = q
			mult++
		}
		if mult > 0 {
			roots = append(roots, rootMult{root: r, multiplicity: mult})
		}
	}
	return roots, p, true
}

// syntheticDivide divides p (low degree first) by (x - r).
func syntheticDivide(p []*big.Rat, r *big.Rat) ([]*big.Rat, *big.Rat) {
	n := len(p) - 1
	q := make([]*big.Rat, n)
	acc := new(big.Rat)
	for k := n; k >= 1; k-- {
		acc = new(big.Rat).Add(new(big.Rat).Mul(acc, r), p[k])
		q[k-1] = acc
	}
	rem := new(big.Rat).Add(new(big.Rat).Mul(acc, r), p[0])
	return q, rem
}

// isGolden reports whether the quadratic p is a multiple of x^2 - x - 1.
func isGolden(p []*big.Rat) bool {
	lead := p[2]
	return new(big.Rat).Quo(p[1], lead).Cmp(big.NewRat(-1, 1)) == 0 &&
		new(big.Rat).Quo(p[0], lead).Cmp(big.NewRat(-1, 1)) == 0
}

// solveWeights solves sum_k w_k basis_k(n) = values[n] for n < len(basis)
// by exact Gaussian elimination.
func solveWeights(basis []basisTerm, values []*big.Rat) ([]*big.Rat, bool) {
	size := len(basis)
	if len(values) < size {
		return nil, false
	}
	m := make([][]*big.Rat, size)
	for row := 0; row < size; row++ {
		m[row] = make([]*big.Rat, size+1)
		for col, b := range basis {
			v, err := b.expr.Eval(int64(row))
			if err != nil || !v.IsExact() {
				return nil, false
			}
			m[row][col] = new(big.Rat).Set(v.Rat())
		}
		m[row][size] = new(big.Rat).Set(values[row])
	}

	for col := 0; col < size; col++ {
		pivot := -1
		for row := col; row < size; row++ {
			if m[row][col].Sign() != 0 {
				pivot = row
				break
			}
		}
		if pivot < 0 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for row := 0; row < size; row++ {
			if row == col || m[row][col].Sign() == 0 {
				continue
			}
			f := new(big.Rat).Quo(m[row][col], m[col][col])
			for k := col; k <= size; k++ {
				m[row][k].Sub(m[row][k], new(big.Rat).Mul(f, m[col][k]))
			}
		}
	}
	w := make([]*big.Rat, size)
	for i := range w {
		w[i] = new(big.Rat).Quo(m[i][size], m[i][i])
	}
	return w, true
}

// combine renders sum w_k basis_k, dropping zero weights.
func combine(basis []basisTerm, weights []*big.Rat) symbolic.Expr {
	var acc symbolic.Expr
	for i, b := range basis {
		w := weights[i]
		if w.Sign() == 0 {
			continue
		}
		term := scale(new(big.Rat).Abs(w), b.expr)
		switch {
		case acc == nil && w.Sign() < 0:
			acc = &symbolic.Neg{X: term}
		case acc == nil:
			acc = term
		case w.Sign() < 0:
			acc = &symbolic.Binary{Op: '-', Left: acc, Right: term}
		default:
			acc = &symbolic.Binary{Op: '+', Left: acc, Right: term}
		}
	}
	if acc == nil {
		return symbolic.NewInt(0)
	}
	return acc
}

func scale(c *big.Rat, e symbolic.Expr) symbolic.Expr {
	if num, ok := e.(*symbolic.Num); ok {
		return symbolic.NewRat(new(big.Rat).Mul(c, num.Val))
	}
	if c.Cmp(big.NewRat(1, 1)) == 0 {
		return e
	}
	return &symbolic.Binary{Op: '*', Left: symbolic.NewRat(c), Right: e}
}

func allIntegral(xs []*big.Rat) bool {
	for _, x := range xs {
		if !x.IsInt() {
			return false
		}
	}
	return true
}

func cloneRats(xs []*big.Rat) []*big.Rat {
	out := make([]*big.Rat, len(xs))
	for i, x := range xs {
		out[i] = new(big.Rat).Set(x)
	}
	return out
}

func trimRats(p []*big.Rat) []*big.Rat {
	n := len(p)
	for n > 1 && p[n-1].Sign() == 0 {
		n--
	}
	return p[:n]
}

func degree(p []*big.Rat) int {
	return len(trimRats(p)) - 1
}

// integerCoefficients scales p by the lcm of its denominators.
func integerCoefficients(p []*big.Rat) []*big.Int {
	lcm := big.NewInt(1)
	for _, c := range p {
		d := c.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}
	out := make([]*big.Int, len(p))
	for i, c := range p {
		v := new(big.Int).Mul(c.Num(), new(big.Int).Quo(lcm, c.Denom()))
		out[i] = v
	}
	return out
}

// divisors returns the positive divisors of n > 0.
func divisors(n int64) []int64 {
	var small, large []int64
	for d := int64(1); d*d <= n; d++ {
		if n%d != 0 {
			continue
		}
		small = append(small, d)
		if d != n/d {
			large = append(large, n/d)
		}
	}
	for i := len(large) - 1; i >= 0; i-- {
		small = append(small, large[i])
	}
	return small
}

func sortRatsDesc(xs []*big.Rat) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j].Cmp(xs[j-1]) > 0; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
