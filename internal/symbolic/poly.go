package symbolic

import "math/big"

// Poly is a polynomial in n with rational coefficients; Poly[k] is the
// coefficient of n^k.
type Poly []*big.Rat

// Degree returns the degree, or -1 for the zero polynomial.
func (p Poly) Degree() int {
	for k := len(p) - 1; k >= 0; k-- {
		if p[k] != nil && p[k].Sign() != 0 {
			return k
		}
	}
	return -1
}

// IsIntegral reports whether every coefficient is an integer.
func (p Poly) IsIntegral() bool {
	for _, c := range p {
		if c != nil && !c.IsInt() {
			return false
		}
	}
	return true
}

// At evaluates p at n.
func (p Poly) At(n int64) *big.Rat {
	acc := new(big.Rat)
	x := new(big.Rat).SetInt64(n)
	for k := len(p) - 1; k >= 0; k-- {
		acc.Mul(acc, x)
		if p[k] != nil {
			acc.Add(acc, p[k])
		}
	}
	return acc
}

// Expr renders p in descending powers, e.g. 1/2*n^2 + 1/2*n.
func (p Poly) Expr() Expr {
	var acc Expr
	for k := p.Degree(); k >= 0; k-- {
		c := p[k]
		if c == nil || c.Sign() == 0 {
			continue
		}
		mag := new(big.Rat).Abs(c)
		term := monomial(mag, k)
		switch {
		case acc == nil && c.Sign() < 0:
			acc = &Neg{X: term}
		case acc == nil:
			acc = term
		case c.Sign() < 0:
			acc = &Binary{Op: '-', Left: acc, Right: term}
		default:
			acc = &Binary{Op: '+', Left: acc, Right: term}
		}
	}
	if acc == nil {
		return NewInt(0)
	}
	return acc
}

func monomial(c *big.Rat, k int) Expr {
	var power Expr
	switch k {
	case 0:
		return NewRat(c)
	case 1:
		power = Var{}
	default:
		power = &Binary{Op: '^', Left: Var{}, Right: NewInt(int64(k))}
	}
	if c.Cmp(big.NewRat(1, 1)) == 0 {
		return power
	}
	return &Binary{Op: '*', Left: NewRat(c), Right: power}
}

// FitPolynomial finds the lowest-degree polynomial p with p(i) = values[i]
// for every i, using exact forward differences. It needs at least two more
// values than the resulting degree so the fit is over-determined; otherwise
// it reports false.
func FitPolynomial(values []*big.Rat, maxDegree int) (Poly, bool) {
	if len(values) == 0 {
		return nil, false
	}
	// diffs[k] = k-th forward difference at 0
	row := make([]*big.Rat, len(values))
	for i, v := range values {
		row[i] = new(big.Rat).Set(v)
	}
	var leading []*big.Rat
	degree := -1
	for k := 0; k <= maxDegree && len(row) > 0; k++ {
		if allZero(row) {
			degree = k - 1
			break
		}
		leading = append(leading, new(big.Rat).Set(row[0]))
		next := make([]*big.Rat, len(row)-1)
		for i := range next {
			next[i] = new(big.Rat).Sub(row[i+1], row[i])
		}
		row = next
	}
	if degree < 0 {
		if allZero(values) {
			return Poly{new(big.Rat)}, true
		}
		return nil, false
	}
	if len(values) < degree+3 {
		return nil, false
	}
	return newtonToMonomial(leading[:degree+1]), true
}

func allZero(xs []*big.Rat) bool {
	for _, x := range xs {
		if x.Sign() != 0 {
			return false
		}
	}
	return true
}

// newtonToMonomial converts sum_k d_k * binomial(n, k) into monomial
// coefficients.
func newtonToMonomial(d []*big.Rat) Poly {
	result := make(Poly, len(d))
	for i := range result {
		result[i] = new(big.Rat)
	}
	// falling = n(n-1)...(n-k+1), kept as coefficients
	falling := Poly{big.NewRat(1, 1)}
	fact := big.NewRat(1, 1)
	for k, dk := range d {
		if k > 0 {
			fact.Mul(fact, big.NewRat(int64(k), 1))
			falling = mulLinear(falling, int64(k-1))
		}
		scale := new(big.Rat).Quo(dk, fact)
		for i, c := range falling {
			result[i].Add(result[i], new(big.Rat).Mul(c, scale))
		}
	}
	return result
}

// mulLinear multiplies p by (n - a).
func mulLinear(p Poly, a int64) Poly {
	out := make(Poly, len(p)+1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	ra := big.NewRat(a, 1)
	for i, c := range p {
		out[i+1].Add(out[i+1], c)
		out[i].Sub(out[i], new(big.Rat).Mul(c, ra))
	}
	return out
}
