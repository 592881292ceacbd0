package symbolic

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

var (
	// ErrParse reports formula text that is not valid expression syntax.
	ErrParse = errors.New("parse error")

	// ErrEval reports an expression that cannot be evaluated at a point
	// (division by zero, non-integer factorial, overflow, ...).
	ErrEval = errors.New("evaluation error")
)

const (
	// maxExponent bounds exact integer powers so a stray n^n^n cannot
	// allocate unbounded memory.
	maxExponent = 20000

	// maxFactorial bounds factorial and binomial arguments.
	maxFactorial = 5000

	// maxFibonacci bounds Fibonacci/Lucas indices.
	maxFibonacci = 100000

	// floatTolerance is the relative tolerance used when either side of a
	// comparison is inexact.
	floatTolerance = 1e-9
)

// Value is the result of evaluating an expression at one point.
//
// A Value is exact (backed by a big.Rat) whenever every operation on the way
// could be carried out in rational arithmetic; otherwise it degrades to a
// float64.
type Value struct {
	rat   *big.Rat
	float float64
}

// ExactValue wraps a rational.
func ExactValue(r *big.Rat) Value {
	return Value{rat: new(big.Rat).Set(r)}
}

// IntValue wraps an int64.
func IntValue(i int64) Value {
	return Value{rat: new(big.Rat).SetInt64(i)}
}

// FloatValue wraps an inexact number.
func FloatValue(f float64) Value {
	return Value{float: f}
}

// IsExact reports whether v is held as an exact rational.
func (v Value) IsExact() bool { return v.rat != nil }

// Rat returns the exact value, or nil for an inexact Value.
func (v Value) Rat() *big.Rat { return v.rat }

// Float64 returns v as a float64 (possibly rounded or infinite).
func (v Value) Float64() float64 {
	if v.rat != nil {
		f, _ := v.rat.Float64()
		return f
	}
	return v.float
}

// IsInteger reports whether v is an exact integer.
func (v Value) IsInteger() bool {
	return v.rat != nil && v.rat.IsInt()
}

// Int returns the integer held by an exact integral Value.
func (v Value) Int() (*big.Int, bool) {
	if !v.IsInteger() {
		return nil, false
	}
	return new(big.Int).Set(v.rat.Num()), true
}

// RoundInt returns v as an integer. Exact integers are returned as is,
// inexact values are rounded to the nearest integer, and exact non-integers
// are rejected.
func (v Value) RoundInt() (*big.Int, bool) {
	if v.rat != nil {
		return v.Int()
	}
	if math.IsNaN(v.float) || math.IsInf(v.float, 0) {
		return nil, false
	}
	bf := big.NewFloat(math.Round(v.float))
	i, _ := bf.Int(nil)
	return i, true
}

// Equal compares two values, exactly when both are exact and with a relative
// tolerance otherwise.
func (v Value) Equal(w Value) bool {
	if v.rat != nil && w.rat != nil {
		return v.rat.Cmp(w.rat) == 0
	}
	a, b := v.Float64(), w.Float64()
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= floatTolerance*scale
}

func (v Value) String() string {
	if v.rat != nil {
		return v.rat.RatString()
	}
	return strconv.FormatFloat(v.float, 'g', -1, 64)
}

func checkFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite result", ErrEval)
	}
	return FloatValue(f), nil
}

func add(a, b Value) (Value, error) {
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Add(a.rat, b.rat)}, nil
	}
	return checkFloat(a.Float64() + b.Float64())
}

func sub(a, b Value) (Value, error) {
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Sub(a.rat, b.rat)}, nil
	}
	return checkFloat(a.Float64() - b.Float64())
}

func mul(a, b Value) (Value, error) {
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Mul(a.rat, b.rat)}, nil
	}
	return checkFloat(a.Float64() * b.Float64())
}

func div(a, b Value) (Value, error) {
	if b.rat != nil && b.rat.Sign() == 0 {
		return Value{}, fmt.Errorf("%w: division by zero", ErrEval)
	}
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Quo(a.rat, b.rat)}, nil
	}
	if b.Float64() == 0 {
		return Value{}, fmt.Errorf("%w: division by zero", ErrEval)
	}
	return checkFloat(a.Float64() / b.Float64())
}

func neg(a Value) Value {
	if a.rat != nil {
		return Value{rat: new(big.Rat).Neg(a.rat)}
	}
	return FloatValue(-a.float)
}

func pow(base, exp Value) (Value, error) {
	if e, ok := exp.Int(); ok && base.rat != nil {
		if !e.IsInt64() || e.Int64() > maxExponent || e.Int64() < -maxExponent {
			return Value{}, fmt.Errorf("%w: exponent %s out of range", ErrEval, e)
		}
		k := e.Int64()
		if k < 0 {
			if base.rat.Sign() == 0 {
				return Value{}, fmt.Errorf("%w: division by zero", ErrEval)
			}
			k = -k
			inv := new(big.Rat).Inv(base.rat)
			return Value{rat: ratPow(inv, k)}, nil
		}
		return Value{rat: ratPow(base.rat, k)}, nil
	}
	b := base.Float64()
	x := exp.Float64()
	if b < 0 && x != math.Trunc(x) {
		return Value{}, fmt.Errorf("%w: fractional power of negative base", ErrEval)
	}
	return checkFloat(math.Pow(b, x))
}

func ratPow(r *big.Rat, k int64) *big.Rat {
	e := big.NewInt(k)
	num := new(big.Int).Exp(r.Num(), e, nil)
	den := new(big.Int).Exp(r.Denom(), e, nil)
	return new(big.Rat).SetFrac(num, den)
}

func exactSqrt(r *big.Rat) (*big.Rat, bool) {
	if r.Sign() < 0 {
		return nil, false
	}
	num, den := r.Num(), r.Denom()
	sn := new(big.Int).Sqrt(num)
	sd := new(big.Int).Sqrt(den)
	if new(big.Int).Mul(sn, sn).Cmp(num) != 0 || new(big.Int).Mul(sd, sd).Cmp(den) != 0 {
		return nil, false
	}
	return new(big.Rat).SetFrac(sn, sd), true
}

// smallInt extracts an exact integer argument within [-limit, limit].
func smallInt(v Value, name string, limit int64) (int64, error) {
	i, ok := v.Int()
	if !ok {
		if v.rat == nil {
			f := v.float
			if f == math.Trunc(f) && math.Abs(f) <= float64(limit) {
				return int64(f), nil
			}
		}
		return 0, fmt.Errorf("%w: %s needs an integer argument, got %s", ErrEval, name, v)
	}
	if !i.IsInt64() || i.Int64() > limit || i.Int64() < -limit {
		return 0, fmt.Errorf("%w: %s argument %s out of range", ErrEval, name, i)
	}
	return i.Int64(), nil
}
