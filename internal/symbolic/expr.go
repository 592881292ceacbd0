package symbolic

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Printing precedence levels, lowest binding first.
const (
	precSum = iota + 1
	precProduct
	precUnary
	precPower
	precPostfix
	precAtom
)

// Expr is a parsed formula in the single variable n.
type Expr interface {
	// Eval evaluates the expression at the integer point n.
	Eval(n int64) (Value, error)

	// String renders the expression in canonical form; parsing the result
	// yields an equivalent expression.
	String() string

	prec() int
	hasVar() bool
}

// IsConstant reports whether e does not depend on n.
func IsConstant(e Expr) bool {
	return !e.hasVar()
}

// Num is a rational literal.
type Num struct {
	Val *big.Rat
}

// NewInt returns an integer literal.
func NewInt(i int64) *Num { return &Num{Val: new(big.Rat).SetInt64(i)} }

// NewRat returns a rational literal.
func NewRat(r *big.Rat) *Num { return &Num{Val: new(big.Rat).Set(r)} }

func (x *Num) Eval(int64) (Value, error) { return ExactValue(x.Val), nil }
func (x *Num) String() string            { return x.Val.RatString() }
func (x *Num) hasVar() bool              { return false }
func (x *Num) prec() int {
	switch {
	case x.Val.Sign() < 0:
		return precUnary
	case !x.Val.IsInt():
		return precProduct
	default:
		return precAtom
	}
}

// Var is the index variable n.
type Var struct{}

func (Var) Eval(n int64) (Value, error) { return IntValue(n), nil }
func (Var) String() string              { return "n" }
func (Var) hasVar() bool                { return true }
func (Var) prec() int                   { return precAtom }

// Neg is unary minus.
type Neg struct {
	X Expr
}

func (x *Neg) Eval(n int64) (Value, error) {
	v, err := x.X.Eval(n)
	if err != nil {
		return Value{}, err
	}
	return neg(v), nil
}

func (x *Neg) String() string {
	return "-" + wrap(x.X, x.X.prec() < precUnary)
}
func (x *Neg) hasVar() bool { return x.X.hasVar() }
func (x *Neg) prec() int    { return precUnary }

// Binary is one of + - * / ^.
type Binary struct {
	Op    byte
	Left  Expr
	Right Expr
}

func (x *Binary) Eval(n int64) (Value, error) {
	l, err := x.Left.Eval(n)
	if err != nil {
		return Value{}, err
	}
	r, err := x.Right.Eval(n)
	if err != nil {
		return Value{}, err
	}
	switch x.Op {
	case '+':
		return add(l, r)
	case '-':
		return sub(l, r)
	case '*':
		return mul(l, r)
	case '/':
		return div(l, r)
	case '^':
		return pow(l, r)
	}
	return Value{}, fmt.Errorf("%w: unknown operator %q", ErrEval, x.Op)
}

func (x *Binary) String() string {
	lp, rp := x.Left.prec(), x.Right.prec()
	switch x.Op {
	case '+':
		return x.Left.String() + " + " + x.Right.String()
	case '-':
		return x.Left.String() + " - " + wrap(x.Right, rp <= precSum)
	case '*', '/':
		return wrap(x.Left, lp < precProduct) + string(x.Op) + wrap(x.Right, rp <= precProduct)
	case '^':
		return wrap(x.Left, lp <= precPower) + "^" + wrap(x.Right, rp < precPower)
	}
	return "?"
}

func (x *Binary) hasVar() bool { return x.Left.hasVar() || x.Right.hasVar() }

func (x *Binary) prec() int {
	switch x.Op {
	case '+', '-':
		return precSum
	case '*', '/':
		return precProduct
	default:
		return precPower
	}
}

// Factorial is the postfix x!.
type Factorial struct {
	X Expr
}

func (x *Factorial) Eval(n int64) (Value, error) {
	v, err := x.X.Eval(n)
	if err != nil {
		return Value{}, err
	}
	return factorial(v)
}

func (x *Factorial) String() string { return wrap(x.X, x.X.prec() < precAtom) + "!" }
func (x *Factorial) hasVar() bool   { return x.X.hasVar() }
func (x *Factorial) prec() int      { return precPostfix }

// Call is a named function application.
type Call struct {
	Fn   string
	Args []Expr
}

func (x *Call) Eval(n int64) (Value, error) {
	fn, ok := functions[x.Fn]
	if !ok {
		return Value{}, fmt.Errorf("%w: unknown function %s", ErrEval, x.Fn)
	}
	args := make([]Value, len(x.Args))
	for i, a := range x.Args {
		v, err := a.Eval(n)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return fn.eval(args)
}

func (x *Call) String() string {
	parts := make([]string, len(x.Args))
	for i, a := range x.Args {
		parts[i] = a.String()
	}
	return x.Fn + "(" + strings.Join(parts, ", ") + ")"
}

func (x *Call) hasVar() bool {
	for _, a := range x.Args {
		if a.hasVar() {
			return true
		}
	}
	return false
}

func (x *Call) prec() int { return precAtom }

func wrap(e Expr, paren bool) string {
	if paren {
		return "(" + e.String() + ")"
	}
	return e.String()
}

type function struct {
	arity int
	eval  func(args []Value) (Value, error)
}

// functions maps canonical names to implementations. aliases maps the
// spellings accepted by the parser onto canonical names.
var functions = map[string]function{
	"binomial":  {2, func(a []Value) (Value, error) { return binomial(a[0], a[1]) }},
	"factorial": {1, func(a []Value) (Value, error) { return factorial(a[0]) }},
	"sqrt":      {1, func(a []Value) (Value, error) { return sqrt(a[0]) }},
	"floor":     {1, func(a []Value) (Value, error) { return floorCeil(a[0], false) }},
	"ceil":      {1, func(a []Value) (Value, error) { return floorCeil(a[0], true) }},
	"abs":       {1, func(a []Value) (Value, error) { return abs(a[0]), nil }},
	"fibonacci": {1, func(a []Value) (Value, error) { return fibLucas(a[0], false) }},
	"lucas":     {1, func(a []Value) (Value, error) { return fibLucas(a[0], true) }},
}

var aliases = map[string]string{
	"binomial":  "binomial",
	"Binomial":  "binomial",
	"C":         "binomial",
	"factorial": "factorial",
	"sqrt":      "sqrt",
	"floor":     "floor",
	"ceil":      "ceil",
	"ceiling":   "ceil",
	"abs":       "abs",
	"fibonacci": "fibonacci",
	"Fibonacci": "fibonacci",
	"F":         "fibonacci",
	"lucas":     "lucas",
	"Lucas":     "lucas",
	"L":         "lucas",
}

func factorial(v Value) (Value, error) {
	k, err := smallInt(v, "factorial", maxFactorial)
	if err != nil {
		return Value{}, err
	}
	if k < 0 {
		return Value{}, fmt.Errorf("%w: factorial of negative number", ErrEval)
	}
	if k < 2 {
		return IntValue(1), nil
	}
	f := new(big.Int).MulRange(1, k)
	return Value{rat: new(big.Rat).SetInt(f)}, nil
}

func binomial(nv, kv Value) (Value, error) {
	n, err := smallInt(nv, "binomial", maxFactorial)
	if err != nil {
		return Value{}, err
	}
	k, err := smallInt(kv, "binomial", maxFactorial)
	if err != nil {
		return Value{}, err
	}
	if k < 0 {
		return IntValue(0), nil
	}
	if n >= 0 {
		if k > n {
			return IntValue(0), nil
		}
		return Value{rat: new(big.Rat).SetInt(new(big.Int).Binomial(n, k))}, nil
	}
	// binomial(-m, k) = (-1)^k * binomial(m + k - 1, k)
	b := new(big.Int).Binomial(k-n-1, k)
	if k%2 == 1 {
		b.Neg(b)
	}
	return Value{rat: new(big.Rat).SetInt(b)}, nil
}

func sqrt(v Value) (Value, error) {
	if v.rat != nil {
		if v.rat.Sign() < 0 {
			return Value{}, fmt.Errorf("%w: square root of negative number", ErrEval)
		}
		if r, ok := exactSqrt(v.rat); ok {
			return Value{rat: r}, nil
		}
	}
	f := v.Float64()
	if f < 0 {
		return Value{}, fmt.Errorf("%w: square root of negative number", ErrEval)
	}
	return checkFloat(math.Sqrt(f))
}

func floorCeil(v Value, ceil bool) (Value, error) {
	if v.rat != nil {
		q, m := new(big.Int).DivMod(v.rat.Num(), v.rat.Denom(), new(big.Int))
		if ceil && m.Sign() != 0 {
			q.Add(q, big.NewInt(1))
		}
		return Value{rat: new(big.Rat).SetInt(q)}, nil
	}
	f := math.Floor(v.float)
	if ceil {
		f = math.Ceil(v.float)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite result", ErrEval)
	}
	r := new(big.Rat)
	r.SetFloat64(f)
	return Value{rat: r}, nil
}

func abs(v Value) Value {
	if v.rat != nil {
		return Value{rat: new(big.Rat).Abs(v.rat)}
	}
	return FloatValue(math.Abs(v.float))
}

// fibLucas computes F(k) or L(k), extended to negative indices.
func fibLucas(v Value, lucas bool) (Value, error) {
	name := "fibonacci"
	if lucas {
		name = "lucas"
	}
	k, err := smallInt(v, name, maxFibonacci)
	if err != nil {
		return Value{}, err
	}
	m := k
	if m < 0 {
		m = -m
	}
	a, b := big.NewInt(0), big.NewInt(1)
	if lucas {
		a, b = big.NewInt(2), big.NewInt(1)
	}
	for i := int64(0); i < m; i++ {
		a, b = b, new(big.Int).Add(a, b)
	}
	if k < 0 {
		// F(-m) = (-1)^(m+1) F(m); L(-m) = (-1)^m L(m)
		odd := m%2 == 1
		if (!lucas && !odd) || (lucas && odd) {
			a.Neg(a)
		}
	}
	return Value{rat: new(big.Rat).SetInt(a)}, nil
}
