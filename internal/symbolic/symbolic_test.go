package symbolic

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalInt(t *testing.T, text string, n int64) string {
	t.Helper()
	e, err := Parse(text)
	require.NoError(t, err, "Parse(%q)", text)
	v, err := e.Eval(n)
	require.NoError(t, err, "Eval(%q, %d)", text, n)
	i, ok := v.RoundInt()
	require.True(t, ok, "value %s is not integral", v)
	return i.String()
}

func TestParse_RoundTripsCanonicalForm(t *testing.T) {
	cases := map[string]string{
		"2^n - 1":      "2^n - 1",
		"2^n-1":        "2^n - 1",
		"n(n+1)/2":     "n*(n + 1)/2",
		"(-2)^n":       "(-2)^n",
		"-2^n":         "-2^n",
		"(n+1)!":       "(n + 1)!",
		"C(2n, n)":     "binomial(2*n, n)",
		"Fibonacci(n)": "fibonacci(n)",
		"3 ** n":       "3^n",
		"2^(n-1)":      "2^(n - 1)",
		"n - (n - 1)":  "n - (n - 1)",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			e, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, want, e.String())

			again, err := Parse(e.String())
			require.NoError(t, err)
			assert.Equal(t, want, again.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		"a(n-1) + a(n-2)",
		"2^",
		"n +* 2",
		"binomial(n)",
		"x + 1",
		"(n + 1",
		"n $ 2",
		"",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestEval(t *testing.T) {
	assert.Equal(t, "7", evalInt(t, "2n+1", 3))
	assert.Equal(t, "10", evalInt(t, "n(n+1)/2", 4))
	assert.Equal(t, "120", evalInt(t, "n!", 5))
	assert.Equal(t, "20", evalInt(t, "binomial(2n, n)", 3))
	assert.Equal(t, "10", evalInt(t, "C(n,2)", 5))
	assert.Equal(t, "-4", evalInt(t, "-2^n", 2))
	assert.Equal(t, "4", evalInt(t, "(-2)^n", 2))
	assert.Equal(t, "2", evalInt(t, "0.5*n", 4))
	assert.Equal(t, "55", evalInt(t, "fibonacci(n)", 10))
	assert.Equal(t, "1", evalInt(t, "fibonacci(n)", -1))
	assert.Equal(t, "-1", evalInt(t, "fibonacci(n)", -2))
	assert.Equal(t, "2", evalInt(t, "lucas(n)", 0))
	assert.Equal(t, "4", evalInt(t, "sqrt(16)", 0))
	assert.Equal(t, "3", evalInt(t, "floor(n/2)", 7))
	assert.Equal(t, "4", evalInt(t, "ceil(n/2)", 7))
	assert.Equal(t, "1024", evalInt(t, "2^n", 10))
	assert.Equal(t, "1", evalInt(t, "2*2^(n-1)", 0))
}

func TestEval_Inexact(t *testing.T) {
	e := MustParse("sqrt(2)*n")
	v, err := e.Eval(2)
	require.NoError(t, err)
	assert.False(t, v.IsExact())
	assert.InDelta(t, 2.8284271, v.Float64(), 1e-6)

	_, ok := v.Int()
	assert.False(t, ok)
}

func TestEval_Errors(t *testing.T) {
	for _, tc := range []struct {
		text string
		n    int64
	}{
		{"1/(n-3)", 3},
		{"(n-4)!", 2},
		{"sqrt(n-5)", 1},
		{"(1/2)!", 0},
		{"0^(-1)", 0},
	} {
		_, err := MustParse(tc.text).Eval(tc.n)
		assert.ErrorIs(t, err, ErrEval, "%s at %d", tc.text, tc.n)
	}
}

func TestValue_RoundInt(t *testing.T) {
	i, ok := FloatValue(2.9999999).RoundInt()
	require.True(t, ok)
	assert.Equal(t, "3", i.String())

	_, ok = ExactValue(big.NewRat(1, 2)).RoundInt()
	assert.False(t, ok, "exact non-integers must not be rounded")

	i, ok = IntValue(-7).RoundInt()
	require.True(t, ok)
	assert.Equal(t, "-7", i.String())
}

func TestEqual(t *testing.T) {
	binet := "(((1+sqrt(5))/2)^n - ((1-sqrt(5))/2)^n)/sqrt(5)"
	cases := []struct {
		a, b string
		want bool
	}{
		{"2^n", "2^(n+1)/2", true},
		{"n(n+1)/2", "binomial(n+1, 2)", true},
		{"fibonacci(n)", binet, true},
		{"n", "n + 1", false},
		{"1/(n-3)", "1/(n-3)", true},
		{"1/(n-3)", "n", false},
		{"n^2", "n^2 + 0.000001", false},
	}
	for _, tc := range cases {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(MustParse(tc.a), MustParse(tc.b)))
		})
	}
}

func TestSimplify(t *testing.T) {
	cases := map[string]string{
		"n(n+1)/2":         "1/2*n^2 + 1/2*n",
		"(n+1)^2 - 2n - 1": "n^2",
		"2^n - 1":          "2^n - 1",
		"3*2":              "6",
		"1*2^n + 0":        "2^n",
		"-(-(2^n))":        "2^n",
		"(n-1)*(n+1)":      "n^2 - 1",
		"binomial(n, 2)":   "1/2*n^2 - 1/2*n",
		"fibonacci(n) * 1": "fibonacci(n)",
		"-n^2 + 3n":        "-n^2 + 3*n",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := Simplify(MustParse(in))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint(MustParse("2^n")), Fingerprint(MustParse("2*2^(n-1)")))
	assert.NotEqual(t, Fingerprint(MustParse("2^n")), Fingerprint(MustParse("3^n")))

	binet := MustParse("(((1+sqrt(5))/2)^n - ((1-sqrt(5))/2)^n)/sqrt(5)")
	assert.Equal(t, Fingerprint(MustParse("fibonacci(n)")), Fingerprint(binet))
	assert.Equal(t, "!,1,0.5", Fingerprint(MustParse("1/n"))[:7])
}

func TestFitPolynomial(t *testing.T) {
	values := make([]*big.Rat, 6)
	for i := range values {
		values[i] = big.NewRat(int64(i*i+1), 1)
	}
	p, ok := FitPolynomial(values, 5)
	require.True(t, ok)
	assert.Equal(t, 2, p.Degree())
	assert.True(t, p.IsIntegral())
	assert.Equal(t, "n^2 + 1", p.Expr().String())
	assert.Equal(t, "50", p.At(7).RatString())

	// three points cannot confirm a quadratic
	_, ok = FitPolynomial(values[:3], 5)
	assert.False(t, ok)

	zeros := []*big.Rat{new(big.Rat), new(big.Rat), new(big.Rat)}
	p, ok = FitPolynomial(zeros, 3)
	require.True(t, ok)
	assert.Equal(t, "0", p.Expr().String())
}
