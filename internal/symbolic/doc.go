// Package symbolic is the native symbolic layer behind the oracle: a parser
// for catalog formula text, exact rational evaluation with a float fallback,
// equality by evaluation, simplification to a canonical rendering, and
// polynomial fitting.
//
// Expressions have exactly one free variable, n. Evaluation stays exact
// (math/big) whenever possible so that verification and equality are not at
// the mercy of float rounding for ordinary integer sequences.
package symbolic
