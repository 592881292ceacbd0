package oracle

import (
	"context"
	"math/big"

	"github.com/roach88/seqmine/internal/symbolic"
)

// Field is the numeric field a guess is carried out over.
type Field string

const (
	ZZ Field = "ZZ"
	QQ Field = "QQ"
)

// Fields is the order in which the Adapter tries numeric fields.
var Fields = []Field{ZZ, QQ}

// Solution is a guesser's answer. Found with an empty ClosedForm means the
// guesser recognised the sequence but could not render a formula.
type Solution struct {
	Found      bool
	ClosedForm string
}

// Guesser proposes closed forms.
type Guesser interface {
	// Algorithms lists the supported algorithm names in preferred order.
	Algorithms() []string

	// Guess tries one algorithm over one field. An error means the call
	// itself failed; "nothing found" is a zero Solution and nil error.
	Guess(ctx context.Context, terms []*big.Int, algorithm string, field Field) (Solution, error)
}

// Symbolic is the expression layer used for novelty and cross-references.
type Symbolic interface {
	ToExpression(text string) (symbolic.Expr, error)
	Simplify(e symbolic.Expr) (string, error)
	Equal(a, b symbolic.Expr) bool
}

// Guess is a successful, rendered closed form.
type Guess struct {
	ClosedForm string
	Algorithm  string
	Field      Field
}

// NativeSymbolic implements Symbolic with the symbolic package.
type NativeSymbolic struct{}

func (NativeSymbolic) ToExpression(text string) (symbolic.Expr, error) { return symbolic.Parse(text) }
func (NativeSymbolic) Simplify(e symbolic.Expr) (string, error)        { return symbolic.Simplify(e) }
func (NativeSymbolic) Equal(a, b symbolic.Expr) bool                   { return symbolic.Equal(a, b) }
