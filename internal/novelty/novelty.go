// Package novelty decides whether a guessed closed form says something the
// catalog entry does not already say.
//
// A guess is a novelty candidate when its text (or its distinct simplified
// text) appears neither in the entry's name nor in its serialized formula
// list. The candidate is then suppressed when the guess is symbolically
// equal to any formula the entry already states in the canonical
// "a(n) = <expr>." form. Constant guesses are never novel.
package novelty

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/symbolic"
)

// Symbolic is the part of the oracle adapter the classifier needs. Both
// methods report failure instead of returning errors.
type Symbolic interface {
	ToExpression(text string) (symbolic.Expr, bool)
	Simplify(e symbolic.Expr) (string, bool)
	Equal(a, b symbolic.Expr) bool
}

// Input is one classified entry.
type Input struct {
	Name string

	// Formulas is the catalog's formula list; FormulaText is its serialized
	// form as stored and searched.
	Formulas    []string
	FormulaText string

	ClosedForm           string
	SimplifiedClosedForm string
}

// Result carries the derived fields written back to the job store.
type Result struct {
	IsNew bool

	// RegexMatched is set when the guess equals a formula extracted from the
	// entry's own text.
	RegexMatched bool

	// ParsedFormulas are the canonical renderings of every known formula
	// that parsed, in first-seen order without duplicates.
	ParsedFormulas []string
}

// Classifier applies the novelty rules.
type Classifier struct {
	sym    Symbolic
	logger *slog.Logger
}

// New returns a Classifier using sym for parsing and equality.
func New(sym Symbolic) *Classifier {
	return &Classifier{sym: sym, logger: slog.Default()}
}

type known struct {
	expr      symbolic.Expr
	canonical string
}

// Classify returns the novelty verdict for in. Known formulas are extracted
// even when there is no closed form, so the cross-reference pass sees every
// entry's formulas.
func (c *Classifier) Classify(in Input) Result {
	formulas := c.knownFormulas(in)
	res := Result{}
	for _, k := range formulas {
		res.ParsedFormulas = append(res.ParsedFormulas, k.canonical)
	}

	if in.ClosedForm == "" {
		return res
	}
	guess, parsed := c.sym.ToExpression(in.ClosedForm)
	if parsed && symbolic.IsConstant(guess) {
		return res
	}
	if !parsed && isIntegerLiteral(in.ClosedForm) {
		return res
	}

	res.IsNew = c.candidate(in)

	if parsed {
		for _, k := range formulas {
			if c.sym.Equal(guess, k.expr) {
				res.RegexMatched = true
				res.IsNew = false
				c.logger.Debug("guess matches known formula", "closed_form", in.ClosedForm, "known", k.canonical)
				break
			}
		}
	}
	return res
}

// candidate is the textual containment test.
func (c *Classifier) candidate(in Input) bool {
	name := ir.NormalizeText(in.Name)
	text := ir.NormalizeText(in.FormulaText)
	absent := func(s string) bool {
		s = ir.NormalizeText(s)
		return !strings.Contains(name, s) && !strings.Contains(text, s)
	}
	if absent(in.ClosedForm) {
		return true
	}
	scf := in.SimplifiedClosedForm
	return scf != "" && scf != in.ClosedForm && absent(scf)
}

func (c *Classifier) knownFormulas(in Input) []known {
	var out []known
	seen := make(map[string]bool)
	lines := append([]string{in.Name}, in.Formulas...)
	for _, line := range lines {
		for _, text := range ExtractFormulas(line) {
			e, ok := c.sym.ToExpression(text)
			if !ok {
				continue
			}
			canonical, ok := c.sym.Simplify(e)
			if !ok {
				canonical = e.String()
			}
			if seen[canonical] {
				continue
			}
			seen[canonical] = true
			out = append(out, known{expr: e, canonical: canonical})
		}
	}
	return out
}

// formulaPattern matches "a(n) = <rhs>." at the start of a line or after a
// separator, capturing the right-hand side up to the terminating period.
var formulaPattern = regexp.MustCompile(`(?:^|[\s:;])a\(n\)\s*=\s*(.+?)\s*(?:\.\s|\.$|;|$)`)

// qualifiers end a right-hand side early.
var qualifiers = []string{" for ", " if ", " when ", " where ", " with ", ", n ", " (n "}

// ExtractFormulas returns the candidate right-hand sides stated in line.
// Chained alternatives such as "a(n) = x = y." yield one candidate each.
func ExtractFormulas(line string) []string {
	var out []string
	for _, m := range formulaPattern.FindAllStringSubmatch(line, -1) {
		rhs := m[1]
		for _, q := range qualifiers {
			if i := strings.Index(rhs, q); i >= 0 {
				rhs = rhs[:i]
			}
		}
		for _, alt := range strings.Split(rhs, " = ") {
			alt = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(alt), ",."))
			if alt != "" {
				out = append(out, alt)
			}
		}
	}
	return out
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
