package symbolic

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse converts formula text in the catalog's conventional syntax into an
// expression in n.
//
// Accepted: integer and decimal literals, the variable n, + - * / ^ (and **),
// unary minus, postfix !, implicit multiplication ("2n", "n(n+1)"), and the
// functions binomial/C, factorial, sqrt, floor, ceil/ceiling, abs,
// fibonacci/F and lucas/L. Anything else, including references to other
// terms such as a(n-1), is rejected with ErrParse.
func Parse(text string) (Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: text}
	e, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return e, nil
}

// MustParse is Parse for literals known to be valid; it panics on error.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

func tokenize(s string) ([]token, error) {
	s = strings.NewReplacer("−", "-", "×", "*", "·", "*", "**", "^").Replace(s)
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			seenDot := false
			for i < len(rs) && (unicode.IsDigit(rs[i]) || (rs[i] == '.' && !seenDot)) {
				if rs[i] == '.' {
					// a trailing period ends a sentence, not a number
					if i+1 >= len(rs) || !unicode.IsDigit(rs[i+1]) {
						break
					}
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{kind: tokNum, text: string(rs[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), pos: start})
		case strings.ContainsRune("+-*/^!(),", r):
			toks = append(toks, token{kind: tokOp, text: string(r), pos: i})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrParse, r, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(rs)}), nil
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s in %q", ErrParse, fmt.Sprintf(format, args...), p.src)
}

// sum := product (('+' | '-') product)*
func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text[0]
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// product := unary (('*' | '/' | implicit) unary)*
func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch {
		case p.isOp("*") || p.isOp("/"):
			op = p.next().text[0]
		case p.startsPrimary():
			op = '*'
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) startsPrimary() bool {
	t := p.peek()
	return t.kind == tokNum || t.kind == tokIdent || (t.kind == tokOp && t.text == "(")
}

// unary := '-' unary | '+' unary | power
func (p *parser) parseUnary() (Expr, error) {
	if p.isOp("-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Neg{X: x}, nil
	}
	if p.isOp("+") {
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

// power := postfix ('^' unary)?   right associative through unary
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.isOp("^") {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: '^', Left: base, Right: exp}, nil
	}
	return base, nil
}

// postfix := primary '!'*
func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp("!") {
		p.next()
		x = &Factorial{X: x}
	}
	return x, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, p.errorf("bad number %q", t.text)
		}
		return &Num{Val: r}, nil
	case tokIdent:
		if t.text == "n" {
			return Var{}, nil
		}
		name, ok := aliases[t.text]
		if !ok || !p.isOp("(") {
			return nil, p.errorf("unknown identifier %q", t.text)
		}
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if want := functions[name].arity; len(args) != want {
			return nil, p.errorf("%s takes %d argument(s), got %d", name, want, len(args))
		}
		return &Call{Fn: name, Args: args}, nil
	case tokOp:
		if t.text == "(" {
			e, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			if !p.isOp(")") {
				return nil, p.errorf("missing )")
			}
			p.next()
			return e, nil
		}
		return nil, p.errorf("unexpected %q", t.text)
	default:
		return nil, p.errorf("unexpected end of input")
	}
}

func (p *parser) parseArgs() ([]Expr, error) {
	var args []Expr
	if p.isOp(")") {
		p.next()
		return args, nil
	}
	for {
		a, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.isOp(",") {
			p.next()
			continue
		}
		if p.isOp(")") {
			p.next()
			return args, nil
		}
		return nil, p.errorf("expected , or )")
	}
}
