package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/seqmine/internal/metrics"
	"github.com/roach88/seqmine/internal/symbolic"
)

// Config tunes an Adapter. Zero values select the defaults.
type Config struct {
	// Algorithms restricts and orders the guesser's algorithms.
	Algorithms []string

	// PrefixTerms is the length of the pre-check prefix (default 10).
	PrefixTerms int

	// MinTerms is the fewest prefix terms worth guessing (default 8).
	MinTerms int

	// MemoSize bounds the memo (default 4096).
	MemoSize int

	// ItemTimeout bounds one Guess call, pre-check included. Zero disables.
	ItemTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PrefixTerms <= 0 {
		c.PrefixTerms = 10
	}
	if c.MinTerms <= 0 {
		c.MinTerms = 8
	}
	if c.MemoSize <= 0 {
		c.MemoSize = 4096
	}
	return c
}

type memoEntry struct {
	guess Guess
	ok    bool
}

// Adapter is the pipeline's only entry point to the oracle.
type Adapter struct {
	guesser    Guesser
	sym        Symbolic
	cfg        Config
	algorithms []string
	algoKey    string
	memo       *lru.Cache[string, memoEntry]
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewAdapter builds an Adapter. Unknown algorithm names in cfg are an
// error; an empty list selects everything the guesser supports.
func NewAdapter(g Guesser, sym Symbolic, cfg Config, m *metrics.Metrics) (*Adapter, error) {
	cfg = cfg.withDefaults()
	supported := g.Algorithms()
	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = supported
	}
	for _, name := range algorithms {
		if !containsString(supported, name) {
			return nil, fmt.Errorf("oracle: unknown algorithm %q (supported: %s)", name, strings.Join(supported, ", "))
		}
	}
	memo, err := lru.New[string, memoEntry](cfg.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("oracle: memo: %w", err)
	}
	if sym == nil {
		sym = NativeSymbolic{}
	}
	return &Adapter{
		guesser:    g,
		sym:        sym,
		cfg:        cfg,
		algorithms: algorithms,
		algoKey:    strings.Join(algorithms, "+"),
		memo:       memo,
		metrics:    m,
		logger:     slog.Default(),
	}, nil
}

// Guess finds a closed form for terms, or reports false.
//
// The first PrefixTerms terms are guessed first; only when that succeeds is
// the full list guessed. Results are memoised by the exact terms and the
// algorithm set, except for calls cut short by the context.
func (a *Adapter) Guess(ctx context.Context, terms []*big.Int) (Guess, bool) {
	prefix := terms
	if len(prefix) > a.cfg.PrefixTerms {
		prefix = prefix[:a.cfg.PrefixTerms]
	}
	if len(prefix) < a.cfg.MinTerms {
		return Guess{}, false
	}

	key := a.memoKey(terms)
	if e, ok := a.memo.Get(key); ok {
		a.metrics.OracleGuess("memo", 0)
		return e.guess, e.ok
	}

	if a.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ItemTimeout)
		defer cancel()
	}

	start := time.Now()
	g, ok := a.guessAll(ctx, prefix)
	if ok && len(terms) > len(prefix) {
		g, ok = a.guessAll(ctx, terms)
	}
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		a.logger.Debug("guess interrupted", "terms", len(terms), "error", err)
		a.metrics.OracleGuess("timeout", elapsed)
		return Guess{}, false
	}
	result := "absent"
	if ok {
		result = "found"
	}
	a.metrics.OracleGuess(result, elapsed)
	a.memo.Add(key, memoEntry{guess: g, ok: ok})
	return g, ok
}

func (a *Adapter) guessAll(ctx context.Context, terms []*big.Int) (Guess, bool) {
	for _, field := range Fields {
		for _, alg := range a.algorithms {
			if ctx.Err() != nil {
				return Guess{}, false
			}
			sol, err := a.guesser.Guess(ctx, terms, alg, field)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					a.logger.Debug("guesser error", "algorithm", alg, "field", field, "error", err)
				}
				continue
			}
			if sol.Found && sol.ClosedForm != "" {
				return Guess{ClosedForm: sol.ClosedForm, Algorithm: alg, Field: field}, true
			}
		}
	}
	return Guess{}, false
}

func (a *Adapter) memoKey(terms []*big.Int) string {
	var b strings.Builder
	b.WriteString(a.algoKey)
	b.WriteByte('|')
	for i, t := range terms {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

// MemoLen returns the number of memoised inputs.
func (a *Adapter) MemoLen() int { return a.memo.Len() }

// ToExpression parses text, reporting false on any failure.
func (a *Adapter) ToExpression(text string) (e symbolic.Expr, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("to_expression panicked", "text", text, "panic", r)
			e, ok = nil, false
		}
	}()
	e, err := a.sym.ToExpression(text)
	if err != nil || e == nil {
		return nil, false
	}
	return e, true
}

// Simplify renders a simplified form of e, reporting false on failure.
func (a *Adapter) Simplify(e symbolic.Expr) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("simplify panicked", "expr", e, "panic", r)
			s, ok = "", false
		}
	}()
	s, err := a.sym.Simplify(e)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// Equal reports symbolic equality; any failure counts as unequal.
func (a *Adapter) Equal(x, y symbolic.Expr) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			eq = false
		}
	}()
	return a.sym.Equal(x, y)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
