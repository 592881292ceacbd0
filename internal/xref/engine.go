package xref

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/seqmine/internal/blacklist"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/metrics"
	"github.com/roach88/seqmine/internal/store"
	"github.com/roach88/seqmine/internal/symbolic"
)

// Store is the job-store surface the engine reads and writes.
type Store interface {
	FormulaCorpus(ctx context.Context) ([]store.CorpusEntry, error)
	InsertCrossReference(ctx context.Context, x ir.CrossReference) (bool, error)
}

// Symbolic parses formulas and decides equality. Failures report false.
type Symbolic interface {
	ToExpression(text string) (symbolic.Expr, bool)
	Equal(a, b symbolic.Expr) bool
}

// Stats summarises one run.
type Stats struct {
	Corpus    int `json:"corpus"`    // ids with at least one parsable formula
	Skipped   int `json:"skipped"`   // ids already complete for this generation
	Completed int `json:"completed"` // ids completed by this run
	Compared  int `json:"compared"`  // expression pairs handed to Equal
	Matches   int `json:"matches"`   // matching pairs found, including ones already recorded
	Inserted  int `json:"inserted"`  // new cross-reference rows
}

// Engine finds pairs of sequences sharing a formula.
type Engine struct {
	store     Store
	sym       Symbolic
	blacklist blacklist.Set
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// SaveEvery bounds the journal by saving the snapshot after this many
	// completed ids. Zero saves only at the end of a run.
	SaveEvery int
}

// New returns an Engine. Blacklisted ids never take part in comparisons.
func New(st Store, sym Symbolic, bl blacklist.Set, m *metrics.Metrics) *Engine {
	return &Engine{
		store:     st,
		sym:       sym,
		blacklist: bl,
		metrics:   m,
		logger:    slog.Default(),
		SaveEvery: 1000,
	}
}

type formula struct {
	text        string
	expr        symbolic.Expr
	fingerprint string
}

type entry struct {
	id       ir.ID
	formulas []formula
}

// Run compares every pending pair of the corpus, recording matches and
// completions in snap. It can be interrupted through ctx at any point;
// completed ids are durable and the next run resumes after them.
func (e *Engine) Run(ctx context.Context, snap *Snapshot) (Stats, error) {
	var stats Stats
	corpus, err := e.store.FormulaCorpus(ctx)
	if err != nil {
		return stats, fmt.Errorf("xref: load corpus: %w", err)
	}
	entries := e.parse(corpus)
	stats.Corpus = len(entries)

	ids := make([]ir.ID, len(entries))
	for i, en := range entries {
		ids[i] = en.id
	}
	state := snap.State()
	gen, added := state.Advance(ids)
	if added {
		if err := snap.Save(); err != nil {
			return stats, err
		}
	}
	e.logger.Info("xref run starting", "corpus", len(entries), "generation", gen.Seq, "done", len(state.Done))

	buckets := make(map[string][]int)
	for i, en := range entries {
		for _, f := range en.formulas {
			if list := buckets[f.fingerprint]; len(list) == 0 || list[len(list)-1] != i {
				buckets[f.fingerprint] = append(list, i)
			}
		}
	}

	start := time.Now()
	sinceSave := 0
	for i, a := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if state.CompletedIn(a.id, gen.Seq) {
			stats.Skipped++
			continue
		}
		compared, err := e.compareWithLater(ctx, entries, i, buckets, state, &stats)
		e.metrics.XrefCompared(compared)
		if err != nil {
			return stats, err
		}
		if err := snap.Complete(a.id, gen.Seq); err != nil {
			return stats, err
		}
		stats.Completed++
		sinceSave++
		if e.SaveEvery > 0 && sinceSave >= e.SaveEvery {
			if err := snap.Save(); err != nil {
				return stats, err
			}
			sinceSave = 0
		}
	}
	if err := snap.Save(); err != nil {
		return stats, err
	}
	e.logger.Info("xref run finished",
		"completed", stats.Completed,
		"skipped", stats.Skipped,
		"compared", stats.Compared,
		"inserted", stats.Inserted,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// compareWithLater compares entries[i] with every later entry sharing a
// fingerprint that it has not been compared with yet.
func (e *Engine) compareWithLater(ctx context.Context, entries []entry, i int, buckets map[string][]int, state *State, stats *Stats) (int, error) {
	a := entries[i]
	var candidates []int
	for _, f := range a.formulas {
		list := buckets[f.fingerprint]
		at, _ := slices.BinarySearch(list, i+1)
		candidates = append(candidates, list[at:]...)
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	compared := 0
	for _, j := range candidates {
		b := entries[j]
		if state.Compared(a.id, b.id) {
			continue
		}
		fa, fb, ok, n := e.match(a, b)
		compared += n
		stats.Compared += n
		if !ok {
			continue
		}
		stats.Matches++
		e.metrics.XrefMatch()
		inserted, err := e.store.InsertCrossReference(ctx, ir.CrossReference{A: a.id, B: b.id, FormulaA: fa, FormulaB: fb})
		if err != nil {
			return compared, fmt.Errorf("xref: record %s-%s: %w", a.id, b.id, err)
		}
		if inserted {
			stats.Inserted++
			e.logger.Debug("cross-reference found", "a", a.id, "b", b.id, "formula", fa)
		}
	}
	return compared, nil
}

// match returns the first equal formula pair of a and b.
func (e *Engine) match(a, b entry) (fa, fb string, ok bool, compared int) {
	for _, x := range a.formulas {
		for _, y := range b.formulas {
			if x.fingerprint != y.fingerprint {
				continue
			}
			compared++
			if e.sym.Equal(x.expr, y.expr) {
				return x.text, y.text, true, compared
			}
		}
	}
	return "", "", false, compared
}

// parse turns the corpus into comparable entries, dropping blacklisted ids,
// unparsable formulas and duplicates within an id.
func (e *Engine) parse(corpus []store.CorpusEntry) []entry {
	entries := make([]entry, 0, len(corpus))
	for _, c := range corpus {
		if e.blacklist.Contains(c.ID) {
			continue
		}
		en := entry{id: c.ID}
		seen := make(map[string]bool)
		for _, text := range c.Expressions {
			expr, ok := e.sym.ToExpression(text)
			if !ok {
				continue
			}
			key := expr.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			en.formulas = append(en.formulas, formula{text: text, expr: expr, fingerprint: symbolic.Fingerprint(expr)})
		}
		if len(en.formulas) > 0 {
			entries = append(entries, en)
		}
	}
	slices.SortFunc(entries, func(x, y entry) int {
		switch {
		case x.id < y.id:
			return -1
		case x.id > y.id:
			return 1
		}
		return 0
	})
	return entries
}
