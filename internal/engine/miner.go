package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/roach88/seqmine/internal/blacklist"
	"github.com/roach88/seqmine/internal/cache"
	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/metrics"
	"github.com/roach88/seqmine/internal/novelty"
	"github.com/roach88/seqmine/internal/oracle"
	"github.com/roach88/seqmine/internal/store"
	"github.com/roach88/seqmine/internal/symbolic"
	"github.com/roach88/seqmine/internal/verify"
)

// Resolver returns catalog documents, from the content cache when possible.
// Implemented by cache.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, id ir.ID) (*catalog.Document, cache.Origin, error)
	Invalidate(id ir.ID) (bool, error)
}

// Oracle guesses closed forms and exposes the symbolic layer.
// Implemented by oracle.Adapter.
type Oracle interface {
	Guess(ctx context.Context, terms []*big.Int) (oracle.Guess, bool)
	ToExpression(text string) (symbolic.Expr, bool)
	Simplify(e symbolic.Expr) (string, bool)
	Equal(a, b symbolic.Expr) bool
}

// DefaultCommitEvery is the number of rows written per durable commit.
const DefaultCommitEvery = 10

// DefaultProgressEvery is the number of processed rows between progress lines.
const DefaultProgressEvery = 100

// Options selects what a Miner run processes.
type Options struct {
	// Reprocess revisits fetched rows that have no closed form.
	Reprocess bool

	// IgnoreBlacklist processes blacklisted ids too.
	IgnoreBlacklist bool

	// CommitEvery bounds the rows lost on a crash (default 10).
	CommitEvery int

	// MaxConsecutiveFailures is the failure budget (default 10).
	MaxConsecutiveFailures int

	// ProgressEvery spaces progress lines (default 100).
	ProgressEvery int
}

func (o Options) withDefaults() Options {
	if o.CommitEvery <= 0 {
		o.CommitEvery = DefaultCommitEvery
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	return o
}

// Summary is the outcome of one run.
type Summary struct {
	RunID       string `json:"run_id"`
	Mode        string `json:"mode"`
	Status      string `json:"status"`
	Processed   int    `json:"processed"`
	Found       int    `json:"found"`
	New         int    `json:"new"`
	Verified    int    `json:"verified"`
	Failures    int    `json:"failures"`
	Blacklisted int    `json:"blacklisted"`
	Allocated   int    `json:"allocated"`
	FromCache   int    `json:"from_cache"`
	FromNetwork int    `json:"from_network"`
}

func (s Summary) tally() Tally {
	return Tally{Processed: s.Processed, Found: s.Found, New: s.New}
}

// Miner is the processing driver.
//
// It walks the job store's pending ids in order on a single goroutine: for
// each id it resolves the catalog entry, guesses a closed form, classifies
// and verifies it and queues the row. Rows are committed every CommitEvery
// rows and when the run ends, so the commit is the only durability
// boundary and no row is ever half written.
type Miner struct {
	store      *store.Store
	resolver   Resolver
	oracle     Oracle
	classifier *novelty.Classifier
	blacklist  blacklist.Set
	opts       Options

	reporter *Reporter
	metrics  *metrics.Metrics
	runIDs   RunIDGenerator
	clock    Clock
	logger   *slog.Logger
}

// MinerOption configures optional collaborators.
type MinerOption func(*Miner)

// WithReporter sets the status stream writer.
func WithReporter(r *Reporter) MinerOption {
	return func(m *Miner) { m.reporter = r }
}

// WithMetrics records run metrics.
func WithMetrics(mt *metrics.Metrics) MinerOption {
	return func(m *Miner) { m.metrics = mt }
}

// WithRunIDs overrides the run id generator.
func WithRunIDs(g RunIDGenerator) MinerOption {
	return func(m *Miner) { m.runIDs = g }
}

// WithClock overrides the clock used for run rows.
func WithClock(c Clock) MinerOption {
	return func(m *Miner) { m.clock = c }
}

// NewMiner creates a Miner. bl is the blacklist assembled at startup.
func NewMiner(st *store.Store, res Resolver, orc Oracle, bl blacklist.Set, opts Options, mopts ...MinerOption) *Miner {
	m := &Miner{
		store:      st,
		resolver:   res,
		oracle:     orc,
		classifier: novelty.New(orc),
		blacklist:  bl,
		opts:       opts.withDefaults(),
		runIDs:     UUIDv7Generator{},
		clock:      SystemClock{},
		logger:     slog.Default(),
	}
	for _, o := range mopts {
		o(m)
	}
	return m
}

// Run processes pending ids until none are left, the failure budget trips
// or ctx is cancelled. Rows queued before the stop are committed in every
// case. The returned error wraps ErrTooManyFailures on a budget abort and
// ctx.Err() on cancellation.
func (m *Miner) Run(ctx context.Context) (Summary, error) {
	mode := "process"
	if m.opts.Reprocess {
		mode = "reprocess"
	}
	sum := Summary{RunID: m.runIDs.Generate(), Mode: mode, Status: store.RunRunning}
	run := store.Run{ID: sum.RunID, Mode: mode, StartedAt: m.clock.Now()}
	if err := m.store.BeginRun(ctx, run); err != nil {
		return sum, err
	}
	m.logger.Info("run started", "run", sum.RunID, "mode", mode, "blacklist", m.blacklist.Len())

	runErr := m.loop(ctx, &sum)

	sum.Status = store.RunDone
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		sum.Status = store.RunCanceled
	default:
		sum.Status = store.RunFailed
	}
	var fe *FailureError
	if errors.As(runErr, &fe) {
		m.reporter.Abort(fe.Failures)
	}

	run.FinishedAt = m.clock.Now()
	run.Processed, run.Found, run.New, run.Failures = sum.Processed, sum.Found, sum.New, sum.Failures
	run.Status = sum.Status
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := m.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		m.logger.Error("finish run", "run", sum.RunID, "error", err)
	}
	m.reporter.Summary(sum)
	m.logger.Info("run finished", "run", sum.RunID, "status", sum.Status,
		"processed", sum.Processed, "found", sum.Found, "new", sum.New, "failures", sum.Failures)
	return sum, runErr
}

func (m *Miner) loop(ctx context.Context, sum *Summary) (err error) {
	batch := m.store.NewBatch(m.opts.CommitEvery)
	defer func() {
		if ferr := batch.Flush(context.WithoutCancel(ctx)); ferr != nil && err == nil {
			err = ferr
		}
	}()

	budget := NewFailureBudget(m.opts.MaxConsecutiveFailures)
	cursor := m.store.Pending(m.opts.Reprocess)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, ok, err := cursor.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !m.opts.IgnoreBlacklist && m.blacklist.Contains(id) {
			sum.Blacklisted++
			m.metrics.Processed("blacklisted")
			continue
		}

		doc, origin, err := m.resolver.Resolve(ctx, id)
		var entry *catalog.Entry
		if err == nil {
			entry, err = doc.First()
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sum.Failures++
			m.metrics.Processed("failed")
			m.logger.Warn("fetch failed", "id", id, "streak", budget.Current()+1, "error", err)
			abort := budget.Fail(id, err)
			m.metrics.ConsecutiveFailures(budget.Current())
			if abort != nil {
				return abort
			}
			continue
		}
		budget.Succeed()
		m.metrics.ConsecutiveFailures(0)
		if origin == cache.FromCache {
			sum.FromCache++
		} else {
			sum.FromNetwork++
		}

		if entry.IsAllocated() {
			if _, err := m.resolver.Invalidate(id); err != nil {
				m.logger.Warn("invalidate allocated entry", "id", id, "error", err)
			}
			sum.Allocated++
			m.metrics.Processed("allocated")
			m.logger.Debug("skipping allocated id", "id", id)
			continue
		}

		rec := m.process(ctx, id, entry)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := batch.Add(ctx, rec); err != nil {
			return fmt.Errorf("store %s: %w", id, err)
		}
		m.count(sum, rec)
		if sum.Processed%m.opts.ProgressEvery == 0 {
			m.reporter.Progress(id, sum.tally())
		}
	}
}

func (m *Miner) count(sum *Summary, rec ir.SequenceRecord) {
	sum.Processed++
	outcome := "unsolved"
	if rec.Solved() {
		sum.Found++
		outcome = "solved"
	}
	if rec.Verified != nil && *rec.Verified {
		sum.Verified++
	}
	if rec.IsNew {
		sum.New++
		outcome = "new"
		m.reporter.Discovery(rec, sum.tally())
	}
	m.metrics.Processed(outcome)
}

// process derives every field of the row for a fetched entry.
func (m *Miner) process(ctx context.Context, id ir.ID, entry *catalog.Entry) ir.SequenceRecord {
	rec := ir.SequenceRecord{
		ID:              id,
		Name:            entry.Name,
		Data:            entry.Data,
		Formula:         entry.Formula,
		Keyword:         ir.ParseKeyword(entry.Keyword),
		CrossReferences: entry.CrossReferences(id),
		State:           ir.StateGuessed,
	}

	terms, err := entry.Terms()
	if err != nil {
		m.logger.Debug("unparsable data", "id", id, "error", err)
		terms = nil
	}
	if g, ok := m.oracle.Guess(ctx, terms); ok {
		rec.ClosedForm = g.ClosedForm
		rec.AlgorithmUsed = g.Algorithm
		rec.NumericFieldUsed = string(g.Field)
		if expr, ok := m.oracle.ToExpression(g.ClosedForm); ok {
			if s, ok := m.oracle.Simplify(expr); ok && s != g.ClosedForm {
				rec.SimplifiedClosedForm = s
			}
			passed := verify.Verify(expr, terms)
			rec.Verified = ir.BoolPtr(passed)
			if passed {
				rec.State = ir.StateVerified
			}
		} else {
			rec.Verified = ir.BoolPtr(false)
		}
	}

	res := m.classifier.Classify(novelty.Input{
		Name:                 entry.Name,
		Formulas:             entry.Formula,
		FormulaText:          entry.FormulaText(),
		ClosedForm:           rec.ClosedForm,
		SimplifiedClosedForm: rec.SimplifiedClosedForm,
	})
	rec.IsNew = res.IsNew
	rec.RegexMatched = res.RegexMatched
	rec.ParsedFormulas = res.ParsedFormulas
	return rec
}
