package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/store"
	"github.com/roach88/seqmine/internal/verify"
)

// VerifySummary is the outcome of a verify-only pass.
type VerifySummary struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Checked int    `json:"checked"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
}

// Verifier re-checks stored closed forms against the stored terms without
// touching the network or the guesser.
type Verifier struct {
	store  *store.Store
	oracle Oracle
	runIDs RunIDGenerator
	clock  Clock
	logger *slog.Logger
}

// NewVerifier creates a Verifier. Only the symbolic layer of orc is used.
func NewVerifier(st *store.Store, orc Oracle, runIDs RunIDGenerator, clock Clock) *Verifier {
	if runIDs == nil {
		runIDs = UUIDv7Generator{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Verifier{store: st, oracle: orc, runIDs: runIDs, clock: clock, logger: slog.Default()}
}

// Run verifies solved rows. Unless all is set, rows already judged are
// skipped. A closed form that cannot be parsed, or data that cannot be
// read as integers, fails verification.
func (v *Verifier) Run(ctx context.Context, all bool) (VerifySummary, error) {
	sum := VerifySummary{RunID: v.runIDs.Generate()}
	run := store.Run{ID: sum.RunID, Mode: "verify", StartedAt: v.clock.Now()}
	if err := v.store.BeginRun(ctx, run); err != nil {
		return sum, err
	}

	runErr := v.loop(ctx, all, &sum)

	sum.Status = store.RunDone
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		sum.Status = store.RunCanceled
	default:
		sum.Status = store.RunFailed
	}
	run.FinishedAt = v.clock.Now()
	run.Processed, run.Found, run.Failures = sum.Checked, sum.Passed, sum.Failed
	run.Status = sum.Status
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := v.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		v.logger.Error("finish run", "run", sum.RunID, "error", err)
	}
	v.logger.Info("verification finished", "checked", sum.Checked, "passed", sum.Passed, "failed", sum.Failed)
	return sum, runErr
}

func (v *Verifier) loop(ctx context.Context, all bool, sum *VerifySummary) error {
	cursor := v.store.PendingVerification(all)
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
		rec, err := v.store.Get(ctx, id)
		if err != nil {
			return err
		}

		passed := false
		if terms, err := catalog.ParseTerms(rec.Data); err != nil {
			v.logger.Debug("unparsable data", "id", id, "error", err)
		} else if expr, ok := v.oracle.ToExpression(rec.ClosedForm); !ok {
			v.logger.Debug("unparsable closed form", "id", id, "closed_form", rec.ClosedForm)
		} else {
			passed = verify.Verify(expr, terms)
		}

		if err := v.store.SetVerified(ctx, id, passed); err != nil {
			return fmt.Errorf("verify %s: %w", id, err)
		}
		sum.Checked++
		if passed {
			sum.Passed++
		} else {
			sum.Failed++
			v.logger.Info("verification failed", "id", id, "closed_form", rec.ClosedForm)
		}
	}
}
