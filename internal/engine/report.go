package engine

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/seqmine/internal/ir"
)

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

// Tally holds the running counters printed with every discovery.
type Tally struct {
	Processed int
	Found     int
	New       int
}

// ratio returns a/b, or zero when b is zero.
func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Reporter writes the status stream: one block per novel discovery and
// short progress and summary lines. A quiet Reporter writes nothing except
// the final abort diagnostic.
type Reporter struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, quiet bool) *Reporter {
	return &Reporter{w: w, quiet: quiet}
}

// Discovery prints the block announcing a novel closed form.
func (r *Reporter) Discovery(rec ir.SequenceRecord, t Tally) {
	if r == nil || r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, heavyRule)
	fmt.Fprintf(r.w, "ID: %s\n", rec.ID)
	fmt.Fprintf(r.w, "NAME: %s\n", rec.Name)
	fmt.Fprintln(r.w, lightRule)
	fmt.Fprintf(r.w, "CLOSED_FORM: %s len: %d\n", rec.ClosedForm, len(rec.ClosedForm))
	fmt.Fprintf(r.w, "SIMP_CLOSED_FORM: %s len: %d\n", rec.SimplifiedClosedForm, len(rec.SimplifiedClosedForm))
	fmt.Fprintln(r.w, lightRule)
	fmt.Fprintf(r.w, "PROC: %d, FOUND: %d, NEW: %d, RATIO (P/F): %.3f, RATIO (F/N): %.3f\n",
		t.Processed, t.Found, t.New, ratio(t.Processed, t.Found), ratio(t.Found, t.New))
}

// Progress prints a one-line tally.
func (r *Reporter) Progress(last ir.ID, t Tally) {
	if r == nil || r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "progress: at %s, PROC: %d, FOUND: %d, NEW: %d\n", last, t.Processed, t.Found, t.New)
}

// Abort prints the diagnostic of a failure-budget abort. It is printed even
// when quiet.
func (r *Reporter) Abort(failures int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "Failed last: %d sequences...\n", failures)
}

// Summary prints the end-of-run totals.
func (r *Reporter) Summary(s Summary) {
	if r == nil || r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "run %s %s: processed %d, found %d, new %d, verified %d, failures %d, skipped %d, allocated %d\n",
		s.RunID, s.Status, s.Processed, s.Found, s.New, s.Verified, s.Failures, s.Blacklisted, s.Allocated)
}
