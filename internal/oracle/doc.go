// Package oracle wraps closed-form guessing and the symbolic layer behind a
// narrow contract the pipeline can rely on.
//
// A Guesser proposes a closed form for a list of terms using a named
// algorithm over a numeric field. The Adapter drives it: integer field
// first, then rationals, each over the configured algorithm order, with a
// cheap pre-check on a short prefix, a bounded memo and a per-item
// timeout. Failures of any kind come back as "absent", never as errors.
//
// Two guessers ship with the package. Native implements polynomial and
// C-finite (linear recurrence with constant coefficients) guessing in pure
// Go. Process drives an external helper over line-delimited JSON, so a full
// computer algebra system can be plugged in without touching the pipeline.
package oracle
