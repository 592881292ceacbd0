// Package engine drives mining runs over the job store.
//
// Miner is the processing driver: a single goroutine walks the pending ids
// in order, resolving each catalog entry cache-first, guessing a closed
// form, classifying its novelty, verifying it and writing the row through
// a commit batch. Consecutive fetch failures are counted against a
// FailureBudget; reaching the limit aborts the run with ErrTooManyFailures.
// Ids the catalog marks as allocated are evicted from the cache and left
// pending.
//
// Verifier re-runs the verification pass over stored closed forms, and
// Downloader fills the content cache for an id range with a bounded number
// of concurrent fetches.
//
// Every run is recorded in the runs table under a UUIDv7 id. Discoveries
// and progress go to the Reporter's status stream; diagnostics go to slog.
package engine
