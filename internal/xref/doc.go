// Package xref finds sequences whose formulas are symbolically identical.
//
// The comparison is all-pairs over the corpus of parsed formulas, so a full
// pass over a large catalog spans many invocations. Progress is kept in a
// Snapshot: after every id is compared with all later ids its completion is
// journalled and fsynced, and an interrupted run picks up at the first
// incomplete id. Pairs are only handed to the equality check when their
// formulas share a value fingerprint.
package xref
