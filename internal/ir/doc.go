// Package ir provides the core record types shared by every seqmine package.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal, which keeps
// it the foundational layer with no circular dependencies.
//
// Key conventions:
//   - Identifiers are fixed-width "A" + 6 digits (ID, FormatID, ParseID)
//   - Lifecycle states only move forward (State)
//   - All JSON tags use snake_case
package ir
