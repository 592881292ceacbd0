// Package blacklist holds the set of identifiers a mining run skips.
//
// A Set is assembled once at startup from the built-in defaults, ids named
// in configuration, and the persisted blacklist table, then passed
// explicitly to every component that needs it. Nothing mutates it after
// Load returns.
package blacklist

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/seqmine/internal/ir"
)

// Defaults are always excluded: catalog entries whose terms are digits of a
// constant or otherwise carry no closed form worth guessing.
var Defaults = []ir.ID{
	"A000001", // number of groups of order n
	"A000796", // decimal expansion of Pi
	"A001113", // decimal expansion of e
	"A002193", // decimal expansion of sqrt(2)
}

// Set is an immutable set of identifiers. The zero value is empty.
type Set struct {
	ids map[ir.ID]struct{}
}

// New builds a set from ids.
func New(ids ...ir.ID) Set {
	s := Set{ids: make(map[ir.ID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is excluded.
func (s Set) Contains(id ir.ID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids.
func (s Set) Len() int { return len(s.ids) }

// IDs returns the members in ascending order.
func (s Set) IDs() []ir.ID {
	out := make([]ir.ID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union returns a new set holding the members of both.
func (s Set) Union(other Set) Set {
	out := New(s.IDs()...)
	for id := range other.ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Source lists persisted blacklist entries.
type Source interface {
	Blacklist(ctx context.Context) ([]ir.ID, error)
}

// Load assembles Defaults, extra and every entry stored in src.
func Load(ctx context.Context, src Source, extra []ir.ID) (Set, error) {
	stored, err := src.Blacklist(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("load blacklist: %w", err)
	}
	ids := make([]ir.ID, 0, len(Defaults)+len(extra)+len(stored))
	ids = append(ids, Defaults...)
	ids = append(ids, extra...)
	ids = append(ids, stored...)
	return New(ids...), nil
}
