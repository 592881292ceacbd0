package xref

import (
	"slices"

	"github.com/roach88/seqmine/internal/ir"
)

// Generation is the sorted list of ids eligible for comparison during one
// run. Seq increases with every new generation.
type Generation struct {
	Seq uint64  `json:"seq"`
	IDs []ir.ID `json:"ids"`
}

// Contains reports whether id is part of g.
func (g *Generation) Contains(id ir.ID) bool {
	_, ok := slices.BinarySearch(g.IDs, id)
	return ok
}

// State records which pairs have already been compared.
//
// Done maps an id a to the generation it was completed against: every b
// after a in that generation has been compared with a. Storing generations
// instead of per-id sets keeps the state linear in the corpus size.
type State struct {
	Generations map[uint64]*Generation
	Done        map[ir.ID]uint64
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Generations: make(map[uint64]*Generation),
		Done:        make(map[ir.ID]uint64),
	}
}

// Latest returns the newest generation, or nil.
func (s *State) Latest() *Generation {
	var latest *Generation
	for _, g := range s.Generations {
		if latest == nil || g.Seq > latest.Seq {
			latest = g
		}
	}
	return latest
}

// Advance returns the generation for the eligible ids, reusing the latest
// one when it lists exactly the same ids. ids must be sorted. added reports
// whether a new generation was created.
func (s *State) Advance(ids []ir.ID) (g *Generation, added bool) {
	latest := s.Latest()
	if latest != nil && slices.Equal(latest.IDs, ids) {
		return latest, false
	}
	seq := uint64(1)
	if latest != nil {
		seq = latest.Seq + 1
	}
	g = &Generation{Seq: seq, IDs: slices.Clone(ids)}
	s.Generations[seq] = g
	return g, true
}

// Complete marks a as compared against every later id in generation seq.
// Unknown generations are ignored.
func (s *State) Complete(a ir.ID, seq uint64) bool {
	if _, ok := s.Generations[seq]; !ok {
		return false
	}
	if prev, ok := s.Done[a]; ok && prev >= seq {
		return true
	}
	s.Done[a] = seq
	return true
}

// CompletedIn reports whether a was completed against generation seq.
func (s *State) CompletedIn(a ir.ID, seq uint64) bool {
	done, ok := s.Done[a]
	return ok && done == seq
}

// Compared reports whether the pair (a, b), a < b, has been compared.
func (s *State) Compared(a, b ir.ID) bool {
	if b < a {
		a, b = b, a
	}
	seq, ok := s.Done[a]
	if !ok {
		return false
	}
	g, ok := s.Generations[seq]
	return ok && g.Contains(b)
}

// Merge folds other into s, keeping the newest generation per id.
func (s *State) Merge(other *State) {
	for seq, g := range other.Generations {
		if _, ok := s.Generations[seq]; !ok {
			s.Generations[seq] = g
		}
	}
	for id, seq := range other.Done {
		s.Complete(id, seq)
	}
}

// Compact drops generations no id refers to, except the latest.
func (s *State) Compact() {
	used := make(map[uint64]bool, len(s.Generations))
	for _, seq := range s.Done {
		used[seq] = true
	}
	if latest := s.Latest(); latest != nil {
		used[latest.Seq] = true
	}
	for seq := range s.Generations {
		if !used[seq] {
			delete(s.Generations, seq)
		}
	}
}

// snapshotDoc is the serialized form of State.
type snapshotDoc struct {
	Version     int              `json:"version"`
	Generations []*Generation    `json:"generations"`
	Done        map[ir.ID]uint64 `json:"done"`
}

const snapshotVersion = 1

func (s *State) doc() snapshotDoc {
	d := snapshotDoc{Version: snapshotVersion, Done: s.Done}
	for _, g := range s.Generations {
		d.Generations = append(d.Generations, g)
	}
	slices.SortFunc(d.Generations, func(a, b *Generation) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return d
}

func stateFromDoc(d snapshotDoc) *State {
	s := NewState()
	for _, g := range d.Generations {
		if g == nil {
			continue
		}
		slices.Sort(g.IDs)
		s.Generations[g.Seq] = g
	}
	for id, seq := range d.Done {
		s.Complete(id, seq)
	}
	return s
}
