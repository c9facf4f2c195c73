package graph

import (
	"sort"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Index is an arena of records with the reverse dependency relation built
// once. Lookups never follow pointers between records.
type Index struct {
	records    []types.Record
	pos        map[types.ID]int
	dependents map[types.ID][]types.ID
}

// NewIndex indexes all. When an id occurs twice the first record wins.
func NewIndex(all []types.Record) *Index {
	idx := &Index{
		records:    all,
		pos:        make(map[types.ID]int, len(all)),
		dependents: make(map[types.ID][]types.ID),
	}
	for i, r := range all {
		if _, dup := idx.pos[r.ID]; dup {
			continue
		}
		idx.pos[r.ID] = i
	}
	for i, r := range all {
		if idx.pos[r.ID] != i {
			continue
		}
		for _, dep := range r.Deps {
			idx.dependents[dep] = append(idx.dependents[dep], r.ID)
		}
	}
	return idx
}

// Get returns the record with the given id.
func (idx *Index) Get(id types.ID) (types.Record, bool) {
	i, ok := idx.pos[id]
	if !ok {
		return types.Record{}, false
	}
	return idx.records[i], true
}

// Has reports whether id is indexed.
func (idx *Index) Has(id types.ID) bool {
	_, ok := idx.pos[id]
	return ok
}

// Dependents returns the ids of records that list id as a dependency.
func (idx *Index) Dependents(id types.ID) []types.ID {
	return idx.dependents[id]
}

// Deps returns the dependencies of id that are themselves indexed.
func (idx *Index) Deps(id types.ID) []types.ID {
	r, ok := idx.Get(id)
	if !ok {
		return nil
	}
	var out []types.ID
	for _, d := range r.Deps {
		if idx.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// IDs returns the indexed ids in canonical order.
func (idx *Index) IDs() []types.ID {
	ids := make([]types.ID, 0, len(idx.pos))
	for id := range idx.pos {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// SortIDs sorts ids with tasks first, then numerically.
func SortIDs(ids []types.ID) {
	sort.Slice(ids, func(i, j int) bool { return types.CompareIDs(ids[i], ids[j]) < 0 })
}

// RefCounts returns how many records depend on each id.
func RefCounts(all []types.Record) map[types.ID]int {
	counts := make(map[types.ID]int)
	for _, r := range all {
		for _, dep := range r.Deps {
			counts[dep]++
		}
	}
	return counts
}

// FindDuplicateIDs returns ids that appear on more than one row, sorted.
func FindDuplicateIDs(all []types.Record) []types.ID {
	seen := make(map[types.ID]int, len(all))
	var dups []types.ID
	for _, r := range all {
		seen[r.ID]++
		if seen[r.ID] == 2 {
			dups = append(dups, r.ID)
		}
	}
	SortIDs(dups)
	return dups
}

// MaxNumber returns the highest task or bug number in all, or 0.
func MaxNumber(all []types.Record, bugs bool) int {
	highest := 0
	for _, r := range all {
		if r.IsBug() != bugs {
			continue
		}
		if n := r.ID.Number(); n > highest {
			highest = n
		}
	}
	return highest
}
