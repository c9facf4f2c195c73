package graph

import (
	"strings"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// FindCircularDeps finds dependency cycles with a depth-first search. When
// the search reaches a record already on the active path, the path from
// that record onward is one cycle. Cycles are rotated to start at their
// smallest id and reported once. A self-dependency is a cycle of one.
func FindCircularDeps(all []types.Record) [][]types.ID {
	idx := NewIndex(all)
	var (
		cycles  [][]types.ID
		stack   []types.ID
		visited = make(map[types.ID]bool)
		onStack = make(map[types.ID]int)
		seen    = make(map[string]bool)
	)

	var visit func(id types.ID)
	visit = func(id types.ID) {
		visited[id] = true
		onStack[id] = len(stack)
		stack = append(stack, id)
		for _, dep := range idx.Deps(id) {
			if at, ok := onStack[dep]; ok {
				cycle := rotate(stack[at:])
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if !visited[dep] {
				visit(dep)
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
	}

	for _, id := range idx.IDs() {
		if !visited[id] {
			visit(id)
		}
	}
	return cycles
}

// CreatesCycle reports the cycle that giving id the dependencies deps
// would close, or nil. items holds the current records.
func CreatesCycle(id types.ID, deps []types.ID, items Items) []types.ID {
	for _, dep := range deps {
		if dep == id {
			return []types.ID{id}
		}
		if path := pathTo(dep, id, items, make(map[types.ID]bool)); path != nil {
			return rotate(append([]types.ID{id}, path[:len(path)-1]...))
		}
	}
	return nil
}

// pathTo returns the dependency path from from to target, both included.
func pathTo(from, target types.ID, items Items, seen map[types.ID]bool) []types.ID {
	if from == target {
		return []types.ID{target}
	}
	if seen[from] {
		return nil
	}
	seen[from] = true
	r, ok := items[from]
	if !ok {
		return nil
	}
	for _, dep := range r.Deps {
		if rest := pathTo(dep, target, items, seen); rest != nil {
			return append([]types.ID{from}, rest...)
		}
	}
	return nil
}

// FormatCycle renders a cycle as "#1 -> #2 -> #1".
func FormatCycle(cycle []types.ID) string {
	if len(cycle) == 0 {
		return ""
	}
	refs := make([]string, 0, len(cycle)+1)
	for _, id := range cycle {
		refs = append(refs, id.Ref())
	}
	refs = append(refs, cycle[0].Ref())
	return strings.Join(refs, " -> ")
}

func rotate(path []types.ID) []types.ID {
	start := 0
	for i := range path {
		if types.CompareIDs(path[i], path[start]) < 0 {
			start = i
		}
	}
	out := make([]types.ID, 0, len(path))
	out = append(out, path[start:]...)
	return append(out, path[:start]...)
}

func cycleKey(cycle []types.ID) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
