package graph

import "github.com/mesh-intelligence/roadmap/pkg/types"

// Items maps ids to records.
type Items = map[types.ID]*types.Record

// ResolveOptions controls which dependencies count.
type ResolveOptions struct {
	// IgnoreBugDeps treats bug dependencies as resolved.
	IgnoreBugDeps bool
}

// DefaultResolve ignores bug dependencies. Bugs only gate the transition
// to done, which the edit service checks separately.
var DefaultResolve = ResolveOptions{IgnoreBugDeps: true}

// AreDepsResolved reports whether every counted dependency of r is done.
// A dependency missing from items does not block.
func AreDepsResolved(r types.Record, items Items, opts ResolveOptions) bool {
	return len(UnresolvedDeps(r, items, opts)) == 0
}

// UnresolvedDeps returns the counted dependencies of r that exist in items
// and are not done, in dependency order.
func UnresolvedDeps(r types.Record, items Items, opts ResolveOptions) []types.ID {
	var out []types.ID
	for _, dep := range r.Deps {
		if opts.IgnoreBugDeps && dep.IsBug() {
			continue
		}
		d, ok := items[dep]
		if !ok {
			continue
		}
		if d.Status != types.StatusDone {
			out = append(out, dep)
		}
	}
	return out
}

// UnresolvedBugDeps returns the bug dependencies of r that are not done.
func UnresolvedBugDeps(r types.Record, items Items) []types.ID {
	var out []types.ID
	for _, dep := range r.Deps {
		if !dep.IsBug() {
			continue
		}
		if d, ok := items[dep]; ok && d.Status != types.StatusDone {
			out = append(out, dep)
		}
	}
	return out
}

// MissingDeps returns the dependencies of deps that are absent from items.
func MissingDeps(deps []types.ID, items Items) []types.ID {
	var out []types.ID
	for _, dep := range deps {
		if _, ok := items[dep]; !ok {
			out = append(out, dep)
		}
	}
	return out
}

// FindDependents returns every record whose deps contain id, in input
// order.
func FindDependents(id types.ID, all []types.Record) []types.Record {
	var out []types.Record
	for _, r := range all {
		if r.HasDep(id) {
			out = append(out, r)
		}
	}
	return out
}

// FindAllDependents returns the transitive dependents of id. The id itself
// is only included if it sits on a cycle.
func FindAllDependents(id types.ID, all []types.Record) map[types.ID]bool {
	idx := NewIndex(all)
	seen := make(map[types.ID]bool)
	queue := []types.ID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range idx.Dependents(cur) {
			if seen[d] {
				continue
			}
			seen[d] = true
			queue = append(queue, d)
		}
	}
	return seen
}
