package graph

import (
	"sort"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// statusRank orders statuses by how urgently they need attention.
var statusRank = map[types.Status]int{
	types.StatusPartial:  0,
	types.StatusBroken:   1,
	types.StatusOpen:     2,
	types.StatusClaimed:  3,
	types.StatusBlocked:  4,
	types.StatusReview:   5,
	types.StatusRejected: 6,
	types.StatusDone:     7,
}

func rankOf(s types.Status) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

func prioRank(p types.Priority) int {
	switch p {
	case types.PrioHigh:
		return 0
	case types.PrioMedium:
		return 1
	case types.PrioLow:
		return 2
	default:
		return 3
	}
}

// Prioritize returns all ordered for work selection: MVP records first,
// then by status urgency, priority, number of dependents (most first),
// tasks before bugs and finally by id. The input is not modified.
func Prioritize(all []types.Record) []types.Record {
	refs := RefCounts(all)
	out := make([]types.Record, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if am, bm := a.MVP == types.MVPYes, b.MVP == types.MVPYes; am != bm {
			return am
		}
		if ar, br := rankOf(a.Status), rankOf(b.Status); ar != br {
			return ar < br
		}
		if ap, bp := prioRank(a.Prio), prioRank(b.Prio); ap != bp {
			return ap < bp
		}
		if ac, bc := refs[a.ID], refs[b.ID]; ac != bc {
			return ac > bc
		}
		return types.CompareIDs(a.ID, b.ID) < 0
	})
	return out
}

// Ready returns the open records whose dependencies are resolved, in
// priority order.
func Ready(all []types.Record, items Items) []types.Record {
	var out []types.Record
	for _, r := range Prioritize(all) {
		if r.Status == types.StatusOpen && AreDepsResolved(r, items, DefaultResolve) {
			out = append(out, r)
		}
	}
	return out
}
