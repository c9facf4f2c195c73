// Package propagation computes the status changes a single status change
// implies for dependent records. It never touches storage: effects are
// plain data, lowered into mutations by ToMutations.
package propagation

import (
	"fmt"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Effect is one computed, not yet applied, status change.
type Effect struct {
	TaskID    types.ID     `json:"id"`
	OldStatus types.Status `json:"oldStatus"`
	NewStatus types.Status `json:"newStatus"`
	Reason    string       `json:"reason"`
}

func (e Effect) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", e.TaskID.Ref(), e.OldStatus, e.NewStatus, e.Reason)
}

func statusOf(r types.Record, items graph.Items) types.Status {
	if cur, ok := items[r.ID]; ok {
		return cur.Status
	}
	return r.Status
}

// withStatus returns a shallow copy of items in which id has status st.
func withStatus(items graph.Items, id types.ID, st types.Status) graph.Items {
	out := make(graph.Items, len(items))
	for k, v := range items {
		out[k] = v
	}
	if cur, ok := items[id]; ok {
		c := cur.Clone()
		c.Status = st
		out[id] = &c
	}
	return out
}

// Direct computes the first-hop effects of id changing to newStatus.
// items must already hold the new status of id.
//
// A change to done reopens blocked dependents whose dependencies are now
// all resolved. Any other status blocks dependents with unresolved
// dependencies; done dependents are flagged partial instead, never
// blocked.
func Direct(id types.ID, newStatus types.Status, all []types.Record, items graph.Items) []Effect {
	var effects []Effect
	dependents := graph.FindDependents(id, all)

	if newStatus == types.StatusDone {
		hyp := withStatus(items, id, types.StatusDone)
		for _, d := range dependents {
			st := statusOf(d, items)
			if st != types.StatusBlocked {
				continue
			}
			if graph.AreDepsResolved(d, hyp, graph.DefaultResolve) {
				effects = append(effects, Effect{
					TaskID:    d.ID,
					OldStatus: st,
					NewStatus: types.StatusOpen,
					Reason:    fmt.Sprintf("all deps of %s satisfied", id.Ref()),
				})
			}
		}
		return effects
	}

	for _, d := range dependents {
		if graph.AreDepsResolved(d, items, graph.DefaultResolve) {
			continue
		}
		switch st := statusOf(d, items); st {
		case types.StatusDone:
			effects = append(effects, Effect{
				TaskID:    d.ID,
				OldStatus: st,
				NewStatus: types.StatusPartial,
				Reason:    fmt.Sprintf("Dependency %s ist nicht mehr erfüllt", id.Ref()),
			})
		case types.StatusBlocked:
		default:
			effects = append(effects, Effect{
				TaskID:    d.ID,
				OldStatus: st,
				NewStatus: types.StatusBlocked,
				Reason:    fmt.Sprintf("Dependency %s ist nicht erfüllt", id.Ref()),
			})
		}
	}
	return effects
}

// Transitive follows every blocking effect in direct down the dependent
// chain, blocking each record that is neither done nor already blocked.
// Each record is visited once, so cyclic graphs terminate.
func Transitive(origin types.ID, direct []Effect, all []types.Record, items graph.Items) []Effect {
	idx := graph.NewIndex(all)
	processed := map[types.ID]bool{origin: true}
	var queue []Effect
	for _, e := range direct {
		processed[e.TaskID] = true
		if e.NewStatus == types.StatusBlocked {
			queue = append(queue, e)
		}
	}

	var effects []Effect
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, depID := range idx.Dependents(cur.TaskID) {
			if processed[depID] {
				continue
			}
			d, ok := idx.Get(depID)
			if !ok {
				continue
			}
			st := statusOf(d, items)
			if st == types.StatusDone || st == types.StatusBlocked {
				continue
			}
			processed[depID] = true
			e := Effect{
				TaskID:    depID,
				OldStatus: st,
				NewStatus: types.StatusBlocked,
				Reason:    fmt.Sprintf("transitively blocked by %s", cur.TaskID.Ref()),
			}
			effects = append(effects, e)
			queue = append(queue, e)
		}
	}
	return effects
}

// All returns the direct effects followed by the transitive ones.
func All(id types.ID, newStatus types.Status, all []types.Record, items graph.Items) []Effect {
	direct := Direct(id, newStatus, all, items)
	return append(direct, Transitive(id, direct, all, items)...)
}

// Plan runs All to a fixpoint on a private copy of the records: every
// effect is applied and propagated in turn. A record changes at most once
// and the origin never changes, so the run is bounded. items must hold the
// new status of id; neither items nor all is modified.
func Plan(id types.ID, newStatus types.Status, all []types.Record, items graph.Items) []Effect {
	cur := make(graph.Items, len(items))
	for k, v := range items {
		c := v.Clone()
		cur[k] = &c
	}
	if r, ok := cur[id]; ok {
		r.Status = newStatus
	}

	records := func() []types.Record {
		out := make([]types.Record, len(all))
		for i, r := range all {
			if c, ok := cur[r.ID]; ok {
				out[i] = *c
			} else {
				out[i] = r
			}
		}
		return out
	}

	type change struct {
		id types.ID
		st types.Status
	}
	processed := map[types.ID]bool{id: true}
	queue := []change{{id: id, st: newStatus}}
	var out []Effect
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, e := range All(c.id, c.st, records(), cur) {
			if processed[e.TaskID] {
				continue
			}
			processed[e.TaskID] = true
			if r, ok := cur[e.TaskID]; ok {
				r.Status = e.NewStatus
			}
			out = append(out, e)
			queue = append(queue, change{id: e.TaskID, st: e.NewStatus})
		}
	}
	return out
}

// ToMutations lowers effects into validated status mutations. An effect
// whose record is missing or whose mutation fails validation is reported
// in Failed without stopping the others.
func ToMutations(effects []Effect, items graph.Items) types.BatchResult[*types.Mutation] {
	var res types.BatchResult[*types.Mutation]
	for _, e := range effects {
		rec, ok := items[e.TaskID]
		if !ok {
			res.Fail(e.TaskID, types.NewError(types.KindNotFound, e.TaskID, "not in roadmap"))
			continue
		}
		m, err := mutation.For(*rec).WithStatus(e.NewStatus).Build()
		if err != nil {
			res.Fail(e.TaskID, err)
			continue
		}
		res.Succeed(m)
	}
	return res
}
