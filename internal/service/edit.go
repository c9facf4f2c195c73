package service

import (
	"errors"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/internal/propagation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// EditOptions controls an edit.
type EditOptions struct {
	// DryRun computes the edit and its cascade without writing.
	DryRun bool

	// Key is the claim key of the caller, if any.
	Key string
}

// EditResult is the outcome of one edit and the cascade it caused.
type EditResult struct {
	ID       types.ID             `json:"id"`
	Update   *types.UpdateResult  `json:"update"`
	Effects  []propagation.Effect `json:"effects,omitempty"`
	Failed   []types.Failure      `json:"failed,omitempty"`
	Released *types.ReleasedClaim `json:"released,omitempty"`
	DryRun   bool                 `json:"dryRun,omitempty"`
}

// UpdateTask validates and applies edit to id, then propagates a status
// change to the records depending on id. Checks run in this order:
// existence, field validation, unknown dependencies, new cycles, open bug
// dependencies on the way to done, and the claim.
func (s *Service) UpdateTask(id types.ID, edit types.Edit, opts EditOptions) (*EditResult, error) {
	var res *EditResult
	err := s.inBatch("edit", func() error {
		var err error
		res, err = s.update(id, edit, opts, true)
		return err
	})
	return res, err
}

// BulkEdit applies the same edit to every id in one batch. A failing id
// is reported and the rest still go through.
func (s *Service) BulkEdit(ids []types.ID, edit types.Edit, opts EditOptions) (types.BatchResult[*EditResult], error) {
	var out types.BatchResult[*EditResult]
	err := s.inBatch("bulk-edit", func() error {
		for _, id := range ids {
			res, err := s.update(id, edit, opts, true)
			if err != nil {
				out.Fail(id, err)
				continue
			}
			out.Succeed(res)
		}
		return nil
	})
	return out, err
}

func (s *Service) update(id types.ID, edit types.Edit, opts EditOptions, claimed bool) (*EditResult, error) {
	snap, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Find(id)
	if !ok {
		return nil, types.NewError(types.KindNotFound, id, "not in the roadmap")
	}
	m, err := mutation.For(rec).Apply(edit).Build()
	if err != nil {
		return nil, err
	}
	return s.apply(snap, rec, m, opts, claimed)
}

// apply validates m against the whole graph, commits it and runs the
// cascade. claimed selects whether the caller's key is checked.
func (s *Service) apply(snap *types.Snapshot, rec types.Record, m *types.Mutation, opts EditOptions, claimed bool) (*EditResult, error) {
	items := snap.Items()
	ch := m.Changes

	if ch.Has(types.FieldDeps) {
		if missing := graph.MissingDeps(ch.Deps, items); len(missing) > 0 {
			return nil, types.NewError(types.KindInvalidDeps, rec.ID, "unknown dependencies %s", refList(missing))
		}
		if cycle := graph.CreatesCycle(rec.ID, ch.Deps, items); cycle != nil {
			return nil, types.NewError(types.KindCircularDependency, rec.ID, "would create the cycle %s", graph.FormatCycle(cycle))
		}
	}
	if ch.Has(types.FieldStatus) && ch.Status == types.StatusDone {
		target := rec.Clone()
		ch.Apply(&target)
		if bugs := graph.UnresolvedBugDeps(target, items); len(bugs) > 0 {
			return nil, types.NewError(types.KindUnresolvedBugDeps, rec.ID, "open bugs %s must be done first", refList(bugs))
		}
	}
	if claimed {
		if err := s.checkClaim(rec.ID, opts.Key); err != nil {
			return nil, err
		}
	}

	up, err := s.store.Commit(m, types.WriteOptions{DryRun: opts.DryRun})
	if err != nil {
		return nil, err
	}
	res := &EditResult{ID: rec.ID, Update: up, DryRun: opts.DryRun}

	from, to, changed := m.StatusChange()
	if !changed || from == to {
		return res, nil
	}
	if !opts.DryRun {
		res.Released = s.releaseClaim(rec.ID, to)
	}
	if !rec.IsBug() {
		res.Effects, res.Failed = s.propagate(snap, rec.ID, to, opts.DryRun)
	}
	return res, nil
}

// propagate plans the cascade of id changing to st and commits every
// effect. Effects that fail are returned and do not stop the others.
func (s *Service) propagate(snap *types.Snapshot, id types.ID, st types.Status, dryRun bool) ([]propagation.Effect, []types.Failure) {
	items := snap.Items()
	effects := propagation.Plan(id, st, snap.All(), items)
	if len(effects) == 0 {
		return nil, nil
	}
	for _, e := range effects {
		s.logger.Debug("cascade", "effect", e.String())
	}
	if dryRun {
		return effects, nil
	}

	muts := propagation.ToMutations(effects, items)
	failed := muts.Failed
	for _, m := range muts.Success {
		if _, err := s.store.Commit(m, types.WriteOptions{}); err != nil {
			failed = append(failed, types.Failure{ID: m.TaskID, Err: err})
			continue
		}
		s.releaseClaim(m.TaskID, m.Changes.Status)
	}
	s.logger.Info("propagated status change", "id", id.Ref(), "status", st,
		"effects", len(effects), "failed", len(failed))
	return effects, failed
}

// RefreshResult lists the status repairs of a refresh run.
type RefreshResult struct {
	Blocked   []types.ID      `json:"blocked,omitempty"`
	Unblocked []types.ID      `json:"unblocked,omitempty"`
	Failed    []types.Failure `json:"failed,omitempty"`
	DryRun    bool            `json:"dryRun,omitempty"`
}

// RefreshBlocked re-derives the blocked state of every unfinished task:
// a task with open dependencies becomes blocked and a blocked task whose
// dependencies are all done is reopened. Bug dependencies do not count.
func (s *Service) RefreshBlocked(dryRun bool) (*RefreshResult, error) {
	res := &RefreshResult{DryRun: dryRun}
	err := s.inBatch("refresh", func() error {
		snap, err := s.store.Load()
		if err != nil {
			return err
		}
		items := snap.Items()
		for _, task := range snap.Tasks {
			if task.Status == types.StatusDone {
				continue
			}
			blocked := !graph.AreDepsResolved(task, items, graph.DefaultResolve)
			var next types.Status
			switch {
			case blocked && task.Status != types.StatusBlocked:
				next = types.StatusBlocked
			case !blocked && task.Status == types.StatusBlocked:
				next = types.StatusOpen
			default:
				continue
			}
			if err := s.setStatus(task, next, dryRun); err != nil {
				res.Failed = append(res.Failed, types.Failure{ID: task.ID, Err: err})
				continue
			}
			if next == types.StatusBlocked {
				res.Blocked = append(res.Blocked, task.ID)
			} else {
				res.Unblocked = append(res.Unblocked, task.ID)
			}
		}
		return nil
	})
	return res, err
}

// setStatus commits a bare status change without cascade or claim check.
func (s *Service) setStatus(rec types.Record, st types.Status, dryRun bool) error {
	m, err := mutation.For(rec).WithStatus(st).Build()
	if err != nil {
		if errors.Is(err, types.ErrNoChanges) {
			return nil
		}
		return err
	}
	if _, err := s.store.Commit(m, types.WriteOptions{DryRun: dryRun}); err != nil {
		return err
	}
	if !dryRun {
		s.releaseClaim(rec.ID, st)
	}
	return nil
}
