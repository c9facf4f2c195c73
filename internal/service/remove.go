package service

import (
	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// RemoveResult is the outcome of removing or resolving one record.
type RemoveResult struct {
	ID       types.ID            `json:"id"`
	Deleted  *types.DeleteResult `json:"deleted,omitempty"`
	Resolved *types.UpdateResult `json:"resolved,omitempty"`
	Stripped []types.ID          `json:"stripped,omitempty"`
	Reopened []types.ID          `json:"reopened,omitempty"`
	Failed   []types.Failure     `json:"failed,omitempty"`
	DryRun   bool                `json:"dryRun,omitempty"`
}

// RemoveBugOptions controls RemoveBug.
type RemoveBugOptions struct {
	// Resolve marks the bug done instead of deleting it.
	Resolve bool
	DryRun  bool
}

// RemoveTask strips id from every dependency list, then deletes it from
// the roadmap and its replicas. A blocked dependent whose remaining deps
// are all done is reopened in the same write. A bug id is removed as by RemoveBug.
func (s *Service) RemoveTask(id types.ID, dryRun bool) (*RemoveResult, error) {
	if id.IsBug() {
		return s.RemoveBug(id, RemoveBugOptions{DryRun: dryRun})
	}
	var res *RemoveResult
	err := s.inBatch("remove", func() error {
		var err error
		res, err = s.remove(id, RemoveBugOptions{DryRun: dryRun})
		return err
	})
	return res, err
}

// RemoveBug strips bug id from every dependency list and deletes it.
// With Resolve the bug stays and is marked done; resolving a done bug is
// a NoChanges error.
func (s *Service) RemoveBug(id types.ID, opts RemoveBugOptions) (*RemoveResult, error) {
	if !id.IsBug() {
		return nil, types.NewError(types.KindInvalidFormat, id, "not a bug id")
	}
	var res *RemoveResult
	err := s.inBatch("remove-bug", func() error {
		var err error
		res, err = s.remove(id, opts)
		return err
	})
	return res, err
}

// RemoveMany removes each id in one batch. Bugs are deleted, not
// resolved. A failing id is reported and the rest still go through.
func (s *Service) RemoveMany(ids []types.ID, dryRun bool) (types.BatchResult[*RemoveResult], error) {
	var out types.BatchResult[*RemoveResult]
	err := s.inBatch("remove-many", func() error {
		for _, id := range ids {
			res, err := s.remove(id, RemoveBugOptions{DryRun: dryRun})
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

func (s *Service) remove(id types.ID, opts RemoveBugOptions) (*RemoveResult, error) {
	snap, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Find(id)
	if !ok {
		return nil, types.NewError(types.KindNotFound, id, "not in the roadmap")
	}
	res := &RemoveResult{ID: id, DryRun: opts.DryRun}
	wo := types.WriteOptions{DryRun: opts.DryRun}

	if opts.Resolve {
		m, err := mutation.For(rec).WithStatus(types.StatusDone).Build()
		if err != nil {
			return nil, err
		}
		if res.Resolved, err = s.store.Commit(m, wo); err != nil {
			return nil, err
		}
	}

	items := snap.Items()
	for _, r := range snap.All() {
		if r.ID == id || !r.HasDep(id) {
			continue
		}
		next := r
		next.Deps = without(r.Deps, id)
		b := mutation.For(r).WithDeps(next.Deps)
		reopen := r.Status == types.StatusBlocked && graph.AreDepsResolved(next, items, graph.DefaultResolve)
		if reopen {
			b.WithStatus(types.StatusOpen)
		}
		m, err := b.Build()
		if err == nil {
			_, err = s.store.Commit(m, wo)
		}
		if err != nil {
			res.Failed = append(res.Failed, types.Failure{ID: r.ID, Err: err})
			continue
		}
		res.Stripped = append(res.Stripped, r.ID)
		if reopen {
			res.Reopened = append(res.Reopened, r.ID)
		}
	}

	if !opts.Resolve {
		if res.Deleted, err = s.store.DeleteTask(id, wo); err != nil {
			return nil, err
		}
	}
	s.logger.Info("removed", "id", id.Ref(), "resolved", opts.Resolve, "stripped", len(res.Stripped), "reopened", len(res.Reopened))
	return res, nil
}
