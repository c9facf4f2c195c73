package service

import (
	"errors"
	"strconv"

	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// AddTasks appends each record as a new task in one batch.
func (s *Service) AddTasks(recs []types.NewRecord, dryRun bool) (types.BatchResult[types.AddResult], error) {
	var out types.BatchResult[types.AddResult]
	err := s.inBatch("add", func() error {
		for i, nr := range recs {
			nr.Bug = false
			nr.Affects = nil
			res, err := s.store.AddTask(nr, types.WriteOptions{DryRun: dryRun})
			if err != nil {
				out.Fail(pendingID(i), err)
				continue
			}
			out.Succeed(*res)
		}
		return nil
	})
	return out, err
}

// BugResult is a new bug and the tasks it marked broken.
type BugResult struct {
	types.AddResult
	Broken []types.ID      `json:"broken,omitempty"`
	Failed []types.Failure `json:"failed,omitempty"`
}

// AddBugs appends each record as a new bug. Every task the bug affects
// is marked broken and gets the bug added to its dependencies; those
// changes cascade like any other status change. In a dry run the
// affected tasks are only listed.
func (s *Service) AddBugs(recs []types.NewRecord, dryRun bool) (types.BatchResult[BugResult], error) {
	var out types.BatchResult[BugResult]
	err := s.inBatch("add-bug", func() error {
		for i, nr := range recs {
			nr.Bug = true
			added, err := s.store.AddTask(nr, types.WriteOptions{DryRun: dryRun})
			if err != nil {
				out.Fail(pendingID(i), err)
				continue
			}
			res := BugResult{AddResult: *added}
			for _, id := range nr.Affects {
				if err := s.breakTask(id, added.ID, dryRun); err != nil {
					res.Failed = append(res.Failed, types.Failure{ID: id, Err: err})
					continue
				}
				res.Broken = append(res.Broken, id)
			}
			out.Succeed(res)
		}
		return nil
	})
	return out, err
}

// breakTask marks id broken by bug. Claims are not checked: reporting a
// bug must not wait for whoever works on the task.
func (s *Service) breakTask(id, bug types.ID, dryRun bool) error {
	snap, err := s.store.Load()
	if err != nil {
		return err
	}
	rec, ok := snap.Find(id)
	if !ok {
		return types.NewError(types.KindNotFound, id, "not in the roadmap")
	}
	if rec.IsBug() {
		return types.NewError(types.KindInvalidFormat, id, "a bug can only affect tasks")
	}
	if dryRun {
		return nil
	}
	b := mutation.For(rec).WithStatus(types.StatusBroken)
	if !rec.HasDep(bug) {
		b.WithDeps(append(append([]types.ID(nil), rec.Deps...), bug))
	}
	m, err := b.Build()
	if errors.Is(err, types.ErrNoChanges) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.apply(snap, rec, m, EditOptions{}, false)
	return err
}

// pendingID names the i-th record of an add request that never got an
// id, so failures can still be told apart.
func pendingID(i int) types.ID {
	return types.ID("new-" + strconv.Itoa(i+1))
}
