package service

import (
	"strings"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/propagation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// SplitResult is a split and the cascade of the finished part becoming
// done.
type SplitResult struct {
	types.SplitResult
	Effects []propagation.Effect `json:"effects,omitempty"`
	Failed  []types.Failure      `json:"failed,omitempty"`
}

// Split turns task id into a done part under descA and a new open part
// under descB that depends on it. The done part obeys the same rules as an
// edit to done: open bug dependencies refuse the split, and blocked
// dependents are reopened. The caller's key is checked against a claim on
// id.
func (s *Service) Split(id types.ID, descA, descB string, opts EditOptions) (*SplitResult, error) {
	if strings.TrimSpace(descA) == "" || strings.TrimSpace(descB) == "" {
		return nil, types.NewError(types.KindInvalidFormat, id, "both descriptions are required")
	}
	var res *SplitResult
	err := s.inBatch("split", func() error {
		snap, err := s.store.Load()
		if err != nil {
			return err
		}
		rec, ok := snap.Find(id)
		if !ok {
			return types.NewError(types.KindNotFound, id, "not in the roadmap")
		}
		if bugs := graph.UnresolvedBugDeps(rec, snap.Items()); len(bugs) > 0 {
			return types.NewError(types.KindUnresolvedBugDeps, id, "open bugs %s must be done first", refList(bugs))
		}
		if err := s.checkClaim(id, opts.Key); err != nil {
			return err
		}
		split, err := s.store.SplitTask(id, descA, descB, types.WriteOptions{DryRun: opts.DryRun})
		if err != nil {
			return err
		}
		res = &SplitResult{SplitResult: *split}
		if !opts.DryRun {
			s.releaseClaim(id, types.StatusDone)
		}
		if rec.Status == types.StatusDone {
			return nil
		}
		if !opts.DryRun {
			// Rows moved when the new part was inserted.
			if snap, err = s.store.Load(); err != nil {
				return err
			}
		}
		res.Effects, res.Failed = s.propagate(snap, id, types.StatusDone, opts.DryRun)
		return nil
	})
	return res, err
}
