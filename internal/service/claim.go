package service

import (
	"errors"

	"github.com/mesh-intelligence/roadmap/internal/guidance"
	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/internal/propagation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// ClaimResult is handed to whoever claims a record.
type ClaimResult struct {
	ID       types.ID             `json:"id"`
	Key      string               `json:"key"`
	Record   types.Record         `json:"-"`
	Guidance guidance.Guidance    `json:"guidance"`
	Effects  []propagation.Effect `json:"effects,omitempty"`
	Failed   []types.Failure      `json:"failed,omitempty"`
}

// Claim takes a lease on id and marks the record claimed. The status
// change cascades like an edit, so claiming a done task flags its done
// dependents partial. The returned key must accompany later edits.
// Guidance is chosen by the status the record had before it was claimed.
func (s *Service) Claim(id types.ID) (*ClaimResult, error) {
	if s.claims == nil {
		return nil, ErrNoClaims
	}
	var res *ClaimResult
	err := s.inBatch("claim", func() error {
		snap, err := s.store.Load()
		if err != nil {
			return err
		}
		rec, ok := snap.Find(id)
		if !ok {
			return types.NewError(types.KindNotFound, id, "not in the roadmap")
		}
		key, err := s.claims.Claim(id)
		if err != nil {
			return err
		}
		res = &ClaimResult{ID: id, Key: key, Record: rec, Guidance: s.guidance.For(rec)}
		m, err := mutation.For(rec).WithStatus(types.StatusClaimed).Build()
		if err == nil {
			var er *EditResult
			if er, err = s.apply(snap, rec, m, EditOptions{}, false); err == nil {
				res.Effects, res.Failed = er.Effects, er.Failed
			}
		}
		if err != nil && !errors.Is(err, types.ErrNoChanges) {
			if _, uerr := s.claims.Unclaim(key); uerr != nil {
				s.logger.Warn("rolling back claim", "id", id.Ref(), "err", uerr)
			}
			res = nil
			return err
		}
		s.logger.Info("claimed", "id", id.Ref(), "key", key, "effects", len(res.Effects))
		return nil
	})
	return res, err
}

// UnclaimResult reports which record a key released.
type UnclaimResult struct {
	ID       types.ID `json:"id"`
	Reopened bool     `json:"reopened"`
}

// Unclaim removes the lease holding key. The record goes back to open if
// it is still marked claimed.
func (s *Service) Unclaim(key string) (*UnclaimResult, error) {
	if s.claims == nil {
		return nil, ErrNoClaims
	}
	var res *UnclaimResult
	err := s.inBatch("unclaim", func() error {
		id, err := s.claims.Unclaim(key)
		if err != nil {
			return err
		}
		res = &UnclaimResult{ID: id}
		reopened, err := s.reopen(id)
		res.Reopened = reopened
		return err
	})
	return res, err
}

// CleanupResult lists the leases removed by expiry.
type CleanupResult struct {
	Released []types.ReleasedClaim `json:"released"`
	Reopened []types.ID            `json:"reopened,omitempty"`
	Failed   []types.Failure       `json:"failed,omitempty"`
}

// CleanupExpired removes every expired lease and reopens every record
// marked claimed that no live lease holds. Leases purged earlier by a
// lazy read are caught by the same sweep.
func (s *Service) CleanupExpired() (*CleanupResult, error) {
	if s.claims == nil {
		return nil, ErrNoClaims
	}
	res := &CleanupResult{Released: []types.ReleasedClaim{}}
	err := s.inBatch("cleanup", func() error {
		released, err := s.claims.CleanupExpired()
		if err != nil {
			return err
		}
		res.Released = append(res.Released, released...)
		live, err := s.claims.List()
		if err != nil {
			return err
		}
		snap, err := s.store.Load()
		if err != nil {
			return err
		}
		for _, rec := range snap.All() {
			if rec.Status != types.StatusClaimed {
				continue
			}
			if _, held := live[rec.ID]; held {
				continue
			}
			reopened, err := s.reopen(rec.ID)
			if err != nil {
				res.Failed = append(res.Failed, types.Failure{ID: rec.ID, Err: err})
				continue
			}
			if reopened {
				res.Reopened = append(res.Reopened, rec.ID)
			}
		}
		return nil
	})
	return res, err
}

// reopen sets id back to open when it is still claimed. A record that
// disappeared meanwhile is not an error.
func (s *Service) reopen(id types.ID) (bool, error) {
	snap, err := s.store.Load()
	if err != nil {
		return false, err
	}
	rec, ok := snap.Find(id)
	if !ok || rec.Status != types.StatusClaimed {
		return false, nil
	}
	if err := s.setStatus(rec, types.StatusOpen, false); err != nil {
		return false, err
	}
	return true, nil
}
