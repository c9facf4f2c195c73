// Package service orchestrates the store, the claim leases and the
// propagation engine into the user-facing operations: edit, bulk edit,
// claim, add, remove, split, refresh and doc-change checks.
//
// Every operation runs inside one store batch, so a cascade of edits is
// written once. Operations over many ids report partial success through
// types.BatchResult and never stop at the first failing id.
package service

import (
	"errors"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/guidance"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Options configures a Service. Store is required; without Claims every
// edit is allowed and Claim fails.
type Options struct {
	Store    types.TaskStore
	Claims   types.ClaimStore
	Guidance *guidance.Config
	Logger   *log.Logger
}

// Service holds the collaborators shared by every operation.
type Service struct {
	store    types.TaskStore
	claims   types.ClaimStore
	guidance *guidance.Config
	logger   *log.Logger
}

// ErrNoStore is returned by New without a store.
var ErrNoStore = errors.New("service requires a task store")

// ErrNoClaims is returned by claim operations without a claim store.
var ErrNoClaims = errors.New("no claim store configured")

// New returns a service over opts.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	s := &Service{
		store:    opts.Store,
		claims:   opts.Claims,
		guidance: opts.Guidance,
		logger:   opts.Logger,
	}
	if s.guidance == nil {
		s.guidance, _ = guidance.Load("")
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// inBatch runs fn in a store batch. Inside a batch opened by the caller
// fn simply joins it. The batch is flushed even when fn fails, so what
// fn already applied is kept; fn's error wins over the flush error.
func (s *Service) inBatch(op string, fn func() error) error {
	if err := s.store.Begin(op); err != nil {
		if errors.Is(err, types.ErrBatchActive) {
			return fn()
		}
		return err
	}
	ferr := fn()
	if err := s.store.Flush(); err != nil && ferr == nil {
		return err
	}
	return ferr
}

// checkClaim fails with ClaimRequired when id carries a live claim whose
// key is not key.
func (s *Service) checkClaim(id types.ID, key string) error {
	if s.claims == nil {
		return nil
	}
	ok, err := s.claims.CheckKey(id, key)
	if err != nil {
		return err
	}
	if !ok {
		return types.NewError(types.KindClaimRequired, id, "claimed by someone else; pass the claim key to change it")
	}
	return nil
}

// releaseClaim drops the claim on id when its status left Claimed.
func (s *Service) releaseClaim(id types.ID, st types.Status) *types.ReleasedClaim {
	if s.claims == nil {
		return nil
	}
	rel, err := s.claims.HandleStatusChange(id, st)
	if err != nil {
		s.logger.Warn("releasing claim", "id", id.Ref(), "err", err)
		return nil
	}
	if rel != nil {
		s.logger.Info("claim released", "id", id.Ref(), "owner", rel.Owner, "status", st)
	}
	return rel
}

func refList(ids []types.ID) string {
	sorted := append([]types.ID(nil), ids...)
	graph.SortIDs(sorted)
	out := make([]string, len(sorted))
	for i, id := range sorted {
		out[i] = id.Ref()
	}
	return strings.Join(out, ", ")
}

func without(deps []types.ID, id types.ID) []types.ID {
	out := make([]types.ID, 0, len(deps))
	for _, d := range deps {
		if d != id {
			out = append(out, d)
		}
	}
	return out
}
