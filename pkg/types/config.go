package types

import (
	"errors"
	"time"
)

// Config holds the file locations and behavior switches for a store.
type Config struct {
	RoadmapPath  string        `json:"roadmap_path" yaml:"roadmap_path"`
	DocsDir      string        `json:"docs_dir" yaml:"docs_dir"`
	SrcDirs      []string      `json:"src_dirs" yaml:"src_dirs"`
	ClaimsPath   string        `json:"claims_path" yaml:"claims_path"`
	ClaimExpiry  time.Duration `json:"claim_expiry" yaml:"claim_expiry"`
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	SyncStrategy string        `json:"sync_strategy" yaml:"sync_strategy"`
	GuidancePath string        `json:"guidance_path" yaml:"guidance_path"`
}

// Sync strategies. Immediate writes files at the end of every operation;
// batch keeps them in memory between Begin and Flush.
const (
	SyncImmediate = "immediate"
	SyncBatch     = "batch"
)

// Default file locations, relative to the working directory.
const (
	DefaultRoadmapPath = "docs/architecture/Development-Roadmap.md"
	DefaultDocsDir     = "docs"
	DefaultClaimsPath  = "docs/architecture/.task-claims.json"
)

// Config validation errors.
var (
	ErrRoadmapPathEmpty    = errors.New("roadmap path must not be empty")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrClaimExpiryInvalid  = errors.New("claim expiry must not be negative")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.RoadmapPath == "" {
		return ErrRoadmapPathEmpty
	}
	switch c.SyncStrategy {
	case "", SyncImmediate, SyncBatch:
	default:
		return ErrSyncStrategyUnknown
	}
	if c.ClaimExpiry < 0 {
		return ErrClaimExpiryInvalid
	}
	return nil
}

// GetSyncStrategy returns the configured strategy, defaulting to batch.
func (c Config) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncBatch
	}
	return c.SyncStrategy
}

// GetClaimExpiry returns the configured expiry, defaulting to two hours.
func (c Config) GetClaimExpiry() time.Duration {
	if c.ClaimExpiry == 0 {
		return DefaultClaimExpiry
	}
	return c.ClaimExpiry
}
