// Package consistency compares replica rows against the canonical
// roadmap and repairs drift by pushing canonical values back out.
package consistency

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/journal"
	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Diff is one field on which a replica disagrees with the roadmap.
type Diff struct {
	Field     string `json:"field"`
	Canonical string `json:"canonical"`
	Replica   string `json:"replica"`
}

// Inconsistency lists the diffs of one replica row.
type Inconsistency struct {
	TaskID types.ID `json:"taskId"`
	Source string   `json:"source"`
	Diffs  []Diff   `json:"diffs"`
}

// Dangling is a record depending on ids that do not exist.
type Dangling struct {
	TaskID  types.ID   `json:"taskId"`
	Missing []types.ID `json:"missing"`
}

// Report is the outcome of a consistency check.
type Report struct {
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	Orphans         []types.Orphan  `json:"orphans"`
	Duplicates      []types.ID      `json:"duplicates"`
	Cycles          [][]types.ID    `json:"cycles"`
	Dangling        []Dangling      `json:"dangling"`
	Interrupted     []journal.Batch `json:"interrupted,omitempty"`
}

// Clean reports whether the check found nothing to repair.
func (r *Report) Clean() bool {
	return len(r.Inconsistencies) == 0 &&
		len(r.Orphans) == 0 &&
		len(r.Duplicates) == 0 &&
		len(r.Cycles) == 0 &&
		len(r.Dangling) == 0 &&
		len(r.Interrupted) == 0
}

// CompareTaskDefinitions diffs a replica row against the canonical row.
// Only status and the trimmed description are compared; status only when
// the replica carries one. It returns nil when they agree.
func CompareTaskDefinitions(canonical, replica types.Record) []Diff {
	var diffs []Diff
	if canonical.Status != types.StatusUnknown && replica.Status != types.StatusUnknown &&
		canonical.Status != replica.Status {
		diffs = append(diffs, Diff{
			Field:     types.FieldStatus.String(),
			Canonical: statusText(canonical.Status),
			Replica:   statusText(replica.Status),
		})
	}
	a, b := strings.TrimSpace(canonical.Beschreibung), strings.TrimSpace(replica.Beschreibung)
	if a != b {
		diffs = append(diffs, Diff{
			Field:     types.FieldBeschreibung.String(),
			Canonical: a,
			Replica:   b,
		})
	}
	return diffs
}

func statusText(st types.Status) string {
	if sym, ok := table.DefaultStatuses().Symbol(st); ok {
		return sym
	}
	return st.String()
}

// FindInconsistencies diffs every replica sighting of an id against its
// roadmap sighting. Ids without a roadmap sighting are orphans and are
// skipped here. Results are ordered by id, then source.
func FindInconsistencies(defs map[types.ID][]types.Definition) []Inconsistency {
	ids := make([]types.ID, 0, len(defs))
	for id, d := range defs {
		if len(d) > 1 {
			ids = append(ids, id)
		}
	}
	graph.SortIDs(ids)

	var out []Inconsistency
	for _, id := range ids {
		canonical, ok := canonicalOf(defs[id])
		if !ok {
			continue
		}
		for _, d := range defs[id] {
			if d.Source == types.RoadmapSource {
				continue
			}
			if diffs := CompareTaskDefinitions(canonical, d.Record); diffs != nil {
				out = append(out, Inconsistency{TaskID: id, Source: d.Source, Diffs: diffs})
			}
		}
	}
	return out
}

func canonicalOf(defs []types.Definition) (types.Record, bool) {
	for _, d := range defs {
		if d.Source == types.RoadmapSource {
			return d.Record, true
		}
	}
	return types.Record{}, false
}

// Store is the part of the task store the checker needs.
type Store interface {
	Load() (*types.Snapshot, error)
	GetAllTaskDefinitions() (map[types.ID][]types.Definition, error)
	FindOrphanReferences(valid map[types.ID]bool) ([]types.Orphan, error)
	SyncReplicas(id types.ID, opts types.WriteOptions) ([]types.DocChange, error)
	Begin(op string) error
	Flush() error
}

// Journaled is implemented by stores that keep a batch journal.
type Journaled interface {
	InterruptedBatches() ([]journal.Batch, error)
	Reconcile() (int, error)
}

// Checker runs consistency checks and syncs over a store.
type Checker struct {
	store  Store
	logger *log.Logger
}

// New returns a checker. A nil logger discards output.
func New(store Store, logger *log.Logger) *Checker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Checker{store: store, logger: logger}
}

// Check collects replica drift, orphan rows, duplicate ids, dependency
// cycles, dangling dependencies and interrupted journal batches.
func (c *Checker) Check() (*Report, error) {
	snap, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	all := snap.All()

	defs, err := c.store.GetAllTaskDefinitions()
	if err != nil {
		return nil, err
	}
	valid := make(map[types.ID]bool, len(all))
	for _, r := range all {
		valid[r.ID] = true
	}
	orphans, err := c.store.FindOrphanReferences(valid)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Inconsistencies: FindInconsistencies(defs),
		Orphans:         orphans,
		Duplicates:      graph.FindDuplicateIDs(all),
		Cycles:          graph.FindCircularDeps(all),
	}
	items := snap.Items()
	for _, rec := range all {
		if missing := graph.MissingDeps(rec.Deps, items); len(missing) > 0 {
			r.Dangling = append(r.Dangling, Dangling{TaskID: rec.ID, Missing: missing})
		}
	}
	if j, ok := c.store.(Journaled); ok {
		if r.Interrupted, err = j.InterruptedBatches(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SyncResult is the outcome of a sync run.
type SyncResult struct {
	Changes    []types.DocChange `json:"changes"`
	Failed     []types.Failure   `json:"failed,omitempty"`
	Reconciled int               `json:"reconciled"`
}

// Sync pushes the canonical values of every task that has replica rows
// into those rows, in one store batch. Interrupted journal batches are
// marked reconciled once the batch is written without failures.
func (c *Checker) Sync(opts types.WriteOptions) (*SyncResult, error) {
	defs, err := c.store.GetAllTaskDefinitions()
	if err != nil {
		return nil, err
	}
	var ids []types.ID
	for id, d := range defs {
		if id.IsBug() || len(d) < 2 {
			continue
		}
		if _, ok := canonicalOf(d); ok {
			ids = append(ids, id)
		}
	}
	graph.SortIDs(ids)

	if err := c.store.Begin("sync"); err != nil {
		return nil, err
	}
	res := &SyncResult{}
	for _, id := range ids {
		changes, err := c.store.SyncReplicas(id, opts)
		if err != nil {
			res.Failed = append(res.Failed, types.Failure{ID: id, Err: err})
			continue
		}
		for _, ch := range changes {
			if ch.Modified {
				res.Changes = append(res.Changes, ch)
			}
		}
	}
	if err := c.store.Flush(); err != nil {
		return nil, err
	}
	c.logger.Info("synced replicas", "tasks", len(ids), "rows", len(res.Changes), "failed", len(res.Failed))

	if opts.DryRun || len(res.Failed) > 0 {
		return res, nil
	}
	if j, ok := c.store.(Journaled); ok {
		n, err := j.Reconcile()
		if err != nil {
			return nil, err
		}
		res.Reconciled = n
	}
	return res, nil
}
