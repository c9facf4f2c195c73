package storage

import (
	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// allFields is everything a full sync pushes, spec included.
var allFields = replicaFields.With(types.FieldSpec)

// SyncReplicas rewrites every replica row of id with the canonical
// values, spec included. Bugs have no replicas.
func (s *Store) SyncReplicas(id types.ID, opts types.WriteOptions) ([]types.DocChange, error) {
	var changes []types.DocChange
	err := s.run("sync", func(b *batch) error {
		entry, err := s.find(b, id)
		if err != nil {
			return err
		}
		if id.IsBug() {
			return nil
		}
		edits, docChanges, err := s.syncEdits(b, entry.Record, allFields)
		if err != nil {
			return err
		}
		changes = docChanges
		if opts.DryRun {
			return nil
		}
		return s.apply(b, edits)
	})
	return changes, err
}

// FindDocsContainingTask returns the paths of the replicas holding a row
// for id, sorted by name.
func (s *Store) FindDocsContainingTask(id types.ID) ([]string, error) {
	var paths []string
	err := s.view(func(b *batch) error {
		docs, err := s.replicas(b)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if _, ok := table.Find(d.entries(), id); ok {
				paths = append(paths, d.path)
			}
		}
		return nil
	})
	return paths, err
}

// GetAllTaskDefinitions returns every sighting of every id. The roadmap
// comes first under types.RoadmapSource, then the replicas by name.
func (s *Store) GetAllTaskDefinitions() (map[types.ID][]types.Definition, error) {
	defs := make(map[types.ID][]types.Definition)
	err := s.view(func(b *batch) error {
		rd, err := s.roadmap(b)
		if err != nil {
			return err
		}
		for _, e := range rd.entries() {
			defs[e.Record.ID] = append(defs[e.Record.ID], types.Definition{Source: types.RoadmapSource, Record: e.Record})
		}
		docs, err := s.replicas(b)
		if err != nil {
			return err
		}
		for _, d := range docs {
			for _, e := range d.entries() {
				defs[e.Record.ID] = append(defs[e.Record.ID], types.Definition{Source: d.name, Record: e.Record})
			}
		}
		return nil
	})
	return defs, err
}

// FindOrphanReferences lists replica rows whose id is not in valid.
func (s *Store) FindOrphanReferences(valid map[types.ID]bool) ([]types.Orphan, error) {
	var orphans []types.Orphan
	err := s.view(func(b *batch) error {
		docs, err := s.replicas(b)
		if err != nil {
			return err
		}
		for _, d := range docs {
			for _, e := range d.entries() {
				if !valid[e.Record.ID] {
					orphans = append(orphans, types.Orphan{File: d.name, ID: e.Record.ID})
				}
			}
		}
		return nil
	})
	return orphans, err
}
