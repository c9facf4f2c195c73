package storage

import (
	"errors"
	"sort"
	"strings"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/journal"
	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// replicaFields are pushed into replicas on every task update. Spec is
// only pushed when the update changes it.
var replicaFields = types.FieldSet(0).
	With(types.FieldStatus).
	With(types.FieldBereich).
	With(types.FieldBeschreibung).
	With(types.FieldPrio).
	With(types.FieldMVP).
	With(types.FieldDeps).
	With(types.FieldImp)

// Load parses the canonical roadmap as the current batch sees it.
func (s *Store) Load() (*types.Snapshot, error) {
	var snap *types.Snapshot
	err := s.view(func(b *batch) error {
		d, err := s.roadmap(b)
		if err != nil {
			return err
		}
		snap = table.ParseRoadmap(d.text())
		return nil
	})
	return snap, err
}

// Commit writes m to the roadmap and, for tasks, to every replica row of
// the same id. The roadmap row must still read m.OldLine.
func (s *Store) Commit(m *types.Mutation, opts types.WriteOptions) (*types.UpdateResult, error) {
	var res *types.UpdateResult
	err := s.run("commit", func(b *batch) error {
		var err error
		res, err = s.commit(b, m, opts)
		return err
	})
	return res, err
}

// UpdateTask validates edit against the current row of id and commits it.
func (s *Store) UpdateTask(id types.ID, e types.Edit, opts types.WriteOptions) (*types.UpdateResult, error) {
	var res *types.UpdateResult
	err := s.run("update", func(b *batch) error {
		entry, err := s.find(b, id)
		if err != nil {
			return err
		}
		m, err := mutation.New(entry.Record, entry.Schema).Apply(e).Build()
		if err != nil {
			return err
		}
		res, err = s.commit(b, m, opts)
		return err
	})
	return res, err
}

func (s *Store) find(b *batch, id types.ID) (table.Entry, error) {
	rd, err := s.roadmap(b)
	if err != nil {
		return table.Entry{}, err
	}
	entry, ok := table.Find(rd.entries(), id)
	if !ok {
		return table.Entry{}, types.NewError(types.KindNotFound, id, "not in the roadmap")
	}
	return entry, nil
}

func (s *Store) commit(b *batch, m *types.Mutation, opts types.WriteOptions) (*types.UpdateResult, error) {
	entry, err := s.find(b, m.TaskID)
	if err != nil {
		return nil, err
	}
	if entry.Record.OriginalLine != m.OldLine {
		return nil, &types.Error{
			Kind:    types.KindWriteFailed,
			ID:      m.TaskID,
			Message: "row changed since the mutation was built",
			Path:    s.config.RoadmapPath,
		}
	}
	after, ok := table.ParseRow(m.NewLine, entry.Schema)
	if !ok || after.ID != m.TaskID {
		return nil, types.NewError(types.KindInvalidFormat, m.TaskID, "not a %s row: %q", entry.Schema.Name, m.NewLine)
	}
	after.LineIndex = entry.Record.LineIndex

	rd := b.roadmap
	lines := cloneLines(rd.lines)
	lines[entry.Record.LineIndex] = m.NewLine
	edits := []edit{{
		doc:     rd,
		lines:   lines,
		entries: []journal.Entry{lineEntry(m.TaskID, journal.KindUpdate, rd, m.OldLine, m.NewLine)},
	}}
	res := &types.UpdateResult{
		ID:       m.TaskID,
		Modified: m.OldLine != m.NewLine,
		Before:   m.OldLine,
		After:    m.NewLine,
		Mutation: m,
	}

	if !m.TaskID.IsBug() {
		fields := replicaFields
		if m.Changes.Has(types.FieldSpec) {
			fields = fields.With(types.FieldSpec)
		}
		docEdits, changes, err := s.syncEdits(b, after, fields)
		if err != nil {
			return nil, err
		}
		edits = append(edits, docEdits...)
		res.Docs = changes
	}

	if opts.DryRun {
		return res, nil
	}
	return res, s.apply(b, edits)
}

// syncEdits computes the replica rewrites that bring every row of rec.ID
// in line with rec for the given fields.
func (s *Store) syncEdits(b *batch, rec types.Record, fields types.FieldSet) ([]edit, []types.DocChange, error) {
	docs, err := s.replicas(b)
	if err != nil {
		return nil, nil, err
	}
	var (
		edits   []edit
		changes []types.DocChange
	)
	for _, d := range docs {
		found := table.FindAll(d.entries(), rec.ID)
		if len(found) == 0 {
			continue
		}
		lines := cloneLines(d.lines)
		change := types.DocChange{File: d.name, Path: d.path}
		var entries []journal.Entry
		for _, e := range found {
			old := lines[e.Record.LineIndex]
			line, changed, err := table.SyncRow(old, rec, e.Schema, fields)
			if err != nil {
				return nil, nil, err
			}
			if !changed {
				continue
			}
			lines[e.Record.LineIndex] = line
			entries = append(entries, lineEntry(rec.ID, journal.KindSync, d, old, line))
			if !change.Modified {
				change.Modified = true
				change.Before = old
				change.After = line
			}
		}
		changes = append(changes, change)
		if change.Modified {
			edits = append(edits, edit{doc: d, lines: lines, entries: entries})
		}
	}
	return edits, changes, nil
}

// DeleteTask removes id from the roadmap and, for tasks, every replica
// row of id. Dependencies on id elsewhere are left alone.
func (s *Store) DeleteTask(id types.ID, opts types.WriteOptions) (*types.DeleteResult, error) {
	var res *types.DeleteResult
	err := s.run("delete", func(b *batch) error {
		var err error
		res, err = s.deleteRecord(b, id, opts)
		return err
	})
	return res, err
}

// BulkDeleteTasks deletes each id in one batch. An id that fails is
// reported and the rest still go through.
func (s *Store) BulkDeleteTasks(ids []types.ID, opts types.WriteOptions) (types.BatchResult[types.DeleteResult], error) {
	var out types.BatchResult[types.DeleteResult]
	err := s.run("bulk-delete", func(b *batch) error {
		for _, id := range ids {
			res, err := s.deleteRecord(b, id, opts)
			if err != nil {
				if types.KindOf(err) == types.KindUnknown {
					return err
				}
				out.Fail(id, err)
				continue
			}
			out.Succeed(*res)
		}
		return nil
	})
	return out, err
}

func (s *Store) deleteRecord(b *batch, id types.ID, opts types.WriteOptions) (*types.DeleteResult, error) {
	entry, err := s.find(b, id)
	if err != nil {
		return nil, err
	}
	rd := b.roadmap
	edits := []edit{{
		doc:     rd,
		lines:   removeLine(rd.lines, entry.Record.LineIndex),
		entries: []journal.Entry{lineEntry(id, journal.KindDelete, rd, entry.Record.OriginalLine, "")},
	}}
	res := &types.DeleteResult{ID: id, Line: entry.Record.OriginalLine}

	if !id.IsBug() {
		docs, err := s.replicas(b)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			found := table.FindAll(d.entries(), id)
			if len(found) == 0 {
				continue
			}
			lines := cloneLines(d.lines)
			var entries []journal.Entry
			for i := len(found) - 1; i >= 0; i-- {
				e := found[i]
				lines = removeLine(lines, e.Record.LineIndex)
				entries = append(entries, lineEntry(id, journal.KindDelete, d, e.Record.OriginalLine, ""))
			}
			edits = append(edits, edit{doc: d, lines: lines, entries: entries})
			res.Docs = append(res.Docs, types.DocChange{
				File:     d.name,
				Path:     d.path,
				Modified: true,
				Before:   found[0].Record.OriginalLine,
			})
		}
	}

	if opts.DryRun {
		return res, nil
	}
	return res, s.apply(b, edits)
}

// SplitTask marks id done under descA and inserts a new open task under
// descB right after it. The new task depends on id and inherits its
// bereich, prio, mvp and spec. Replica rows of id get a sibling row too.
func (s *Store) SplitTask(id types.ID, descA, descB string, opts types.WriteOptions) (*types.SplitResult, error) {
	var res *types.SplitResult
	err := s.run("split", func(b *batch) error {
		var err error
		res, err = s.split(b, id, descA, descB, opts)
		return err
	})
	return res, err
}

func (s *Store) split(b *batch, id types.ID, descA, descB string, opts types.WriteOptions) (*types.SplitResult, error) {
	if id.IsBug() {
		return nil, types.NewError(types.KindInvalidFormat, id, "bugs cannot be split")
	}
	entry, err := s.find(b, id)
	if err != nil {
		return nil, err
	}
	rec := entry.Record

	lineA := rec.OriginalLine
	m, err := mutation.New(rec, entry.Schema).
		WithStatus(types.StatusDone).
		SetBeschreibung(descA).
		Build()
	switch {
	case err == nil:
		lineA = m.NewLine
	case !errors.Is(err, types.ErrNoChanges):
		return nil, err
	}
	recA, _ := table.ParseRow(lineA, entry.Schema)

	all := table.ParseRoadmap(b.roadmap.text()).All()
	recB := types.Record{
		ID:      types.TaskID(graph.MaxNumber(all, false) + 1),
		Status:  types.StatusOpen,
		Bereich: rec.Bereich,
		Prio:    rec.Prio,
		MVP:     rec.MVP,
		Deps:    []types.ID{id},
		Spec:    rec.Spec,
		Imp:     table.None,
	}
	nb := mutation.New(recB, entry.Schema).SetBeschreibung(descB)
	if err := nb.Err(); err != nil {
		return nil, err
	}
	recB.Beschreibung = nb.Changes().Beschreibung
	lineB := table.BuildRowLike(recB, entry.Schema, rec.OriginalLine)

	rd := b.roadmap
	lines := cloneLines(rd.lines)
	lines[rec.LineIndex] = lineA
	lines = insertLines(lines, rec.LineIndex+1, lineB)
	edits := []edit{{
		doc:   rd,
		lines: lines,
		entries: []journal.Entry{
			lineEntry(id, journal.KindUpdate, rd, rec.OriginalLine, lineA),
			lineEntry(recB.ID, journal.KindInsert, rd, "", lineB),
		},
	}}
	res := &types.SplitResult{
		A:            id,
		B:            recB.ID,
		OriginalLine: rec.OriginalLine,
		NewLines:     []string{lineA, lineB},
	}

	docs, err := s.replicas(b)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		found := table.FindAll(d.entries(), id)
		if len(found) == 0 {
			continue
		}
		lines := cloneLines(d.lines)
		var entries []journal.Entry
		for i := len(found) - 1; i >= 0; i-- {
			e := found[i]
			old := lines[e.Record.LineIndex]
			synced, _, err := table.SyncRow(old, recA, e.Schema, replicaFields)
			if err != nil {
				return nil, err
			}
			sibling := table.BuildRowLike(recB, e.Schema, old)
			lines[e.Record.LineIndex] = synced
			lines = insertLines(lines, e.Record.LineIndex+1, sibling)
			entries = append(entries,
				lineEntry(id, journal.KindSync, d, old, synced),
				lineEntry(recB.ID, journal.KindInsert, d, "", sibling))
		}
		edits = append(edits, edit{doc: d, lines: lines, entries: entries})
		res.Docs = append(res.Docs, types.DocChange{
			File:     d.name,
			Path:     d.path,
			Modified: true,
			Before:   found[0].Record.OriginalLine,
		})
	}

	if opts.DryRun {
		return res, nil
	}
	return res, s.apply(b, edits)
}

// AddTask appends a new record to the end of its table, creating the
// table at the end of the roadmap if there is none. Tasks get the next
// free number and bugs the next free b-number. New records are not
// copied into replicas.
func (s *Store) AddTask(nr types.NewRecord, opts types.WriteOptions) (*types.AddResult, error) {
	var res *types.AddResult
	err := s.run("add", func(b *batch) error {
		var err error
		res, err = s.add(b, nr, opts)
		return err
	})
	return res, err
}

func (s *Store) add(b *batch, nr types.NewRecord, opts types.WriteOptions) (*types.AddResult, error) {
	rd, err := s.roadmap(b)
	if err != nil {
		return nil, err
	}
	all := table.ParseRoadmap(rd.text()).All()

	schema := table.TaskSchema
	rec := types.Record{
		Status: types.StatusOpen,
		Prio:   types.PrioMedium,
		MVP:    types.MVPNo,
		Spec:   table.None,
		Imp:    table.None,
	}
	if nr.Bug {
		schema = table.BugSchema
		rec.ID = types.BugID(graph.MaxNumber(all, true) + 1)
		rec.Bereich = "Bug"
		rec.MVP = types.MVPYes
	} else {
		rec.ID = types.TaskID(graph.MaxNumber(all, false) + 1)
		rec.Bereich = table.None
	}
	if nr.Prio != 0 {
		rec.Prio = nr.Prio
	}
	if nr.MVP != 0 {
		rec.MVP = nr.MVP
	}

	nb := mutation.New(rec, schema).SetBeschreibung(nr.Beschreibung)
	if !nr.Bug {
		if strings.TrimSpace(nr.Bereich) != "" {
			nb.SetBereich(nr.Bereich)
		}
		nb.SetSpec(nr.Spec)
	}
	if len(nr.Deps) > 0 {
		nb.WithDeps(nr.Deps)
	}
	if err := nb.Err(); err != nil {
		return nil, err
	}
	nb.Changes().Apply(&rec)
	if missing := graph.MissingDeps(rec.Deps, itemsOf(all)); len(missing) > 0 {
		return nil, types.NewError(types.KindInvalidDeps, rec.ID, "unknown dependencies %s", refs(missing))
	}

	line := table.BuildRow(rec, schema)
	lines := cloneLines(rd.lines)
	if end, ok := table.TableEnd(lines, schema); ok {
		lines = insertLines(lines, end, line)
	} else {
		lines = appendTable(lines, schema, line)
	}

	if !opts.DryRun {
		err := s.apply(b, []edit{{
			doc:     rd,
			lines:   lines,
			entries: []journal.Entry{lineEntry(rec.ID, journal.KindInsert, rd, "", line)},
		}})
		if err != nil {
			return nil, err
		}
	}
	return &types.AddResult{ID: rec.ID, Bug: nr.Bug, Line: line}, nil
}

// appendTable adds a new table holding line at the end of lines, after
// a blank line. A trailing empty line stays last.
func appendTable(lines []string, s *table.Schema, line string) []string {
	trailing := len(lines) > 0 && lines[len(lines)-1] == ""
	if trailing {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
		lines = append(lines, "")
	}
	lines = append(lines, table.HeaderLines(s)...)
	lines = append(lines, line)
	if trailing {
		lines = append(lines, "")
	}
	return lines
}

func itemsOf(all []types.Record) graph.Items {
	items := make(graph.Items, len(all))
	for i := range all {
		items[all[i].ID] = &all[i]
	}
	return items
}

func refs(ids []types.ID) string {
	sorted := append([]types.ID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return types.CompareIDs(sorted[i], sorted[j]) < 0 })
	out := make([]string, len(sorted))
	for i, id := range sorted {
		out[i] = id.Ref()
	}
	return strings.Join(out, ", ")
}

func lineEntry(id types.ID, kind string, d *document, oldLine, newLine string) journal.Entry {
	return journal.Entry{TaskID: id, Kind: kind, File: d.name, OldLine: oldLine, NewLine: newLine}
}
