package types

// Record is one task or bug row.
type Record struct {
	ID           ID
	Status       Status
	Bereich      string
	Beschreibung string
	Prio         Priority
	MVP          MVP
	Deps         []ID
	Spec         string
	Imp          string

	// LineIndex is the zero-based line of the row in its owning file.
	LineIndex int

	// OriginalLine is the verbatim row as read.
	OriginalLine string
}

// IsBug reports whether the record is a bug.
func (r Record) IsBug() bool {
	return r.ID.IsBug()
}

// HasDep reports whether id is one of the record's dependencies.
func (r Record) HasDep(id ID) bool {
	for _, d := range r.Deps {
		if d == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	c := r
	c.Deps = append([]ID(nil), r.Deps...)
	return c
}

// Snapshot is the parsed canonical roadmap.
type Snapshot struct {
	Lines []string
	Tasks []Record
	Bugs  []Record
}

// All returns tasks followed by bugs.
func (s *Snapshot) All() []Record {
	out := make([]Record, 0, len(s.Tasks)+len(s.Bugs))
	out = append(out, s.Tasks...)
	return append(out, s.Bugs...)
}

// Items returns an id to record map over tasks and bugs. The map holds
// copies; mutating them does not change the snapshot.
func (s *Snapshot) Items() map[ID]*Record {
	items := make(map[ID]*Record, len(s.Tasks)+len(s.Bugs))
	for _, r := range s.All() {
		rec := r.Clone()
		items[rec.ID] = &rec
	}
	return items
}

// Find returns the record with the given id.
func (s *Snapshot) Find(id ID) (Record, bool) {
	for _, r := range s.Tasks {
		if r.ID == id {
			return r, true
		}
	}
	for _, r := range s.Bugs {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// NewRecord describes a record to be added. Empty optional fields take the
// table defaults: bereich "-", prio medium, mvp no, spec "-".
type NewRecord struct {
	Bug          bool
	Bereich      string
	Beschreibung string
	Prio         Priority
	MVP          MVP
	Deps         []ID
	Spec         string
	// Affects lists tasks a new bug breaks. Only used for bugs.
	Affects []ID
}
