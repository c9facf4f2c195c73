package types

// Field names one column of a record.
type Field int

// Record fields in canonical column order.
const (
	FieldID Field = iota
	FieldStatus
	FieldBereich
	FieldBeschreibung
	FieldPrio
	FieldMVP
	FieldDeps
	FieldSpec
	FieldImp
)

// EditableFields lists the fields a mutation may change, in column order.
var EditableFields = []Field{
	FieldStatus,
	FieldBereich,
	FieldBeschreibung,
	FieldPrio,
	FieldMVP,
	FieldDeps,
	FieldSpec,
	FieldImp,
}

var fieldNames = map[Field]string{
	FieldID:           "id",
	FieldStatus:       "status",
	FieldBereich:      "bereich",
	FieldBeschreibung: "beschreibung",
	FieldPrio:         "prio",
	FieldMVP:          "mvp",
	FieldDeps:         "deps",
	FieldSpec:         "spec",
	FieldImp:          "imp",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseField returns the field with the given name.
func ParseField(name string) (Field, bool) {
	for f, n := range fieldNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// FieldSet is a bit set of fields.
type FieldSet uint16

// With returns the set with f added.
func (s FieldSet) With(f Field) FieldSet {
	return s | 1<<uint(f)
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	return s&(1<<uint(f)) != 0
}

// Empty reports whether the set holds no fields.
func (s FieldSet) Empty() bool {
	return s == 0
}

// Fields returns the members in column order.
func (s FieldSet) Fields() []Field {
	var out []Field
	for f := FieldID; f <= FieldImp; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Edit is a raw, unvalidated set of field changes keyed by field, as a
// caller would type them ("done", "hoch", "#3, b1"). The mutation builder
// turns an Edit into validated Changes.
type Edit map[Field]string

// Changes is a validated set of typed field values. Only fields present in
// Fields are meaningful.
type Changes struct {
	Fields       FieldSet
	Status       Status
	Bereich      string
	Beschreibung string
	Prio         Priority
	MVP          MVP
	Deps         []ID
	Spec         string
	Imp          string
}

// Has reports whether the change set touches f.
func (c Changes) Has(f Field) bool {
	return c.Fields.Has(f)
}

// Empty reports whether no field is changed.
func (c Changes) Empty() bool {
	return c.Fields.Empty()
}

// SetStatus records a status change.
func (c *Changes) SetStatus(s Status) {
	c.Status = s
	c.Fields = c.Fields.With(FieldStatus)
}

// SetBereich records a bereich change.
func (c *Changes) SetBereich(v string) {
	c.Bereich = v
	c.Fields = c.Fields.With(FieldBereich)
}

// SetBeschreibung records a description change.
func (c *Changes) SetBeschreibung(v string) {
	c.Beschreibung = v
	c.Fields = c.Fields.With(FieldBeschreibung)
}

// SetPrio records a priority change.
func (c *Changes) SetPrio(p Priority) {
	c.Prio = p
	c.Fields = c.Fields.With(FieldPrio)
}

// SetMVP records an MVP change.
func (c *Changes) SetMVP(m MVP) {
	c.MVP = m
	c.Fields = c.Fields.With(FieldMVP)
}

// SetDeps records a dependency list change. The slice is copied.
func (c *Changes) SetDeps(deps []ID) {
	c.Deps = append([]ID(nil), deps...)
	c.Fields = c.Fields.With(FieldDeps)
}

// SetSpec records a spec reference change.
func (c *Changes) SetSpec(v string) {
	c.Spec = v
	c.Fields = c.Fields.With(FieldSpec)
}

// SetImp records an implementation reference change.
func (c *Changes) SetImp(v string) {
	c.Imp = v
	c.Fields = c.Fields.With(FieldImp)
}

// Apply copies the changed fields onto r.
func (c Changes) Apply(r *Record) {
	if c.Has(FieldStatus) {
		r.Status = c.Status
	}
	if c.Has(FieldBereich) {
		r.Bereich = c.Bereich
	}
	if c.Has(FieldBeschreibung) {
		r.Beschreibung = c.Beschreibung
	}
	if c.Has(FieldPrio) {
		r.Prio = c.Prio
	}
	if c.Has(FieldMVP) {
		r.MVP = c.MVP
	}
	if c.Has(FieldDeps) {
		r.Deps = append([]ID(nil), c.Deps...)
	}
	if c.Has(FieldSpec) {
		r.Spec = c.Spec
	}
	if c.Has(FieldImp) {
		r.Imp = c.Imp
	}
}

// Capture returns the values r currently holds for the fields in set.
func Capture(r Record, set FieldSet) Changes {
	var c Changes
	c.Fields = set
	c.Status = r.Status
	c.Bereich = r.Bereich
	c.Beschreibung = r.Beschreibung
	c.Prio = r.Prio
	c.MVP = r.MVP
	if set.Has(FieldDeps) {
		c.Deps = append([]ID(nil), r.Deps...)
	}
	c.Spec = r.Spec
	c.Imp = r.Imp
	return c
}
