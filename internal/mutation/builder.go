// Package mutation validates field changes against one record and turns
// them into a ready-to-write Mutation.
package mutation

import (
	"strings"

	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Builder collects changes to one record. Setters never fail; invalid
// input is recorded and reported by Build. The record itself is never
// modified.
type Builder struct {
	rec     types.Record
	schema  *table.Schema
	changes types.Changes
	errs    []*types.Error
}

// New returns a builder for rec laid out as schema.
func New(rec types.Record, schema *table.Schema) *Builder {
	return &Builder{rec: rec.Clone(), schema: schema}
}

// For returns a builder using the canonical roadmap layout of rec.
func For(rec types.Record) *Builder {
	return New(rec, SchemaFor(rec.ID))
}

// SchemaFor returns the roadmap layout that holds id.
func SchemaFor(id types.ID) *table.Schema {
	if id.IsBug() {
		return table.BugSchema
	}
	return table.TaskSchema
}

func (b *Builder) fail(kind types.Kind, format string, args ...any) *Builder {
	b.errs = append(b.errs, types.NewError(kind, b.rec.ID, format, args...))
	return b
}

func (b *Builder) supports(f types.Field) bool {
	if b.schema.Has(f) {
		return true
	}
	b.fail(types.KindInvalidFormat, "%s has no %s column", b.schema.Name, f)
	return false
}

// SetStatus resolves input through the schema's status set, accepting
// glyphs, names and aliases.
func (b *Builder) SetStatus(input string) *Builder {
	st, err := b.schema.Statuses.Resolve(input)
	if err != nil {
		return b.fail(types.KindInvalidStatus, "unknown status %q (valid: %s)",
			input, strings.Join(b.schema.Statuses.Symbols(), " "))
	}
	return b.WithStatus(st)
}

// WithStatus sets a typed status.
func (b *Builder) WithStatus(st types.Status) *Builder {
	if !b.supports(types.FieldStatus) {
		return b
	}
	if _, ok := b.schema.Statuses.Symbol(st); !ok {
		return b.fail(types.KindInvalidStatus, "status %s cannot be written", st)
	}
	if st != b.rec.Status {
		b.changes.SetStatus(st)
	}
	return b
}

// SetBereich sets the domain. It must not be blank.
func (b *Builder) SetBereich(v string) *Builder {
	v, ok := b.text(types.FieldBereich, v, false)
	if ok && v != b.rec.Bereich {
		b.changes.SetBereich(v)
	}
	return b
}

// SetBeschreibung sets the description. It must not be blank.
func (b *Builder) SetBeschreibung(v string) *Builder {
	v, ok := b.text(types.FieldBeschreibung, v, false)
	if ok && v != b.rec.Beschreibung {
		b.changes.SetBeschreibung(v)
	}
	return b
}

// SetPrio accepts hoch/mittel/niedrig and high/medium/low.
func (b *Builder) SetPrio(input string) *Builder {
	p, ok := table.ParsePriority(input)
	if !ok {
		return b.fail(types.KindInvalidFormat, "invalid priority %q (valid: %s, %s, %s)",
			input, table.PrioHigh, table.PrioMedium, table.PrioLow)
	}
	return b.WithPrio(p)
}

// WithPrio sets a typed priority.
func (b *Builder) WithPrio(p types.Priority) *Builder {
	if !b.supports(types.FieldPrio) {
		return b
	}
	if p == types.PrioUnknown {
		return b.fail(types.KindInvalidFormat, "priority must be set")
	}
	if p != b.rec.Prio {
		b.changes.SetPrio(p)
	}
	return b
}

// SetMVP accepts Ja/Nein and yes/no.
func (b *Builder) SetMVP(input string) *Builder {
	m, ok := table.ParseMVP(input)
	if !ok {
		return b.fail(types.KindInvalidFormat, "invalid mvp %q (valid: %s, %s)",
			input, table.MVPYes, table.MVPNo)
	}
	return b.WithMVP(m)
}

// WithMVP sets a typed MVP flag.
func (b *Builder) WithMVP(m types.MVP) *Builder {
	if !b.supports(types.FieldMVP) {
		return b
	}
	if m == types.MVPUnknown {
		return b.fail(types.KindInvalidFormat, "mvp must be set")
	}
	if m != b.rec.MVP {
		b.changes.SetMVP(m)
	}
	return b
}

// SetDeps parses a dependency cell such as "#1, #2, b3". "-" clears.
func (b *Builder) SetDeps(input string) *Builder {
	raw := strings.TrimSpace(input)
	if raw == "" || raw == table.None {
		return b.ClearDeps()
	}
	deps := table.ParseDeps(raw)
	if len(deps) == 0 {
		return b.fail(types.KindInvalidFormat, "invalid dependencies %q", input)
	}
	return b.WithDeps(deps)
}

// WithDeps sets a typed dependency list. Duplicates are an InvalidFormat
// error and a self-reference a CircularDependency error.
func (b *Builder) WithDeps(deps []types.ID) *Builder {
	if !b.supports(types.FieldDeps) {
		return b
	}
	seen := make(map[types.ID]bool, len(deps))
	for _, d := range deps {
		if d == b.rec.ID {
			return b.fail(types.KindCircularDependency, "a record cannot depend on itself")
		}
		if seen[d] {
			return b.fail(types.KindInvalidFormat, "dependency %s listed twice", d.Ref())
		}
		seen[d] = true
	}
	if !sameIDs(deps, b.rec.Deps) {
		b.changes.SetDeps(deps)
	}
	return b
}

// ClearDeps removes every dependency.
func (b *Builder) ClearDeps() *Builder {
	if !b.supports(types.FieldDeps) {
		return b
	}
	if len(b.rec.Deps) > 0 {
		b.changes.SetDeps(nil)
	}
	return b
}

// SetSpec sets the spec reference. Blank means "-".
func (b *Builder) SetSpec(v string) *Builder {
	v, ok := b.text(types.FieldSpec, v, true)
	if ok && v != b.rec.Spec {
		b.changes.SetSpec(v)
	}
	return b
}

// SetImp sets the implementation reference. Blank means "-".
func (b *Builder) SetImp(v string) *Builder {
	v, ok := b.text(types.FieldImp, v, true)
	if ok && v != b.rec.Imp {
		b.changes.SetImp(v)
	}
	return b
}

// text validates a free-text cell value.
func (b *Builder) text(f types.Field, v string, optional bool) (string, bool) {
	if !b.supports(f) {
		return "", false
	}
	v = strings.TrimSpace(v)
	if strings.ContainsAny(v, "|\n") {
		b.fail(types.KindInvalidFormat, "%s must not contain '|' or line breaks", f)
		return "", false
	}
	if v == "" {
		if !optional {
			b.fail(types.KindInvalidFormat, "%s must not be empty", f)
			return "", false
		}
		v = table.None
	}
	return v, true
}

// Apply runs the setter of every field in edit, in column order.
func (b *Builder) Apply(edit types.Edit) *Builder {
	for _, f := range types.EditableFields {
		v, ok := edit[f]
		if !ok {
			continue
		}
		switch f {
		case types.FieldStatus:
			b.SetStatus(v)
		case types.FieldBereich:
			b.SetBereich(v)
		case types.FieldBeschreibung:
			b.SetBeschreibung(v)
		case types.FieldPrio:
			b.SetPrio(v)
		case types.FieldMVP:
			b.SetMVP(v)
		case types.FieldDeps:
			b.SetDeps(v)
		case types.FieldSpec:
			b.SetSpec(v)
		case types.FieldImp:
			b.SetImp(v)
		}
	}
	if _, ok := edit[types.FieldID]; ok {
		b.fail(types.KindInvalidFormat, "the id cannot be edited")
	}
	return b
}

// ApplyChanges runs the typed setter of every field in ch.
func (b *Builder) ApplyChanges(ch types.Changes) *Builder {
	for _, f := range ch.Fields.Fields() {
		switch f {
		case types.FieldStatus:
			b.WithStatus(ch.Status)
		case types.FieldBereich:
			b.SetBereich(ch.Bereich)
		case types.FieldBeschreibung:
			b.SetBeschreibung(ch.Beschreibung)
		case types.FieldPrio:
			b.WithPrio(ch.Prio)
		case types.FieldMVP:
			b.WithMVP(ch.MVP)
		case types.FieldDeps:
			b.WithDeps(ch.Deps)
		case types.FieldSpec:
			b.SetSpec(ch.Spec)
		case types.FieldImp:
			b.SetImp(ch.Imp)
		default:
			b.fail(types.KindInvalidFormat, "the %s field cannot be edited", f)
		}
	}
	return b
}

// HasChanges reports whether any setter recorded an actual change.
func (b *Builder) HasChanges() bool {
	return !b.changes.Empty()
}

// Changes returns the validated changes recorded so far.
func (b *Builder) Changes() types.Changes {
	return b.changes
}

// Err returns the aggregated validation error, or nil.
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	if len(b.errs) == 1 {
		return b.errs[0]
	}
	msgs := make([]string, len(b.errs))
	for i, e := range b.errs {
		msgs[i] = e.Message
	}
	return &types.Error{
		Kind:    b.errs[0].Kind,
		ID:      b.rec.ID,
		Message: strings.Join(msgs, "; "),
	}
}

// Build validates the collected changes and renders the new row. It fails
// on any setter error, and with NoChanges if nothing would change.
func (b *Builder) Build() (*types.Mutation, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	if !b.HasChanges() {
		return nil, types.NewError(types.KindNoChanges, b.rec.ID, "no field would change")
	}
	line, err := table.Build(b.rec.OriginalLine, b.changes, b.schema)
	if err != nil {
		return nil, err
	}
	return &types.Mutation{
		TaskID:    b.rec.ID,
		Original:  types.Capture(b.rec, b.changes.Fields),
		Changes:   b.changes,
		OldLine:   b.rec.OriginalLine,
		NewLine:   line,
		LineIndex: b.rec.LineIndex,
	}, nil
}

func sameIDs(a, b []types.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
