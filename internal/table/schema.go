package table

import (
	"fmt"
	"regexp"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Column places one field at a fixed cell position. Format and Parse
// override the field's default codec when set.
type Column struct {
	Field  types.Field
	Index  int
	Format func(r types.Record) string
	Parse  func(cell string, r *types.Record) error
}

// Schema describes one table layout.
type Schema struct {
	Name string

	// Header matches the header row that opens the table.
	Header *regexp.Regexp

	Columns []Column

	// Titles are the header cells written when a new table is created.
	Titles []string

	// MinColumns is the smallest cell count of a valid body row. Columns
	// at or past MinColumns are optional.
	MinColumns int

	// Prefix is the comment marker in front of rows embedded in source
	// files, such as "//". Empty for markdown tables.
	Prefix string

	// Marker, when set, must appear on an earlier line before a header
	// is recognized.
	Marker string

	Statuses *StatusSet

	// Accept filters ids; a row whose id is rejected is malformed.
	Accept func(types.ID) bool

	// Defaults fills fields the layout has no column for.
	Defaults func(r *types.Record)

	byField map[types.Field]int
}

// NewSchema validates the column list and indexes it. A schema without
// columns, without an id column, or with two columns on one cell is a
// programming error and panics.
func NewSchema(s Schema) *Schema {
	if len(s.Columns) == 0 {
		panic(fmt.Sprintf("table: schema %q has no columns", s.Name))
	}
	if s.Statuses == nil {
		s.Statuses = DefaultStatuses()
	}
	s.byField = make(map[types.Field]int, len(s.Columns))
	seen := make(map[int]bool, len(s.Columns))
	for i, c := range s.Columns {
		if seen[c.Index] {
			panic(fmt.Sprintf("table: schema %q maps two columns to cell %d", s.Name, c.Index))
		}
		seen[c.Index] = true
		s.byField[c.Field] = i
	}
	if _, ok := s.byField[types.FieldID]; !ok {
		panic(fmt.Sprintf("table: schema %q has no id column", s.Name))
	}
	if s.MinColumns == 0 {
		s.MinColumns = s.Width()
	}
	return &s
}

// Column returns the column holding f.
func (s *Schema) Column(f types.Field) (Column, bool) {
	i, ok := s.byField[f]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}

// Has reports whether the layout has a column for f.
func (s *Schema) Has(f types.Field) bool {
	_, ok := s.byField[f]
	return ok
}

// Width is the number of cells a complete row has.
func (s *Schema) Width() int {
	w := 0
	for _, c := range s.Columns {
		if c.Index+1 > w {
			w = c.Index + 1
		}
	}
	return w
}

// Fields returns the set of fields the layout stores.
func (s *Schema) Fields() types.FieldSet {
	var set types.FieldSet
	for _, c := range s.Columns {
		set = set.With(c.Field)
	}
	return set
}

func (s *Schema) format(c Column, r types.Record) string {
	if c.Format != nil {
		return c.Format(r)
	}
	switch c.Field {
	case types.FieldID:
		return string(r.ID)
	case types.FieldStatus:
		if sym, ok := s.Statuses.Symbol(r.Status); ok {
			return sym
		}
		return None
	case types.FieldBereich:
		return FormatText(r.Bereich)
	case types.FieldBeschreibung:
		return FormatText(r.Beschreibung)
	case types.FieldPrio:
		return FormatPriority(r.Prio)
	case types.FieldMVP:
		return FormatMVP(r.MVP)
	case types.FieldDeps:
		return FormatDeps(r.Deps)
	case types.FieldSpec:
		return FormatText(r.Spec)
	case types.FieldImp:
		return FormatText(r.Imp)
	}
	return None
}

func (s *Schema) parse(c Column, cell string, r *types.Record) error {
	if c.Parse != nil {
		return c.Parse(cell, r)
	}
	switch c.Field {
	case types.FieldID:
		id, ok := types.ParseID(cell)
		if !ok {
			return types.NewError(types.KindInvalidFormat, "", "invalid id %q", cell)
		}
		r.ID = id
	case types.FieldStatus:
		// Unknown glyphs are kept as StatusUnknown; the cell is only
		// rewritten when the status changes.
		r.Status, _ = s.Statuses.Lookup(cell)
	case types.FieldBereich:
		r.Bereich = cell
	case types.FieldBeschreibung:
		r.Beschreibung = cell
	case types.FieldPrio:
		r.Prio, _ = ParsePriority(cell)
	case types.FieldMVP:
		r.MVP, _ = ParseMVP(cell)
	case types.FieldDeps:
		r.Deps = ParseDeps(cell)
	case types.FieldSpec:
		r.Spec = cell
	case types.FieldImp:
		r.Imp = cell
	}
	return nil
}

func isTask(id types.ID) bool { return !id.IsBug() }

func isBug(id types.ID) bool { return id.IsBug() }

var roadmapTitles = []string{"#", "Status", "Bereich", "Beschreibung", "Prio", "MVP?", "Deps", "Spec", "Imp."}

func roadmapColumns() []Column {
	return []Column{
		{Field: types.FieldID, Index: 0},
		{Field: types.FieldStatus, Index: 1},
		{Field: types.FieldBereich, Index: 2},
		{Field: types.FieldBeschreibung, Index: 3},
		{Field: types.FieldPrio, Index: 4},
		{Field: types.FieldMVP, Index: 5},
		{Field: types.FieldDeps, Index: 6},
		{Field: types.FieldSpec, Index: 7},
		{Field: types.FieldImp, Index: 8},
	}
}

func optionalRefs(r *types.Record) {
	if r.Spec == "" {
		r.Spec = None
	}
	if r.Imp == "" {
		r.Imp = None
	}
}

// Built-in layouts.
var (
	// TaskSchema is the canonical roadmap task row:
	// | # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |
	TaskSchema = NewSchema(Schema{
		Name:       "roadmap-task",
		Header:     regexp.MustCompile(`^\|\s*#\s*\|\s*Status\s*\|`),
		Columns:    roadmapColumns(),
		Titles:     roadmapTitles,
		MinColumns: 7,
		Accept:     isTask,
		Defaults:   optionalRefs,
	})

	// BugSchema is the canonical roadmap bug row:
	// | b# | Status | Beschreibung | Prio | Deps |
	BugSchema = NewSchema(Schema{
		Name:   "roadmap-bug",
		Header: regexp.MustCompile(`^\|\s*b#\s*\|`),
		Columns: []Column{
			{Field: types.FieldID, Index: 0},
			{Field: types.FieldStatus, Index: 1},
			{Field: types.FieldBeschreibung, Index: 2},
			{Field: types.FieldPrio, Index: 3},
			{Field: types.FieldDeps, Index: 4},
		},
		Titles: []string{"b#", "Status", "Beschreibung", "Prio", "Deps"},
		Accept: isBug,
		Defaults: func(r *types.Record) {
			r.Bereich = "Bug"
			r.MVP = types.MVPYes
			r.Spec = None
			r.Imp = None
		},
	})

	// DocOldSchema is the six column feature document row without status:
	// | # | Beschreibung | Prio | MVP? | Deps | Spec |
	DocOldSchema = NewSchema(Schema{
		Name:   "doc-old",
		Header: regexp.MustCompile(`^\|\s*#\s*\|\s*Beschreibung\s*\|`),
		Columns: []Column{
			{Field: types.FieldID, Index: 0},
			{Field: types.FieldBeschreibung, Index: 1},
			{Field: types.FieldPrio, Index: 2},
			{Field: types.FieldMVP, Index: 3},
			{Field: types.FieldDeps, Index: 4},
			{Field: types.FieldSpec, Index: 5},
		},
		Titles:   []string{"#", "Beschreibung", "Prio", "MVP?", "Deps", "Spec"},
		Accept:   isTask,
		Defaults: optionalRefs,
	})

	// DocNewSchema is the nine column feature document row, laid out like
	// the roadmap task row.
	DocNewSchema = NewSchema(Schema{
		Name:     "doc-new",
		Header:   regexp.MustCompile(`^\|\s*#\s*\|\s*Status\s*\|`),
		Columns:  roadmapColumns(),
		Titles:   roadmapTitles,
		Accept:   isTask,
		Defaults: optionalRefs,
	})

	// SourceSchema is the nine column row embedded in a source file
	// comment block after a TASKS: marker.
	SourceSchema = NewSchema(Schema{
		Name:     "source",
		Header:   regexp.MustCompile(`^\|\s*#\s*\|\s*Status\s*\|`),
		Columns:  roadmapColumns(),
		Titles:   roadmapTitles,
		Prefix:   "//",
		Marker:   "TASKS:",
		Accept:   isTask,
		Defaults: optionalRefs,
	})
)
