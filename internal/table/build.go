package table

import (
	"strings"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Build rewrites the cells of the changed fields in line. Fields the
// schema has no column for are ignored, every other cell and the text
// around the row are kept byte for byte. A rewritten cell is padded with
// one space on each side.
func Build(line string, ch types.Changes, s *Schema) (string, error) {
	r, ok := splitRow(line, s.Prefix)
	if !ok {
		return "", types.NewError(types.KindInvalidFormat, "", "not a %s row: %q", s.Name, line)
	}
	if ch.Has(types.FieldStatus) {
		if _, ok := s.Statuses.Symbol(ch.Status); !ok {
			return "", types.NewError(types.KindInvalidStatus, "", "status %s has no symbol in %s", ch.Status, s.Name)
		}
	}
	var rec types.Record
	ch.Apply(&rec)
	for _, f := range ch.Fields.Fields() {
		c, ok := s.Column(f)
		if !ok || f == types.FieldID {
			continue
		}
		r.setCell(c.Index, s.format(c, rec))
	}
	return r.String(), nil
}

// BuildRow renders a complete row for rec in the layout of s.
func BuildRow(rec types.Record, s *Schema) string {
	cells := make([]string, s.Width())
	for i := range cells {
		cells[i] = " " + None + " "
	}
	for _, c := range s.Columns {
		cells[c.Index] = " " + s.format(c, rec) + " "
	}
	r := row{cells: cells}
	if s.Prefix != "" {
		r.lead = s.Prefix + " "
	}
	return r.String()
}

// BuildRowLike renders rec in the layout of s, indented like the row
// like. It is used to insert a row next to an existing one.
func BuildRowLike(rec types.Record, s *Schema, like string) string {
	out := BuildRow(rec, s)
	if first := strings.IndexByte(like, '|'); first > 0 {
		out = like[:first] + out[strings.IndexByte(out, '|'):]
	}
	return out
}

// HeaderLines returns the header and separator rows that open a new table
// of layout s.
func HeaderLines(s *Schema) []string {
	titles := make([]string, len(s.Titles))
	seps := make([]string, len(s.Titles))
	for i, t := range s.Titles {
		titles[i] = " " + t + " "
		seps[i] = strings.Repeat("-", len(t)+2)
	}
	lead := ""
	if s.Prefix != "" {
		lead = s.Prefix + " "
	}
	return []string{
		lead + "|" + strings.Join(titles, "|") + "|",
		lead + "|" + strings.Join(seps, "|") + "|",
	}
}

// SyncRow rewrites the cells of line whose value differs from rec for the
// given fields. It reports whether anything changed. Cells that already
// hold an equivalent value keep their spelling and padding.
func SyncRow(line string, rec types.Record, s *Schema, fields types.FieldSet) (string, bool, error) {
	r, ok := splitRow(line, s.Prefix)
	if !ok {
		return line, false, types.NewError(types.KindInvalidFormat, rec.ID, "not a %s row: %q", s.Name, line)
	}
	changed := false
	for _, f := range fields.Fields() {
		c, ok := s.Column(f)
		if !ok || f == types.FieldID {
			continue
		}
		if c.Index < len(r.cells) && s.equivalent(c, r.value(c.Index), rec) {
			continue
		}
		r.setCell(c.Index, s.format(c, rec))
		changed = true
	}
	if !changed {
		return line, false, nil
	}
	return r.String(), true, nil
}

// equivalent reports whether cell already encodes rec's value for c.
func (s *Schema) equivalent(c Column, cell string, rec types.Record) bool {
	want := s.format(c, rec)
	if cell == want {
		return true
	}
	if c.Format != nil {
		return false
	}
	switch c.Field {
	case types.FieldStatus:
		st, ok := s.Statuses.Lookup(cell)
		return ok && st == rec.Status
	case types.FieldDeps:
		return FormatDeps(ParseDeps(cell)) == want
	case types.FieldPrio:
		p, ok := ParsePriority(cell)
		return ok && p == rec.Prio
	case types.FieldMVP:
		m, ok := ParseMVP(cell)
		return ok && m == rec.MVP
	case types.FieldBereich, types.FieldBeschreibung, types.FieldSpec, types.FieldImp:
		return FormatText(cell) == want
	}
	return false
}

// setCell replaces cell i, padding the row with "-" cells if it is short.
func (r *row) setCell(i int, v string) {
	for len(r.cells) <= i {
		r.cells = append(r.cells, " "+None+" ")
	}
	r.cells[i] = " " + v + " "
}

// Cell returns the trimmed value of the cell holding f in line.
func Cell(line string, f types.Field, s *Schema) (string, bool) {
	c, ok := s.Column(f)
	if !ok {
		return "", false
	}
	r, ok := splitRow(line, s.Prefix)
	if !ok || c.Index >= len(r.cells) {
		return "", false
	}
	return strings.TrimSpace(r.cells[c.Index]), true
}
