package table

import (
	"strings"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Entry is a parsed record and the layout it was read with.
type Entry struct {
	Record types.Record
	Schema *Schema
}

// Layout groups the schemas recognized in one kind of file.
var (
	RoadmapSchemas = []*Schema{TaskSchema, BugSchema}
	DocSchemas     = []*Schema{DocNewSchema, DocOldSchema}
	SourceSchemas  = []*Schema{SourceSchema}
)

// ParseRow parses a single body row. It returns false for header and
// separator rows, for rows with fewer than MinColumns cells, and for rows
// whose id is invalid or rejected by the schema.
func ParseRow(line string, s *Schema) (types.Record, bool) {
	r, ok := splitRow(line, s.Prefix)
	if !ok || len(r.cells) < s.MinColumns {
		return types.Record{}, false
	}
	rec := types.Record{OriginalLine: line}
	for _, c := range s.Columns {
		if c.Index >= len(r.cells) {
			continue
		}
		if err := s.parse(c, r.value(c.Index), &rec); err != nil {
			return types.Record{}, false
		}
	}
	if rec.ID == "" || (s.Accept != nil && !s.Accept(rec.ID)) {
		return types.Record{}, false
	}
	if s.Defaults != nil {
		s.Defaults(&rec)
	}
	return rec, true
}

// Parse returns the records of every table in text laid out as s.
func Parse(text string, s *Schema) []types.Record {
	entries := ParseLines(SplitLines(text), s)
	out := make([]types.Record, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out
}

// ParseRoadmap parses the canonical roadmap into tasks and bugs.
func ParseRoadmap(text string) *types.Snapshot {
	lines := SplitLines(text)
	snap := &types.Snapshot{Lines: lines}
	for _, e := range ParseLines(lines, RoadmapSchemas...) {
		if e.Record.IsBug() {
			snap.Bugs = append(snap.Bugs, e.Record)
		} else {
			snap.Tasks = append(snap.Tasks, e.Record)
		}
	}
	return snap
}

// SplitLines splits text on newlines. Joining the result with "\n"
// restores text exactly.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// ParseLines scans lines for tables opened by a header of any of the given
// schemas. A table runs until a blank line, a heading, or a line that is
// not a row. Separator rows are skipped and malformed rows ignored.
func ParseLines(lines []string, schemas ...*Schema) []Entry {
	var (
		out    []Entry
		active *Schema
		marked = make(map[*Schema]bool)
	)
	for i, line := range lines {
		if s := matchHeader(line, schemas, marked); s != nil {
			active = s
			continue
		}
		if active == nil {
			continue
		}
		body, ok := stripPrefix(line, active.Prefix)
		body = strings.TrimSpace(body)
		switch {
		case !ok || body == "" || strings.HasPrefix(body, "#") || !strings.HasPrefix(body, "|"):
			active = nil
		case IsSeparator(body):
		default:
			if rec, ok := ParseRow(line, active); ok {
				rec.LineIndex = i
				out = append(out, Entry{Record: rec, Schema: active})
			}
		}
	}
	return out
}

func matchHeader(line string, schemas []*Schema, marked map[*Schema]bool) *Schema {
	for _, s := range schemas {
		body, ok := stripPrefix(line, s.Prefix)
		if !ok {
			continue
		}
		if s.Marker != "" && !marked[s] {
			if strings.Contains(body, s.Marker) {
				marked[s] = true
			}
			continue
		}
		if s.Header.MatchString(strings.TrimSpace(body)) {
			return s
		}
	}
	return nil
}

// HasMarker reports whether any line of text carries the marker of a
// schema that requires one.
func HasMarker(text string, schemas ...*Schema) bool {
	for _, s := range schemas {
		if s.Marker != "" && strings.Contains(text, s.Marker) {
			return true
		}
	}
	return false
}

// Find returns the first entry with the given id.
func Find(entries []Entry, id types.ID) (Entry, bool) {
	for _, e := range entries {
		if e.Record.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// FindAll returns every entry with the given id.
func FindAll(entries []Entry, id types.ID) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Record.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// TableEnd returns the index just past the last line of the last table
// laid out as s, so that a row inserted there extends that table. It
// reports false when lines hold no such table.
func TableEnd(lines []string, s *Schema) (int, bool) {
	var (
		end    = -1
		inside bool
		marked = make(map[*Schema]bool)
	)
	for i, line := range lines {
		if h := matchHeader(line, []*Schema{s}, marked); h != nil {
			inside = true
			end = i + 1
			continue
		}
		if !inside {
			continue
		}
		body, ok := stripPrefix(line, s.Prefix)
		body = strings.TrimSpace(body)
		if !ok || body == "" || strings.HasPrefix(body, "#") || !strings.HasPrefix(body, "|") {
			inside = false
			continue
		}
		end = i + 1
	}
	return end, end >= 0
}
