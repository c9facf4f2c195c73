package table

import (
	"regexp"
	"strings"
)

var separatorPattern = regexp.MustCompile(`^\|[\s:|-]+\|$`)

// row is a table line cut at its pipes. lead is the text before the first
// pipe (a comment prefix for source rows), tail the text after the last.
// Cells keep their padding.
type row struct {
	lead  string
	cells []string
	tail  string
}

// splitRow cuts line into cells. Without a prefix the line must start with
// a pipe. With a prefix, the line must start with optional indentation,
// the prefix, and optional spaces before the first pipe.
func splitRow(line, prefix string) (row, bool) {
	first := strings.IndexByte(line, '|')
	if first < 0 {
		return row{}, false
	}
	lead := line[:first]
	if prefix == "" {
		if lead != "" {
			return row{}, false
		}
	} else {
		rest := strings.TrimLeft(lead, " \t")
		if !strings.HasPrefix(rest, prefix) || strings.TrimSpace(strings.TrimPrefix(rest, prefix)) != "" {
			return row{}, false
		}
	}
	last := strings.LastIndexByte(line, '|')
	if last == first {
		return row{}, false
	}
	return row{
		lead:  lead,
		cells: strings.Split(line[first+1:last], "|"),
		tail:  line[last+1:],
	}, true
}

func (r row) String() string {
	return r.lead + "|" + strings.Join(r.cells, "|") + "|" + r.tail
}

// value returns the trimmed text of cell i, or "" past the end.
func (r row) value(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// SplitLine returns the trimmed cells of a table row, or nil if line is not
// a row.
func SplitLine(line string) []string {
	r, ok := splitRow(strings.TrimRight(line, "\r"), "")
	if !ok {
		return nil
	}
	out := make([]string, len(r.cells))
	for i := range r.cells {
		out[i] = r.value(i)
	}
	return out
}

// IsSeparator reports whether line is a markdown separator row such as
// |---|:--:|.
func IsSeparator(line string) bool {
	return separatorPattern.MatchString(strings.TrimSpace(line))
}

// stripPrefix removes indentation and a comment prefix from line. It
// returns false if the prefix is required and missing.
func stripPrefix(line, prefix string) (string, bool) {
	if prefix == "" {
		return line, true
	}
	rest := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(rest, prefix) {
		return "", false
	}
	return strings.TrimLeft(strings.TrimPrefix(rest, prefix), " \t"), true
}
