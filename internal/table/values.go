package table

import (
	"regexp"
	"strings"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Serialized priority and MVP values.
const (
	PrioHigh   = "hoch"
	PrioMedium = "mittel"
	PrioLow    = "niedrig"
	MVPYes     = "Ja"
	MVPNo      = "Nein"
	None       = "-"
)

var prioLookup = map[string]types.Priority{
	PrioHigh:   types.PrioHigh,
	PrioMedium: types.PrioMedium,
	PrioLow:    types.PrioLow,
	"high":     types.PrioHigh,
	"medium":   types.PrioMedium,
	"low":      types.PrioLow,
}

var mvpLookup = map[string]types.MVP{
	"ja":   types.MVPYes,
	"nein": types.MVPNo,
	"yes":  types.MVPYes,
	"no":   types.MVPNo,
}

// ParsePriority accepts the German table values and their English names.
func ParsePriority(s string) (types.Priority, bool) {
	p, ok := prioLookup[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

// FormatPriority returns the table value of p.
func FormatPriority(p types.Priority) string {
	switch p {
	case types.PrioHigh:
		return PrioHigh
	case types.PrioMedium:
		return PrioMedium
	case types.PrioLow:
		return PrioLow
	default:
		return None
	}
}

// ParseMVP accepts Ja/Nein and yes/no in any case.
func ParseMVP(s string) (types.MVP, bool) {
	m, ok := mvpLookup[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// FormatMVP returns the table value of m.
func FormatMVP(m types.MVP) string {
	switch m {
	case types.MVPYes:
		return MVPYes
	case types.MVPNo:
		return MVPNo
	default:
		return None
	}
}

var depPattern = regexp.MustCompile(`(?i)#(\d+[a-z]?)|\bb(\d+)`)

// ParseDeps extracts dependency ids from a cell such as "#12, #428b, b3".
// "-" and the empty string mean no dependencies.
func ParseDeps(raw string) []types.ID {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == None {
		return nil
	}
	var deps []types.ID
	for _, m := range depPattern.FindAllStringSubmatch(raw, -1) {
		var id types.ID
		var ok bool
		if m[1] != "" {
			id, ok = types.ParseID(m[1])
		} else {
			id, ok = types.ParseID("b" + m[2])
		}
		if ok {
			deps = append(deps, id)
		}
	}
	return deps
}

// FormatDeps joins ids as "#1, #2, b3", or "-" when empty.
func FormatDeps(deps []types.ID) string {
	if len(deps) == 0 {
		return None
	}
	refs := make([]string, len(deps))
	for i, id := range deps {
		refs[i] = id.Ref()
	}
	return strings.Join(refs, ", ")
}

// FormatText returns v, or "-" when v is blank.
func FormatText(v string) string {
	if strings.TrimSpace(v) == "" {
		return None
	}
	return strings.TrimSpace(v)
}
