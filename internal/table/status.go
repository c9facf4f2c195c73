package table

import (
	"sort"
	"strings"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// StatusSet maps statuses to the glyphs written in tables and resolves
// user input (glyphs or aliases) back to statuses. It is a closed set:
// a status without a glyph cannot be written.
type StatusSet struct {
	symbols map[types.Status]string
	lookup  map[string]types.Status
}

// Glyphs of the default status set.
const (
	SymbolOpen     = "⬜"
	SymbolDone     = "✅"
	SymbolPartial  = "🔶"
	SymbolBlocked  = "⛔"
	SymbolClaimed  = "🔒"
	SymbolBroken   = "⚠️"
	SymbolReview   = "📋"
	SymbolRejected = "❌"
)

// NewStatusSet builds a set from glyphs and aliases. Aliases are matched
// case-insensitively.
func NewStatusSet(symbols map[types.Status]string, aliases map[string]types.Status) *StatusSet {
	s := &StatusSet{
		symbols: make(map[types.Status]string, len(symbols)),
		lookup:  make(map[string]types.Status, len(symbols)+len(aliases)),
	}
	for st, sym := range symbols {
		s.symbols[st] = sym
		s.lookup[normalizeStatus(sym)] = st
		s.lookup[st.String()] = st
	}
	for alias, st := range aliases {
		if _, ok := s.symbols[st]; !ok {
			continue
		}
		s.lookup[normalizeStatus(alias)] = st
	}
	return s
}

var defaultStatuses = NewStatusSet(
	map[types.Status]string{
		types.StatusOpen:     SymbolOpen,
		types.StatusDone:     SymbolDone,
		types.StatusPartial:  SymbolPartial,
		types.StatusBlocked:  SymbolBlocked,
		types.StatusClaimed:  SymbolClaimed,
		types.StatusBroken:   SymbolBroken,
		types.StatusReview:   SymbolReview,
		types.StatusRejected: SymbolRejected,
	},
	map[string]types.Status{
		"done":       types.StatusDone,
		"fertig":     types.StatusDone,
		"complete":   types.StatusDone,
		"partial":    types.StatusPartial,
		"nonconform": types.StatusPartial,
		"fast":       types.StatusPartial,
		"broken":     types.StatusBroken,
		"warning":    types.StatusBroken,
		"kaputt":     types.StatusBroken,
		"open":       types.StatusOpen,
		"todo":       types.StatusOpen,
		"offen":      types.StatusOpen,
		"ready":      types.StatusOpen,
		"bereit":     types.StatusOpen,
		"claimed":    types.StatusClaimed,
		"locked":     types.StatusClaimed,
		"wip":        types.StatusClaimed,
		"blocked":    types.StatusBlocked,
		"blockiert":  types.StatusBlocked,
		"review":     types.StatusReview,
		"rejected":   types.StatusRejected,
	},
)

// DefaultStatuses returns the status set used by the built-in schemas.
func DefaultStatuses() *StatusSet {
	return defaultStatuses
}

// normalizeStatus drops the emoji variation selector so "⚠" and "⚠️" match.
func normalizeStatus(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "\uFE0F", ""))
}

// Symbol returns the glyph written for st.
func (s *StatusSet) Symbol(st types.Status) (string, bool) {
	sym, ok := s.symbols[st]
	return sym, ok
}

// Lookup resolves a glyph, a status name, or an alias.
func (s *StatusSet) Lookup(input string) (types.Status, bool) {
	st, ok := s.lookup[normalizeStatus(input)]
	return st, ok
}

// Resolve is Lookup with a structured InvalidStatus error.
func (s *StatusSet) Resolve(input string) (types.Status, error) {
	if st, ok := s.Lookup(input); ok {
		return st, nil
	}
	return types.StatusUnknown, types.NewError(types.KindInvalidStatus, "",
		"unknown status %q (valid: %s)", input, strings.Join(s.Symbols(), " "))
}

// Symbols lists the glyphs of the set in status order.
func (s *StatusSet) Symbols() []string {
	statuses := make([]types.Status, 0, len(s.symbols))
	for st := range s.symbols {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = s.symbols[st]
	}
	return out
}
