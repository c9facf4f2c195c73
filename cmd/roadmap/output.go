package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// emit writes v as indented JSON in JSON mode and calls text otherwise.
func (a *app) emit(v any, text func()) error {
	if !a.flags.jsonMode {
		text()
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError{fmt.Errorf("marshal JSON: %w", err)}
	}
	fmt.Fprintln(a.out, string(out))
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// batchResultJSON is a batch result in JSON output.
type batchResultJSON[T any] struct {
	Success []T             `json:"success"`
	Failed  []types.Failure `json:"failed"`
}

func batchJSON[T any](b types.BatchResult[T]) batchResultJSON[T] {
	out := batchResultJSON[T]{Success: b.Success, Failed: b.Failed}
	if out.Success == nil {
		out.Success = []T{}
	}
	if out.Failed == nil {
		out.Failed = []types.Failure{}
	}
	return out
}

func (a *app) printFailures(fs []types.Failure) {
	for _, f := range fs {
		a.printf("  failed %s: %v\n", f.ID.Ref(), f.Err)
	}
}

// recordJSON is a record in JSON output.
type recordJSON struct {
	ID           types.ID   `json:"id"`
	Status       string     `json:"status"`
	Symbol       string     `json:"symbol"`
	Bereich      string     `json:"bereich"`
	Beschreibung string     `json:"beschreibung"`
	Prio         string     `json:"prio"`
	MVP          string     `json:"mvp"`
	Deps         []types.ID `json:"deps"`
	Spec         string     `json:"spec,omitempty"`
	Imp          string     `json:"imp,omitempty"`
}

func toJSON(r types.Record) recordJSON {
	deps := r.Deps
	if deps == nil {
		deps = []types.ID{}
	}
	return recordJSON{
		ID:           r.ID,
		Status:       r.Status.String(),
		Symbol:       symbol(r.Status),
		Bereich:      r.Bereich,
		Beschreibung: r.Beschreibung,
		Prio:         r.Prio.String(),
		MVP:          r.MVP.String(),
		Deps:         deps,
		Spec:         optional(r.Spec),
		Imp:          optional(r.Imp),
	}
}

func symbol(st types.Status) string {
	if s, ok := table.DefaultStatuses().Symbol(st); ok {
		return s
	}
	return "?"
}

func optional(v string) string {
	if v == table.None {
		return ""
	}
	return v
}

// line renders a record as one list row.
func line(r types.Record) string {
	deps := ""
	if len(r.Deps) > 0 {
		deps = "  deps " + table.FormatDeps(r.Deps)
	}
	return fmt.Sprintf("%-5s %s  %-8s %-16s %s%s", r.ID.Ref(), symbol(r.Status), table.FormatPriority(r.Prio),
		truncate(r.Bereich, 16), r.Beschreibung, deps)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// parseIDs parses command arguments as record ids.
func parseIDs(args []string) ([]types.ID, error) {
	var ids []types.ID
	for _, arg := range args {
		for _, raw := range strings.Split(arg, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, ok := types.ParseID(raw)
			if !ok {
				return nil, types.NewError(types.KindInvalidFormat, "", "invalid id %q", raw)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, types.NewError(types.KindInvalidFormat, "", "no id given")
	}
	return ids, nil
}
