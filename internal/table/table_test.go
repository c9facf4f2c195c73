package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

const roadmapFixture = `# Roadmap

## Tasks

| # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |
|---|--------|---------|--------------|------|------|------|------|------|
| 1 | ✅ | Core | Parser bauen | hoch | Ja | - | docs/parser.md | src/parser.ts |
| 2 |  ⬜  | Core | Builder bauen | mittel | Ja | #1 | - | - |
| 3 | ⛔ | UI | Editor | niedrig | Nein | #1, #2, b1 | - |
| 428b | 🔶 | UI | Teilaufgabe | mittel | Nein | #3 | - | - |
| x | ⬜ | UI | kaputte Zeile | mittel | Nein | - | - | - |
| 9 | ⬜ | zu kurz |

## Bugs

| b# | Status | Beschreibung | Prio | Deps |
|----|--------|--------------|------|------|
| b1 | ⚠️ | Absturz beim Laden | hoch | #1 |
`

func TestParseRoadmap(t *testing.T) {
	snap := ParseRoadmap(roadmapFixture)

	require.Len(t, snap.Tasks, 4)
	require.Len(t, snap.Bugs, 1)
	assert.Equal(t, strings.Count(roadmapFixture, "\n")+1, len(snap.Lines))

	first := snap.Tasks[0]
	assert.Equal(t, types.ID("1"), first.ID)
	assert.Equal(t, types.StatusDone, first.Status)
	assert.Equal(t, "Core", first.Bereich)
	assert.Equal(t, "Parser bauen", first.Beschreibung)
	assert.Equal(t, types.PrioHigh, first.Prio)
	assert.Equal(t, types.MVPYes, first.MVP)
	assert.Empty(t, first.Deps)
	assert.Equal(t, "docs/parser.md", first.Spec)
	assert.Equal(t, "src/parser.ts", first.Imp)
	assert.Equal(t, 6, first.LineIndex)
	assert.Equal(t, snap.Lines[6], first.OriginalLine)

	third := snap.Tasks[2]
	assert.Equal(t, []types.ID{"1", "2", "b1"}, third.Deps)
	assert.Equal(t, types.StatusBlocked, third.Status)
	assert.Equal(t, "-", third.Imp, "missing optional column takes the default")

	assert.Equal(t, types.ID("428b"), snap.Tasks[3].ID)
	assert.Equal(t, types.StatusPartial, snap.Tasks[3].Status)

	bug := snap.Bugs[0]
	assert.Equal(t, types.ID("b1"), bug.ID)
	assert.Equal(t, types.StatusBroken, bug.Status)
	assert.Equal(t, "Bug", bug.Bereich)
	assert.Equal(t, types.MVPYes, bug.MVP)
	assert.Equal(t, []types.ID{"1"}, bug.Deps)
	assert.Equal(t, 17, bug.LineIndex)
}

func TestParseSkipsRowsOutsideTables(t *testing.T) {
	text := "| 1 | ⬜ | Core | lose Zeile | hoch | Ja | - | - | - |\n\n" +
		"| # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |\n" +
		"|---|---|---|---|---|---|---|---|---|\n" +
		"| 2 | ⬜ | Core | drin | hoch | Ja | - | - | - |\n" +
		"Fliesstext beendet die Tabelle\n" +
		"| 3 | ⬜ | Core | draussen | hoch | Ja | - | - | - |\n"

	recs := Parse(text, TaskSchema)
	require.Len(t, recs, 1)
	assert.Equal(t, types.ID("2"), recs[0].ID)
	assert.Equal(t, 4, recs[0].LineIndex)
}

func TestBuildRoundTrip(t *testing.T) {
	lines := SplitLines(roadmapFixture)
	for _, e := range ParseLines(lines, RoadmapSchemas...) {
		t.Run(string(e.Record.ID), func(t *testing.T) {
			got, err := Build(e.Record.OriginalLine, types.Changes{}, e.Schema)
			require.NoError(t, err)
			assert.Equal(t, e.Record.OriginalLine, got)

			all := e.Schema.Fields()
			rebuilt, err := Build(e.Record.OriginalLine, types.Capture(e.Record, all), e.Schema)
			require.NoError(t, err)
			again, ok := ParseRow(rebuilt, e.Schema)
			require.True(t, ok)
			again.OriginalLine = e.Record.OriginalLine
			again.LineIndex = e.Record.LineIndex
			assert.Equal(t, e.Record, again)
		})
	}
}

func TestBuildRewritesOnlyChangedCells(t *testing.T) {
	line := "| 2 |  ⬜  | Core | Builder bauen | mittel | Ja | #1 | - | - |"

	var ch types.Changes
	ch.SetStatus(types.StatusDone)
	got, err := Build(line, ch, TaskSchema)
	require.NoError(t, err)
	assert.Equal(t, "| 2 | ✅ | Core | Builder bauen | mittel | Ja | #1 | - | - |", got)

	ch = types.Changes{}
	ch.SetDeps([]types.ID{"1", "b2"})
	ch.SetPrio(types.PrioHigh)
	got, err = Build(line, ch, TaskSchema)
	require.NoError(t, err)
	assert.Equal(t, "| 2 |  ⬜  | Core | Builder bauen | hoch | Ja | #1, b2 | - | - |", got)

	ch = types.Changes{}
	ch.SetDeps(nil)
	got, err = Build(line, ch, TaskSchema)
	require.NoError(t, err)
	assert.Equal(t, "| 2 |  ⬜  | Core | Builder bauen | mittel | Ja | - | - | - |", got)
}

func TestBuildPadsShortRows(t *testing.T) {
	line := "| 3 | ⛔ | UI | Editor | niedrig | Nein | #1 |"
	var ch types.Changes
	ch.SetImp("src/editor.ts")
	got, err := Build(line, ch, TaskSchema)
	require.NoError(t, err)
	assert.Equal(t, "| 3 | ⛔ | UI | Editor | niedrig | Nein | #1 | - | src/editor.ts |", got)
}

func TestBuildIgnoresFieldsWithoutColumn(t *testing.T) {
	line := "| b1 | ⚠️ | Absturz | hoch | #1 |"
	var ch types.Changes
	ch.SetMVP(types.MVPNo)
	ch.SetStatus(types.StatusDone)
	got, err := Build(line, ch, BugSchema)
	require.NoError(t, err)
	assert.Equal(t, "| b1 | ✅ | Absturz | hoch | #1 |", got)
}

func TestBuildRejectsNonRow(t *testing.T) {
	_, err := Build("kein Tabellenzeile", types.Changes{}, TaskSchema)
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidFormat, types.KindOf(err))
}

func TestBuildRow(t *testing.T) {
	rec := types.Record{
		ID:           "5",
		Status:       types.StatusOpen,
		Bereich:      "Core",
		Beschreibung: "Neue Aufgabe",
		Prio:         types.PrioHigh,
		MVP:          types.MVPYes,
		Deps:         []types.ID{"1"},
	}
	assert.Equal(t, "| 5 | ⬜ | Core | Neue Aufgabe | hoch | Ja | #1 | - | - |", BuildRow(rec, TaskSchema))
	assert.Equal(t, "// | 5 | ⬜ | Core | Neue Aufgabe | hoch | Ja | #1 | - | - |", BuildRow(rec, SourceSchema))
	assert.Equal(t, "| 5 | Neue Aufgabe | hoch | Ja | #1 | - |", BuildRow(rec, DocOldSchema))

	parsed, ok := ParseRow(BuildRow(rec, SourceSchema), SourceSchema)
	require.True(t, ok)
	assert.Equal(t, rec.Beschreibung, parsed.Beschreibung)
	assert.Equal(t, rec.Deps, parsed.Deps)
}

func TestSyncRow(t *testing.T) {
	rec := types.Record{
		ID:           "2",
		Status:       types.StatusBroken,
		Bereich:      "Core",
		Beschreibung: "Builder bauen",
		Prio:         types.PrioMedium,
		MVP:          types.MVPYes,
		Deps:         []types.ID{"1"},
		Spec:         "-",
		Imp:          "-",
	}
	sync := types.FieldSet(0).
		With(types.FieldStatus).
		With(types.FieldBeschreibung).
		With(types.FieldDeps)

	t.Run("equivalent cells are kept", func(t *testing.T) {
		line := "| 2 | ⚠ | Core | Builder bauen | mittel | Ja | #1 | - | - |"
		got, changed, err := SyncRow(line, rec, DocNewSchema, sync)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, line, got)
	})

	t.Run("drifted cells are rewritten", func(t *testing.T) {
		line := "| 2 | ⬜ | Core | Builder  | mittel | Ja | #1 | - | - |"
		got, changed, err := SyncRow(line, rec, DocNewSchema, sync)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "| 2 | ⚠️ | Core | Builder bauen | mittel | Ja | #1 | - | - |", got)
	})

	t.Run("old layout has no status", func(t *testing.T) {
		line := "| 2 | Builder | mittel | Ja | - | - |"
		got, changed, err := SyncRow(line, rec, DocOldSchema, sync)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "| 2 | Builder bauen | mittel | Ja | #1 | - |", got)
	})
}

func TestParseDocuments(t *testing.T) {
	doc := `# Feature

| # | Beschreibung | Prio | MVP? | Deps | Spec |
|---|---|---|---|---|---|
| 2 | Builder bauen | mittel | Ja | #1 | - |

| # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |
|---|---|---|---|---|---|---|---|---|
| 3 | ⛔ | UI | Editor | niedrig | Nein | #1, #2 | - | - |
`
	entries := ParseLines(SplitLines(doc), DocSchemas...)
	require.Len(t, entries, 2)
	assert.Equal(t, DocOldSchema, entries[0].Schema)
	assert.Equal(t, types.StatusUnknown, entries[0].Record.Status)
	assert.Equal(t, DocNewSchema, entries[1].Schema)
	assert.Equal(t, types.StatusBlocked, entries[1].Record.Status)

	e, ok := Find(entries, "3")
	require.True(t, ok)
	assert.Equal(t, 8, e.Record.LineIndex)
}

func TestParseSourceRequiresMarker(t *testing.T) {
	const rows = "// | # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |\n" +
		"// |---|---|---|---|---|---|---|---|---|\n" +
		"// | 2 | ⬜ | Core | Builder bauen | mittel | Ja | #1 | - | - |\n" +
		"func Build() {}\n"

	assert.Empty(t, Parse("package core\n\n"+rows, SourceSchema))

	src := "package core\n\n// TASKS:\n" + rows
	assert.True(t, HasMarker(src, SourceSchemas...))
	recs := Parse(src, SourceSchema)
	require.Len(t, recs, 1)
	assert.Equal(t, types.ID("2"), recs[0].ID)
	assert.Equal(t, 5, recs[0].LineIndex)
}

func TestParseDeps(t *testing.T) {
	tests := []struct {
		raw  string
		want []types.ID
	}{
		{raw: "-", want: nil},
		{raw: "", want: nil},
		{raw: "#1", want: []types.ID{"1"}},
		{raw: "#1, #428b,b3", want: []types.ID{"1", "428b", "b3"}},
		{raw: " #07 ", want: []types.ID{"7"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDeps(tt.raw))
		})
	}
	assert.Equal(t, "#1, #428b, b3", FormatDeps([]types.ID{"1", "428b", "b3"}))
	assert.Equal(t, "-", FormatDeps(nil))
}

func TestStatusResolve(t *testing.T) {
	s := DefaultStatuses()
	tests := []struct {
		input string
		want  types.Status
	}{
		{input: "✅", want: types.StatusDone},
		{input: "⚠️", want: types.StatusBroken},
		{input: "⚠", want: types.StatusBroken},
		{input: "ready", want: types.StatusOpen},
		{input: "Bereit", want: types.StatusOpen},
		{input: "WIP", want: types.StatusClaimed},
		{input: "partial", want: types.StatusPartial},
		{input: "blocked", want: types.StatusBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := s.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Resolve("vielleicht")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidStatus)
}

func TestNewSchemaPanicsOnProgrammerErrors(t *testing.T) {
	assert.Panics(t, func() { NewSchema(Schema{Name: "empty"}) })
	assert.Panics(t, func() {
		NewSchema(Schema{Name: "dup", Columns: []Column{
			{Field: types.FieldID, Index: 0},
			{Field: types.FieldStatus, Index: 0},
		}})
	})
	assert.Panics(t, func() {
		NewSchema(Schema{Name: "no id", Columns: []Column{{Field: types.FieldStatus, Index: 0}}})
	})
}

func TestSplitLineAndSeparator(t *testing.T) {
	assert.Equal(t, []string{"1", "⬜", "a b"}, SplitLine("| 1 | ⬜ | a b |"))
	assert.Nil(t, SplitLine("no table"))
	assert.True(t, IsSeparator("|---|:--:|---|"))
	assert.False(t, IsSeparator("| 1 | 2 |"))
}

func TestBuildRowLikeKeepsIndentation(t *testing.T) {
	rec := types.Record{ID: "6", Status: types.StatusOpen, Bereich: "Core", Beschreibung: "B", Prio: types.PrioLow, MVP: types.MVPNo}
	like := "  // | 5 | ⬜ | Core | A | hoch | Ja | - | - | - |"
	assert.Equal(t, "  // | 6 | ⬜ | Core | B | niedrig | Nein | - | - | - |", BuildRowLike(rec, SourceSchema, like))
}

func TestHeaderLinesOpenAParsableTable(t *testing.T) {
	lines := HeaderLines(BugSchema)
	assert.Equal(t, "| b# | Status | Beschreibung | Prio | Deps |", lines[0])
	assert.True(t, IsSeparator(lines[1]))

	rec := types.Record{ID: "b2", Status: types.StatusOpen, Beschreibung: "Fehler", Prio: types.PrioHigh}
	text := strings.Join(append(lines, BuildRow(rec, BugSchema)), "\n")
	recs := Parse(text, BugSchema)
	require.Len(t, recs, 1)
	assert.Equal(t, types.ID("b2"), recs[0].ID)
}

func TestTableEnd(t *testing.T) {
	lines := SplitLines(strings.Join([]string{
		"# Roadmap",
		"",
		"| # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |",
		"|---|---|---|---|---|---|---|---|---|",
		"| 1 | ✅ | Core | Parser | hoch | Ja | - | - | - |",
		"",
		"## Bugs",
		"",
		"| b# | Status | Beschreibung | Prio | Deps |",
		"|----|----|----|----|----|",
		"",
		"trailing",
	}, "\n"))

	end, ok := TableEnd(lines, TaskSchema)
	require.True(t, ok)
	assert.Equal(t, 5, end)

	end, ok = TableEnd(lines, BugSchema)
	require.True(t, ok)
	assert.Equal(t, 10, end, "an empty table ends after its separator")

	_, ok = TableEnd(SplitLines("no tables here"), TaskSchema)
	assert.False(t, ok)
}
