package consistency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roadmap/internal/storage"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func TestCompareTaskDefinitions(t *testing.T) {
	base := types.Record{ID: "1", Status: types.StatusDone, Beschreibung: "Parser bauen"}

	tests := []struct {
		name    string
		replica types.Record
		want    []Diff
	}{
		{
			name:    "identical",
			replica: base,
		},
		{
			name:    "whitespace only",
			replica: types.Record{ID: "1", Status: types.StatusDone, Beschreibung: "  Parser bauen "},
		},
		{
			name:    "replica without status",
			replica: types.Record{ID: "1", Beschreibung: "Parser bauen"},
		},
		{
			name:    "status drift",
			replica: types.Record{ID: "1", Status: types.StatusOpen, Beschreibung: "Parser bauen"},
			want:    []Diff{{Field: "status", Canonical: "✅", Replica: "⬜"}},
		},
		{
			name:    "both drift",
			replica: types.Record{ID: "1", Status: types.StatusBlocked, Beschreibung: "Parser"},
			want: []Diff{
				{Field: "status", Canonical: "✅", Replica: "⛔"},
				{Field: "beschreibung", Canonical: "Parser bauen", Replica: "Parser"},
			},
		},
		{
			name:    "other fields are ignored",
			replica: types.Record{ID: "1", Status: types.StatusDone, Beschreibung: "Parser bauen", Prio: types.PrioLow},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareTaskDefinitions(base, tt.replica))
		})
	}
}

func TestFindInconsistencies(t *testing.T) {
	defs := map[types.ID][]types.Definition{
		"2": {
			{Source: types.RoadmapSource, Record: types.Record{ID: "2", Status: types.StatusOpen, Beschreibung: "B"}},
			{Source: "b.md", Record: types.Record{ID: "2", Status: types.StatusDone, Beschreibung: "B"}},
			{Source: "a.md", Record: types.Record{ID: "2", Status: types.StatusOpen, Beschreibung: "B"}},
		},
		"10": {
			{Source: types.RoadmapSource, Record: types.Record{ID: "10", Status: types.StatusOpen, Beschreibung: "X"}},
			{Source: "a.md", Record: types.Record{ID: "10", Beschreibung: "Y"}},
		},
		"7": {
			{Source: "a.md", Record: types.Record{ID: "7", Beschreibung: "orphan"}},
			{Source: "b.md", Record: types.Record{ID: "7", Beschreibung: "other"}},
		},
		"1": {
			{Source: types.RoadmapSource, Record: types.Record{ID: "1", Beschreibung: "only canonical"}},
		},
	}

	got := FindInconsistencies(defs)
	require.Len(t, got, 2)
	assert.Equal(t, types.ID("2"), got[0].TaskID)
	assert.Equal(t, "b.md", got[0].Source)
	assert.Equal(t, types.ID("10"), got[1].TaskID)
	assert.Equal(t, "beschreibung", got[1].Diffs[0].Field)
}

const roadmap = `# Roadmap

| # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |
|---|---|---|---|---|---|---|---|---|
| 1 | ✅ | Core | Parser bauen | hoch | Ja | - | - | - |
| 2 | ⬜ | Core | Builder bauen | mittel | Ja | #1 | - | - |
| 3 | ⛔ | CLI | Kommandos | niedrig | Nein | #2, #9 | - | - |
`

const feature = `# Core

| # | Status | Bereich | Beschreibung | Prio | MVP? | Deps | Spec | Imp. |
|---|---|---|---|---|---|---|---|---|
| 1 | ⬜ | Core | Parser | hoch | Ja | - | - | - |
| 2 | ⬜ | Core | Builder bauen | mittel | Ja | #1 | - | - |
| 8 | ⬜ | Core | Weg | mittel | Ja | - | - | - |
`

func setup(t *testing.T, cfg func(*types.Config)) (*Checker, string) {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	roadmapPath := filepath.Join(docs, "roadmap.md")
	featurePath := filepath.Join(docs, "core.md")
	write(roadmapPath, roadmap)
	write(featurePath, feature)

	config := types.Config{RoadmapPath: roadmapPath, DocsDir: docs}
	if cfg != nil {
		cfg(&config)
	}
	s, err := storage.Open(config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, nil), featurePath
}

func TestCheck(t *testing.T) {
	c, _ := setup(t, nil)

	r, err := c.Check()
	require.NoError(t, err)
	assert.False(t, r.Clean())

	require.Len(t, r.Inconsistencies, 1)
	assert.Equal(t, types.ID("1"), r.Inconsistencies[0].TaskID)
	assert.Equal(t, "core.md", r.Inconsistencies[0].Source)
	assert.Len(t, r.Inconsistencies[0].Diffs, 2)

	assert.Equal(t, []types.Orphan{{File: "core.md", ID: "8"}}, r.Orphans)
	assert.Empty(t, r.Duplicates)
	assert.Empty(t, r.Cycles)
	assert.Equal(t, []Dangling{{TaskID: "3", Missing: []types.ID{"9"}}}, r.Dangling)
}

func TestSyncConverges(t *testing.T) {
	c, featurePath := setup(t, func(cfg *types.Config) {
		cfg.DataDir = filepath.Join(filepath.Dir(cfg.DocsDir), ".roadmap-db")
	})

	dry, err := c.Sync(types.WriteOptions{DryRun: true})
	require.NoError(t, err)
	require.Len(t, dry.Changes, 1)
	assert.Equal(t, feature, readFile(t, featurePath))

	res, err := c.Sync(types.WriteOptions{})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "core.md", res.Changes[0].File)
	assert.Empty(t, res.Failed)
	assert.Contains(t, readFile(t, featurePath), "| 1 | ✅ | Core | Parser bauen | hoch | Ja | - | - | - |\n")

	r, err := c.Check()
	require.NoError(t, err)
	assert.Empty(t, r.Inconsistencies)
	assert.Empty(t, r.Interrupted)

	again, err := c.Sync(types.WriteOptions{})
	require.NoError(t, err)
	assert.Empty(t, again.Changes)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
