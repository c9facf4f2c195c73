package guidance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

const yamlGuidance = `baseline:
  - docs/architecture/Overview.md
workflows:
  open:
    title: Implement
    flowchart_file: implement.md
    meaning: Not started yet
  "🔶":
    title: Conform
    meaning: Done once, deps changed
feature_routing:
  Travel:
    path: docs/features/travel
    docs: [Travel.md, Routes.md]
`

const tomlGuidance = `baseline = ["docs/architecture/Overview.md"]

[workflows.broken]
title = "Fix"

[feature_routing.Travel]
path = "docs/features/travel"
docs = ["Travel.md"]
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "implement.md", "1. read\n2. write\n")
	c, err := Load(write(t, dir, "guidance.yaml", yamlGuidance))
	require.NoError(t, err)

	g := c.For(types.Record{ID: "4", Status: types.StatusOpen, Bereich: "Features/Travel", Spec: "docs/features/travel/Travel.md"})
	require.NotNil(t, g.Workflow)
	assert.Equal(t, "Implement", g.Workflow.Title)
	assert.Equal(t, "1. read\n2. write\n", g.Workflow.Content)
	assert.Equal(t, []string{"docs/architecture/Overview.md"}, g.ReadingList.Baseline)
	assert.Equal(t, []string{"docs/features/travel/Travel.md", "docs/features/travel/Routes.md"}, g.ReadingList.FeatureDocs)
	assert.Equal(t, "docs/features/travel/Travel.md", g.ReadingList.SpecDoc)

	g = c.For(types.Record{ID: "5", Status: types.StatusPartial, Bereich: "Core", Spec: "-"})
	require.NotNil(t, g.Workflow)
	assert.Equal(t, "Conform", g.Workflow.Title)
	assert.Empty(t, g.Workflow.Content)
	assert.Empty(t, g.ReadingList.FeatureDocs)
	assert.Empty(t, g.ReadingList.SpecDoc)

	g = c.For(types.Record{ID: "6", Status: types.StatusBlocked})
	assert.Nil(t, g.Workflow)
}

func TestLoadTOML(t *testing.T) {
	c, err := Load(write(t, t.TempDir(), "guidance.toml", tomlGuidance))
	require.NoError(t, err)

	g := c.For(types.Record{ID: "b1", Status: types.StatusBroken, Bereich: "Travel"})
	require.NotNil(t, g.Workflow)
	assert.Equal(t, "Fix", g.Workflow.Title)
	assert.Equal(t, []string{"docs/features/travel/Travel.md"}, g.ReadingList.FeatureDocs)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, types.ErrReadFailed)

	_, err = Load(write(t, dir, "bad.yaml", "workflows: [unclosed"))
	assert.ErrorIs(t, err, types.ErrReadFailed)

	_, err = Load(write(t, dir, "status.yaml", "workflows:\n  sideways:\n    title: X\n"))
	assert.ErrorIs(t, err, types.ErrInvalidStatus)
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	g := c.For(types.Record{ID: "1", Status: types.StatusOpen, Spec: "docs/x.md"})
	assert.Nil(t, g.Workflow)
	assert.Equal(t, "docs/x.md", g.ReadingList.SpecDoc)
}

func TestBereichKey(t *testing.T) {
	assert.Equal(t, "DetailView", BereichKey("Application/DetailView"))
	assert.Equal(t, "Travel", BereichKey(" Travel "))
	assert.Equal(t, "", BereichKey(""))
}
