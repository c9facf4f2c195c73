package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roadmap/internal/paths"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

type cli struct {
	t         *testing.T
	root      string
	configDir string
	dataDir   string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	root := t.TempDir()
	t.Setenv(paths.EnvProjectRoot, root)
	return &cli{
		t:         t,
		root:      root,
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "db"),
	}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd, a := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config-dir", c.configDir, "--data-dir", c.dataDir}, args...))
	err := cmd.Execute()
	a.close()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) list(args ...string) []recordJSON {
	c.t.Helper()
	var recs []recordJSON
	out := c.mustRun(append([]string{"list", "--json"}, args...)...)
	require.NoError(c.t, json.Unmarshal([]byte(out), &recs), out)
	return recs
}

func TestInitCreatesSkeleton(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("init")
	assert.Contains(t, out, "(created)")
	assert.FileExists(t, filepath.Join(c.configDir, "config.yaml"))

	data, err := os.ReadFile(filepath.Join(c.root, types.DefaultRoadmapPath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "| # | Status |")
	assert.Contains(t, string(data), "| b# | Status |")

	out = c.mustRun("init")
	assert.NotContains(t, out, "(created)")
}

func TestAddEditList(t *testing.T) {
	c := newCLI(t)
	c.mustRun("init")

	out := c.mustRun("add", "--bereich", "CLI", "--beschreibung", "Parse flags")
	assert.Contains(t, out, "added #1")
	c.mustRun("add", "--bereich", "CLI", "--beschreibung", "Print help", "--deps", "#1")

	recs := c.list()
	require.Len(t, recs, 2)

	c.mustRun("edit", "2", "--status", "blocked")
	c.mustRun("edit", "1", "--status", "done")

	recs = c.list("--status", "open")
	require.Len(t, recs, 1, "finishing #1 reopens #2")
	assert.Equal(t, types.ID("2"), recs[0].ID)

	_, err := c.run("edit", "1", "--status", "done")
	assert.Equal(t, types.KindNoChanges, types.KindOf(err))
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestBulkEditPartialFailure(t *testing.T) {
	c := newCLI(t)
	c.mustRun("init")
	c.mustRun("add", "--beschreibung", "One")

	out, err := c.run("edit", "1", "99", "--prio", "hoch", "--json")
	var pe partialError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.failed)

	var res struct {
		Success []json.RawMessage `json:"success"`
		Failed  []struct {
			ID   types.ID `json:"id"`
			Kind string   `json:"kind"`
		} `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Len(t, res.Success, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, types.ID("99"), res.Failed[0].ID)
	assert.Equal(t, "not found", res.Failed[0].Kind)
}

func TestClaimRequiresKey(t *testing.T) {
	c := newCLI(t)
	c.mustRun("init")
	c.mustRun("add", "--beschreibung", "One")

	var claim struct {
		Key string `json:"key"`
	}
	out := c.mustRun("claim", "1", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &claim), out)
	require.Len(t, claim.Key, 4)

	_, err := c.run("edit", "1", "--beschreibung", "Changed")
	assert.ErrorIs(t, err, types.ErrClaimRequired)
	c.mustRun("edit", "1", "--beschreibung", "Changed", "--key", claim.Key)

	_, err = c.run("claim", "1")
	assert.Equal(t, types.KindClaimExists, types.KindOf(err))

	out = c.mustRun("unclaim", claim.Key)
	assert.Contains(t, out, "reopened")
	c.mustRun("edit", "1", "--beschreibung", "Again")
}

func TestCheckCleanRoadmap(t *testing.T) {
	c := newCLI(t)
	c.mustRun("init")
	c.mustRun("add", "--beschreibung", "One")

	out := c.mustRun("check")
	assert.Contains(t, out, "consistent")
}

func TestRelative(t *testing.T) {
	a := &app{root: "/work/project"}
	assert.Equal(t, "docs/features/Travel.md", a.relative("/work/project/docs/features/Travel.md"))
	assert.Equal(t, "/elsewhere/x.md", a.relative("/elsewhere/x.md"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"user", types.NewError(types.KindNotFound, "4", "task not found"), exitUserError},
		{"partial", partialError{2}, exitUserError},
		{"system", sysError{errors.New("disk full")}, exitSysError},
		{"write failed", types.IOError(types.KindWriteFailed, "roadmap.md", errors.New("denied")), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
