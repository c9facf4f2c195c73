package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func openJournal(t *testing.T, dir string) *Journal {
	t.Helper()
	j, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	j := openJournal(t, dir)
	assert.Equal(t, filepath.Join(dir, FileName), j.Path())
	assert.FileExists(t, j.Path())
}

func TestCommittedBatchIsNotInterrupted(t *testing.T) {
	j := openJournal(t, t.TempDir())

	id, err := j.Begin("edit")
	require.NoError(t, err)
	require.NoError(t, j.Record(id, Entry{TaskID: "2", Kind: KindUpdate, File: "roadmap.md", OldLine: "| 2 | ⬜ |", NewLine: "| 2 | ✅ |"}))

	open, err := j.Interrupted()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "edit", open[0].Op)
	assert.Equal(t, 1, open[0].Entries)

	require.NoError(t, j.Commit(id))
	open, err = j.Interrupted()
	require.NoError(t, err)
	assert.Empty(t, open)

	assert.ErrorIs(t, j.Commit("missing"), ErrBatchNotFound)
}

func TestInterruptedBatchSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	require.NoError(t, err)
	id, err := j.Begin("bulk-edit")
	require.NoError(t, err)
	require.NoError(t, j.Record(id, Entry{TaskID: "1", Kind: KindUpdate, File: "roadmap.md"}))
	require.NoError(t, j.Close())

	j = openJournal(t, dir)
	open, err := j.Interrupted()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, id, open[0].ID)

	n, err := j.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	open, err = j.Interrupted()
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := j.Batches(10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, StateReconciled, all[0].State)
	assert.NotNil(t, all[0].FinishedAt)
}

func TestHistoryNewestFirst(t *testing.T) {
	j := openJournal(t, t.TempDir())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return base }

	id, err := j.Begin("edit")
	require.NoError(t, err)
	for _, line := range []string{"a", "b", "c"} {
		require.NoError(t, j.Record(id, Entry{TaskID: "7", Kind: KindUpdate, File: "roadmap.md", NewLine: line}))
	}
	require.NoError(t, j.Record(id, Entry{TaskID: "8", Kind: KindUpdate, File: "roadmap.md", NewLine: "x"}))

	hist, err := j.History(types.ID("7"), 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "c", hist[0].NewLine)
	assert.Equal(t, "b", hist[1].NewLine)
	assert.Equal(t, base, hist[0].CreatedAt)

	entries, err := j.Entries(id)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, types.ID("8"), entries[3].TaskID)
}

func TestDiscard(t *testing.T) {
	j := openJournal(t, t.TempDir())
	id, err := j.Begin("edit")
	require.NoError(t, err)
	require.NoError(t, j.Discard(id))

	all, err := j.Batches(0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, j.Discard(id), ErrBatchNotFound)
}
