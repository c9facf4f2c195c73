package fileio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "roadmap.md")

	require.NoError(t, WriteFile(path, []byte("eins\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eins\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPerm, info.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o600))
	require.NoError(t, WriteFile(path, []byte("zwei\n")))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zwei\n", string(data))

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "existing mode is kept")
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.lock")

	other := flock.New(path)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	_, err = Acquire(path, 150*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	require.NoError(t, other.Unlock())
	l, err := Acquire(path, time.Second)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	assert.NoError(t, l.Release())
}
