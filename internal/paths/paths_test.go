package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/roadmap", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "roadmap"), got)
	})
}

func TestDefaultConfigDir_Darwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin-only test")
	}

	got, err := DefaultConfigDir()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Library", "Application Support", "roadmap"), got)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default when both empty", "", "", "roadmap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name      string
		flag      string
		configVal string
		envVal    string
		want      string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env wins when flag and config empty", "", "", "/env/data", "/env/data"},
		{"cwd default when all empty", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configVal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDirs_AbsolutePath(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	got, err := ResolveConfigDir("relative/path")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)

	got, err = ResolveDataDir("", "relative/config")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	rel := filepath.Join("docs", "architecture", "Development-Roadmap.md")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "architecture"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte("# Roadmap\n"), 0o644))
	nested := filepath.Join(root, "src", "app")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	orig := platformDir.getwd
	t.Cleanup(func() { platformDir.getwd = orig })

	t.Setenv(EnvProjectRoot, "")
	platformDir.getwd = func() (string, error) { return nested, nil }
	got, err := FindProjectRoot(rel)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	platformDir.getwd = func() (string, error) { return t.TempDir(), nil }
	_, err = FindProjectRoot(rel)
	assert.ErrorIs(t, err, ErrNoProjectRoot)

	t.Setenv(EnvProjectRoot, "/somewhere/else")
	got, err = FindProjectRoot(rel)
	require.NoError(t, err)
	assert.Equal(t, "/somewhere/else", got)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", "docs"), Resolve("/proj", "docs"))
	assert.Equal(t, "/abs/docs", Resolve("/proj", "/abs/docs"))
	assert.Equal(t, "", Resolve("/proj", ""))
}
