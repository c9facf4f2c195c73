// Package paths resolves the configuration directory, the data directory
// and the project root the roadmap paths are relative to.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user configuration directory.
const appName = "roadmap"

// DefaultDataDirName is the journal directory created under the working
// directory when nothing else is configured.
const DefaultDataDirName = ".roadmap-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir   = "ROADMAP_CONFIG_DIR"
	EnvDataDir     = "ROADMAP_DATA_DIR"
	EnvProjectRoot = "ROADMAP_PROJECT_ROOT"
)

// ErrNoProjectRoot is returned when no enclosing directory holds a
// roadmap.
var ErrNoProjectRoot = errors.New("no project root found")

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/roadmap (fallback ~/.config/roadmap)
// macOS:   ~/Library/Application Support/roadmap
// Windows: %APPDATA%/roadmap
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// ROADMAP_CONFIG_DIR, then DefaultConfigDir. Explicit values are made
// absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the journal directory: flag, then the config
// value, then ROADMAP_DATA_DIR, then .roadmap-db in the working directory.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// FindProjectRoot returns ROADMAP_PROJECT_ROOT if set, otherwise the
// nearest directory at or above the working directory that contains
// roadmapRel.
func FindProjectRoot(roadmapRel string) (string, error) {
	if env := os.Getenv(EnvProjectRoot); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return findUp(cwd, roadmapRel)
}

func findUp(dir, rel string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, rel)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProjectRoot
		}
		dir = parent
	}
}

// Resolve joins a relative p onto root. Absolute and empty paths are
// returned unchanged.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
