package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/fileio"
	"github.com/mesh-intelligence/roadmap/internal/table"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration, the journal and an empty roadmap",
		Long: `init writes a default config.yaml if none exists, creates the journal
in the data directory and, when the roadmap file is missing, writes one
with empty task and bug tables. Existing files are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := writeSkeleton(a.cfg.RoadmapPath)
			if err != nil {
				return sysError{err}
			}
			if err := a.open(); err != nil {
				return err
			}
			a.printf("roadmap initialized\n")
			a.printf("  roadmap: %s", a.cfg.RoadmapPath)
			if created {
				a.printf(" (created)")
			}
			a.printf("\n  data:    %s\n", a.cfg.DataDir)
			return nil
		},
	}
}

// writeSkeleton creates a roadmap with empty task and bug tables unless
// the file exists. It reports whether the file was created.
func writeSkeleton(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat roadmap: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create roadmap directory: %w", err)
	}
	var b strings.Builder
	b.WriteString("# Development Roadmap\n\n## Tasks\n\n")
	for _, l := range table.HeaderLines(table.TaskSchema) {
		b.WriteString(l + "\n")
	}
	b.WriteString("\n## Bugs\n\n")
	for _, l := range table.HeaderLines(table.BugSchema) {
		b.WriteString(l + "\n")
	}
	if err := fileio.WriteFile(path, []byte(b.String())); err != nil {
		return false, err
	}
	return true, nil
}
