package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRefreshCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-derive the blocked state of every unfinished task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.svc.RefreshBlocked(dryRun)
			if err != nil {
				return err
			}
			if err := a.emit(res, func() {
				for _, id := range res.Blocked {
					a.printf("blocked   %s\n", id.Ref())
				}
				for _, id := range res.Unblocked {
					a.printf("unblocked %s\n", id.Ref())
				}
				if len(res.Blocked)+len(res.Unblocked) == 0 {
					a.printf("nothing to refresh\n")
				}
				a.printFailures(res.Failed)
			}); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return partialError{len(res.Failed)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the changes without writing")
	return cmd
}

func newDocChangeCmd(a *app) *cobra.Command {
	var (
		sections []string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "doc-change <path>",
		Short: "Flag done tasks whose spec references a changed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.svc.CheckDocChange(a.relative(args[0]), sections, dryRun)
			if err != nil {
				return err
			}
			if err := a.emit(res, func() { a.printDocChange(res.Path, res.Flagged, len(res.Effects)) }); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				a.printFailures(res.Failed)
				return partialError{len(res.Failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sections, "section", nil, "only references to these sections (File.md#Section)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the affected tasks without writing")
	return cmd
}

// relative returns path relative to the project root when it lies below it.
func (a *app) relative(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(a.root, abs); err == nil && filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return path
}
