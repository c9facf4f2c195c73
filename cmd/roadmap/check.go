package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// errNotClean makes check exit non-zero when it found problems.
var errNotClean = types.NewError(types.KindInvalidFormat, "", "the roadmap and its replicas disagree")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report replica drift, orphans, duplicate ids, cycles and interrupted writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			r, err := a.checker.Check()
			if err != nil {
				return err
			}
			if err := a.emit(r, func() {
				for _, inc := range r.Inconsistencies {
					for _, d := range inc.Diffs {
						a.printf("drift     %s in %s: %s is %q, roadmap has %q\n",
							inc.TaskID.Ref(), inc.Source, d.Field, d.Replica, d.Canonical)
					}
				}
				for _, o := range r.Orphans {
					a.printf("orphan    %s in %s\n", o.ID.Ref(), o.File)
				}
				for _, id := range r.Duplicates {
					a.printf("duplicate %s\n", id.Ref())
				}
				for _, c := range r.Cycles {
					a.printf("cycle     %s\n", graph.FormatCycle(c))
				}
				for _, d := range r.Dangling {
					a.printf("dangling  %s depends on %s\n", d.TaskID.Ref(), table.FormatDeps(d.Missing))
				}
				for _, b := range r.Interrupted {
					a.printf("interrupted %s batch from %s (%d changes); run sync\n",
						b.Op, b.StartedAt.Format("2006-01-02 15:04:05"), b.Entries)
				}
				if r.Clean() {
					a.printf("roadmap and replicas are consistent\n")
				}
			}); err != nil {
				return err
			}
			if !r.Clean() {
				return errNotClean
			}
			return nil
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push the roadmap values into every drifting replica row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.checker.Sync(types.WriteOptions{DryRun: dryRun})
			if err != nil {
				return err
			}
			if err := a.emit(res, func() {
				verb := "synced"
				if dryRun {
					verb = "would sync"
				}
				for _, c := range res.Changes {
					a.printf("%s %s\n  - %s\n  + %s\n", verb, c.File, c.Before, c.After)
				}
				if len(res.Changes) == 0 {
					a.printf("replicas are in sync\n")
				}
				if res.Reconciled > 0 {
					a.printf("reconciled %d interrupted batches\n", res.Reconciled)
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
