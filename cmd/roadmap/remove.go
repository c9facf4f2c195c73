package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/service"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func (a *app) printRemove(r *service.RemoveResult) {
	switch {
	case r.Resolved != nil && r.DryRun:
		a.printf("would resolve %s\n", r.ID.Ref())
	case r.Resolved != nil:
		a.printf("resolved %s\n", r.ID.Ref())
	case r.DryRun:
		a.printf("would remove %s\n", r.ID.Ref())
	default:
		a.printf("removed %s\n", r.ID.Ref())
	}
	for _, id := range r.Stripped {
		a.printf("  dropped from deps of %s\n", id.Ref())
	}
	for _, id := range r.Reopened {
		a.printf("  reopened %s\n", id.Ref())
	}
	if r.Deleted != nil {
		for _, d := range r.Deleted.Docs {
			a.printf("  removed from %s\n", d.File)
		}
	}
	a.printFailures(r.Failed)
}

func newRemoveCmd(a *app) *cobra.Command {
	var (
		resolve bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete records and drop them from every dependency list",
		Long: `remove strips each id from the dependencies of every record, then
deletes its row from the roadmap and from every replica. With --resolve a
single bug is kept and marked done instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}

			if len(ids) == 1 {
				var res *service.RemoveResult
				if resolve {
					res, err = a.svc.RemoveBug(ids[0], service.RemoveBugOptions{Resolve: true, DryRun: dryRun})
				} else {
					res, err = a.svc.RemoveTask(ids[0], dryRun)
				}
				if err != nil {
					return err
				}
				return a.emit(res, func() { a.printRemove(res) })
			}
			if resolve {
				return types.NewError(types.KindInvalidFormat, "", "--resolve takes a single bug id")
			}

			out, err := a.svc.RemoveMany(ids, dryRun)
			if err != nil {
				return err
			}
			if err := a.emit(batchJSON(out), func() {
				for _, r := range out.Success {
					a.printRemove(r)
				}
				a.printFailures(out.Failed)
			}); err != nil {
				return err
			}
			if len(out.Failed) > 0 {
				return partialError{len(out.Failed)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "mark the bug done instead of deleting it")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would change without writing")
	return cmd
}
