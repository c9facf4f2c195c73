package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		nr              types.NewRecord
		prio, mvp, deps string
		affects         string
		dryRun          bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a task, or a bug with --bug",
		Long: `add appends a record to the end of its table with the next free id.
A bug may name the tasks it breaks with --affects; they are marked broken
and get the bug added to their dependencies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prio != "" {
				p, ok := table.ParsePriority(prio)
				if !ok {
					return types.NewError(types.KindInvalidFormat, "", "invalid priority %q", prio)
				}
				nr.Prio = p
			}
			if mvp != "" {
				m, ok := table.ParseMVP(mvp)
				if !ok {
					return types.NewError(types.KindInvalidFormat, "", "invalid mvp %q", mvp)
				}
				nr.MVP = m
			}
			nr.Deps = table.ParseDeps(deps)
			if affects != "" {
				ids, err := parseIDs([]string{affects})
				if err != nil {
					return err
				}
				nr.Affects = ids
			}
			if err := a.open(); err != nil {
				return err
			}

			if nr.Bug {
				out, err := a.svc.AddBugs([]types.NewRecord{nr}, dryRun)
				if err != nil {
					return err
				}
				if len(out.Failed) > 0 {
					return out.Failed[0].Err
				}
				res := out.Success[0]
				if err := a.emit(res, func() {
					a.printf("added %s\n  %s\n", res.ID.Ref(), res.Line)
					for _, id := range res.Broken {
						a.printf("  broke %s\n", id.Ref())
					}
					a.printFailures(res.Failed)
				}); err != nil {
					return err
				}
				if len(res.Failed) > 0 {
					return partialError{len(res.Failed)}
				}
				return nil
			}

			out, err := a.svc.AddTasks([]types.NewRecord{nr}, dryRun)
			if err != nil {
				return err
			}
			if len(out.Failed) > 0 {
				return out.Failed[0].Err
			}
			res := out.Success[0]
			return a.emit(res, func() {
				a.printf("added %s\n  %s\n", res.ID.Ref(), res.Line)
			})
		},
	}
	cmd.Flags().BoolVar(&nr.Bug, "bug", false, "add a bug instead of a task")
	cmd.Flags().StringVar(&nr.Bereich, "bereich", "", "area of the task")
	cmd.Flags().StringVar(&nr.Beschreibung, "beschreibung", "", "description")
	cmd.Flags().StringVar(&nr.Spec, "spec", "", "spec reference, e.g. docs/features/Travel.md#Routes")
	cmd.Flags().StringVar(&prio, "prio", "", "priority (hoch, mittel, niedrig)")
	cmd.Flags().StringVar(&mvp, "mvp", "", "MVP flag (ja, nein)")
	cmd.Flags().StringVar(&deps, "deps", "", `dependencies, e.g. "#1, b2"`)
	cmd.Flags().StringVar(&affects, "affects", "", "tasks the bug breaks, e.g. 12,14")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the new row without writing")
	return cmd
}
