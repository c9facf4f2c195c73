package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/service"
)

func newSplitCmd(a *app) *cobra.Command {
	var opts service.EditOptions
	cmd := &cobra.Command{
		Use:   "split <id> <done part> <open part>",
		Short: "Split a task into a done part and a new open part",
		Long: `split keeps the id for the finished part, marks it done and renames it.
The remaining work becomes a new task with the next free id that depends
on the first. Replica rows are split the same way.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.svc.Split(ids[0], args[1], args[2], opts)
			if err != nil {
				return err
			}
			if err := a.emit(res, func() {
				verb := "split"
				if opts.DryRun {
					verb = "would split"
				}
				a.printf("%s %s into %s and %s\n", verb, ids[0].Ref(), res.A.Ref(), res.B.Ref())
				for _, l := range res.NewLines {
					a.printf("  %s\n", l)
				}
				for _, d := range res.Docs {
					if d.Modified {
						a.printf("  synced %s\n", d.File)
					}
				}
				for _, e := range res.Effects {
					a.printf("  %s\n", e)
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
	cmd.Flags().StringVar(&opts.Key, "key", "", "claim key")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show the new rows without writing")
	return cmd
}
