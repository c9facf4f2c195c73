package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/claims"
)

func newClaimCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id>",
		Short: "Take a lease on a record and print its key and guidance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.svc.Claim(ids[0])
			if err != nil {
				return err
			}
			return a.emit(res, func() {
				a.printf("claimed %s, key %s (expires in %s)\n", res.ID.Ref(), res.Key,
					claims.FormatRemaining(a.claims.Expiry()))
				a.printf("  %s\n", res.Record.Beschreibung)
				for _, e := range res.Effects {
					a.printf("  %s\n", e)
				}
				a.printFailures(res.Failed)
				g := res.Guidance
				if g.Workflow != nil {
					a.printf("\nworkflow: %s\n", g.Workflow.Title)
					if g.Workflow.Meaning != "" {
						a.printf("  %s\n", g.Workflow.Meaning)
					}
					if g.Workflow.Content != "" {
						a.printf("\n%s\n", g.Workflow.Content)
					}
				}
				rl := g.ReadingList
				if len(rl.Baseline)+len(rl.FeatureDocs) > 0 || rl.SpecDoc != "" {
					a.printf("\nread first:\n")
					for _, d := range append(append([]string(nil), rl.Baseline...), rl.FeatureDocs...) {
						a.printf("  %s\n", d)
					}
					if rl.SpecDoc != "" {
						a.printf("  %s (spec)\n", rl.SpecDoc)
					}
				}
			})
		},
	}
}

func newUnclaimCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unclaim <key>",
		Short: "Release a lease and reopen its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.svc.Unclaim(args[0])
			if err != nil {
				return err
			}
			return a.emit(res, func() {
				a.printf("released %s", res.ID.Ref())
				if res.Reopened {
					a.printf(", reopened")
				}
				a.printf("\n")
			})
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired leases and reopen their records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			res, err := a.svc.CleanupExpired()
			if err != nil {
				return err
			}
			if err := a.emit(res, func() {
				a.printf("released %d expired claims, reopened %d records\n", len(res.Released), len(res.Reopened))
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
}
