package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/watch"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check done tasks whenever a referenced document changes",
		Long: `watch follows the docs directory and the source directories. When a
document settles after a change, every done task whose spec references
it is flagged partial, and a consistency check is logged. The roadmap and
the claims file are ignored. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			dirs := append([]string{a.cfg.DocsDir}, a.cfg.SrcDirs...)
			w, err := watch.New(watch.Options{
				Dirs:     dirs,
				Exclude:  []string{a.cfg.RoadmapPath, a.cfg.ClaimsPath},
				Debounce: debounce,
				Logger:   a.logger.Logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.printf("watching %d directories, Ctrl-C to stop\n", len(dirs))
			if err := w.Run(ctx, a.onDocsChanged); err != nil {
				return sysError{err}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet time before a change is handled")
	return cmd
}

// onDocsChanged runs the doc-change service for each settled path and a
// consistency check afterwards.
func (a *app) onDocsChanged(_ context.Context, changed []string) {
	for _, p := range changed {
		res, err := a.svc.CheckDocChange(a.relative(p), nil, false)
		if err != nil {
			a.logger.Error("doc change", "path", p, "err", err)
			continue
		}
		a.printDocChange(res.Path, res.Flagged, len(res.Effects))
		for _, f := range res.Failed {
			a.logger.Warn("doc change", "id", f.ID.Ref(), "err", f.Err)
		}
	}
	r, err := a.checker.Check()
	if err != nil {
		a.logger.Error("consistency check", "err", err)
		return
	}
	if !r.Clean() {
		a.logger.Warn("roadmap and replicas disagree; run check",
			"drift", len(r.Inconsistencies), "orphans", len(r.Orphans),
			"duplicates", len(r.Duplicates), "cycles", len(r.Cycles))
	}
}

func (a *app) printDocChange(path string, flagged []types.ID, effects int) {
	if len(flagged) == 0 {
		a.printf("%s: no done task references it\n", path)
		return
	}
	a.printf("%s: flagged", path)
	for _, id := range flagged {
		a.printf(" %s", id.Ref())
	}
	a.printf(" partial (%d follow-up changes)\n", effects)
}
