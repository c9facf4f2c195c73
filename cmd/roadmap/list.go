package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/claims"
	"github.com/mesh-intelligence/roadmap/internal/graph"
	"github.com/mesh-intelligence/roadmap/internal/guidance"
	"github.com/mesh-intelligence/roadmap/internal/journal"
	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var (
		status  string
		bereich string
		bugs    bool
		ready   bool
		mvp     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in work order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			snap, err := a.store.Load()
			if err != nil {
				return err
			}
			var want types.Status
			if status != "" {
				if want, err = table.DefaultStatuses().Resolve(status); err != nil {
					return types.NewError(types.KindInvalidStatus, "", "unknown status %q", status)
				}
			}

			recs := graph.Prioritize(snap.All())
			if ready {
				recs = graph.Ready(snap.All(), snap.Items())
			}
			var out []types.Record
			for _, r := range recs {
				switch {
				case bugs && !r.IsBug():
				case want != types.StatusUnknown && r.Status != want:
				case bereich != "" && !matchBereich(r.Bereich, bereich):
				case mvp && r.MVP != types.MVPYes:
				default:
					out = append(out, r)
				}
			}

			js := make([]recordJSON, len(out))
			for i, r := range out {
				js[i] = toJSON(r)
			}
			return a.emit(js, func() {
				for _, r := range out {
					a.printf("%s\n", line(r))
				}
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only records in this status (name, alias or symbol)")
	cmd.Flags().StringVar(&bereich, "bereich", "", "only records of this area")
	cmd.Flags().BoolVar(&bugs, "bugs", false, "only bugs")
	cmd.Flags().BoolVar(&ready, "ready", false, "only open records whose dependencies are done")
	cmd.Flags().BoolVar(&mvp, "mvp", false, "only MVP records")
	return cmd
}

// matchBereich accepts the full area path or its last segment.
func matchBereich(have, want string) bool {
	return strings.EqualFold(have, want) || strings.EqualFold(guidance.BereichKey(have), want)
}

// showJSON is the JSON output of show.
type showJSON struct {
	Record     recordJSON      `json:"record"`
	Dependents []types.ID      `json:"dependents"`
	Docs       []string        `json:"docs"`
	Claim      claims.Status   `json:"claim"`
	History    []journal.Entry `json:"history,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	var history int
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a record, its dependents, replicas and claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]
			if err := a.open(); err != nil {
				return err
			}
			snap, err := a.store.Load()
			if err != nil {
				return err
			}
			rec, ok := snap.Find(id)
			if !ok {
				return types.NewError(types.KindNotFound, id, "not in the roadmap")
			}
			out := showJSON{Record: toJSON(rec), Dependents: []types.ID{}}
			for _, d := range graph.FindDependents(id, snap.All()) {
				out.Dependents = append(out.Dependents, d.ID)
			}
			if out.Docs, err = a.store.FindDocsContainingTask(id); err != nil {
				return err
			}
			if out.Claim, err = a.claims.Status(id); err != nil {
				return err
			}
			if history > 0 {
				if out.History, err = a.store.History(id, history); err != nil {
					return sysError{err}
				}
			}

			return a.emit(out, func() {
				a.printf("%s %s %s\n", id.Ref(), symbol(rec.Status), rec.Beschreibung)
				a.printf("  bereich:    %s\n", rec.Bereich)
				a.printf("  prio:       %s   mvp: %s\n", table.FormatPriority(rec.Prio), table.FormatMVP(rec.MVP))
				a.printf("  deps:       %s\n", table.FormatDeps(rec.Deps))
				a.printf("  dependents: %s\n", table.FormatDeps(out.Dependents))
				a.printf("  spec:       %s\n", rec.Spec)
				a.printf("  imp:        %s\n", rec.Imp)
				for _, d := range out.Docs {
					a.printf("  replica:    %s\n", d)
				}
				if out.Claim.Claimed {
					a.printf("  claimed by %s, %s left\n", out.Claim.Owner, claims.FormatRemaining(out.Claim.Remaining))
				}
				for _, e := range out.History {
					a.printf("  %s %-6s %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Kind, e.NewLine)
				}
			})
		},
	}
	cmd.Flags().IntVar(&history, "history", 0, "show the last n journaled changes")
	return cmd
}
