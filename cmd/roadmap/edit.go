package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roadmap/internal/service"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

func (a *app) printEdit(r *service.EditResult) {
	verb := "updated"
	if r.DryRun {
		verb = "would update"
	}
	a.printf("%s %s\n", verb, r.ID.Ref())
	if r.Update != nil {
		a.printf("  - %s\n  + %s\n", r.Update.Before, r.Update.After)
		for _, d := range r.Update.Docs {
			if d.Modified {
				a.printf("  synced %s\n", d.File)
			}
		}
	}
	for _, e := range r.Effects {
		a.printf("  %s\n", e.String())
	}
	if r.Released != nil {
		a.printf("  released claim %s\n", r.Released.Owner)
	}
	a.printFailures(r.Failed)
}

// editFlags maps edit flags to record fields.
var editFlags = []struct {
	name  string
	field types.Field
	usage string
}{
	{"status", types.FieldStatus, "new status (name, alias or symbol)"},
	{"bereich", types.FieldBereich, "new area"},
	{"beschreibung", types.FieldBeschreibung, "new description"},
	{"prio", types.FieldPrio, "new priority (hoch, mittel, niedrig)"},
	{"mvp", types.FieldMVP, "MVP flag (ja, nein)"},
	{"deps", types.FieldDeps, `new dependency list, e.g. "#1, #2, b3" or "-"`},
	{"spec", types.FieldSpec, "new spec reference"},
	{"imp", types.FieldImp, "new implementation reference"},
}

func newEditCmd(a *app) *cobra.Command {
	var (
		values = make([]string, len(editFlags))
		opts   service.EditOptions
	)
	cmd := &cobra.Command{
		Use:   "edit <id>...",
		Short: "Change fields of one or more records",
		Long: `edit validates the change, writes it to the roadmap and every replica
row, and propagates a status change to dependent tasks. Several ids are
edited in one batch; a failing id does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			edit := types.Edit{}
			for i, f := range editFlags {
				if cmd.Flags().Changed(f.name) {
					edit[f.field] = values[i]
				}
			}
			if len(edit) == 0 {
				return types.NewError(types.KindNoChanges, "", "no field flag given")
			}
			if err := a.open(); err != nil {
				return err
			}

			if len(ids) == 1 {
				res, err := a.svc.UpdateTask(ids[0], edit, opts)
				if err != nil {
					return err
				}
				return a.emit(res, func() { a.printEdit(res) })
			}

			out, err := a.svc.BulkEdit(ids, edit, opts)
			if err != nil {
				return err
			}
			if err := a.emit(batchJSON(out), func() {
				for _, r := range out.Success {
					a.printEdit(r)
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
	for i, f := range editFlags {
		cmd.Flags().StringVar(&values[i], f.name, "", f.usage)
	}
	cmd.Flags().StringVar(&opts.Key, "key", "", "claim key")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show the change and its cascade without writing")
	return cmd
}
