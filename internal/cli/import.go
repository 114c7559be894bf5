package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/pipeline"
)

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import order documents and reconcile them with the stored routings",
		Long: `Import reads order documents (JSON, YAML or TOML), merges their routings into
the stored snapshot of each order and saves the result.

Routings whose topology is unchanged are patched in place and keep their
identity. Changed routings are replaced. When a change touches scheduled
operations the order is unscheduled unless --keep-schedule is given.`,
		Example: `  routegraph import MO-4711.yaml
  routegraph import --dry-run orders/*.json`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeDocuments(-1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeStore, err := c.newRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			for _, path := range args {
				if err := c.importFile(cmd.Context(), runner, path, opts); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "reconcile without saving")
	cmd.Flags().BoolVar(&opts.Fresh, "fresh", false, "ignore the stored snapshot")
	cmd.Flags().BoolVar(&opts.KeepSchedule, "keep-schedule", false, "keep operation timing when the schedule is invalidated")

	return cmd
}

// importFile imports one document and prints its outcome.
func (c *CLI) importFile(ctx context.Context, runner *pipeline.Runner, path string, opts pipeline.Options) error {
	doc, err := docio.ReadFile(path)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	res, err := runner.Import(ctx, doc, opts)
	if err != nil {
		return err
	}
	prog.done("Imported", "order", doc.Order)

	printImportResult(res, opts)
	return nil
}

func printImportResult(res *pipeline.Result, opts pipeline.Options) {
	o := res.Order
	printSuccess("Order %s", StyleTitle.Render(o.ExternalID()))
	fmt.Println(outcomeTable(res.Reconcile))

	if res.Discarded {
		printWarning("stored snapshot could not be decoded and was discarded")
	}
	if res.Reconcile.ScheduleInvalidated {
		if res.Unscheduled {
			printWarning("routing changes invalidated the schedule; operations were unscheduled")
		} else {
			printWarning("routing changes invalidate the schedule (kept by --keep-schedule)")
		}
		for _, out := range res.Reconcile.Outcomes {
			if !out.Diff.ScheduleChanged {
				continue
			}
			for _, d := range out.Diff.Descriptions {
				printDetail("%s: %s", out.ExternalID, d)
			}
		}
	}
	if len(res.AutoFinished) > 0 {
		printInfo("Auto-finished %v", res.AutoFinished)
	}

	if def := o.Routings().Default(); def != nil {
		printKeyValue("default", def.ExternalID())
		printStats(def)
	}
	printKeyValue("snapshot", fmt.Sprintf("%s (%d bytes)", res.Stats.SnapshotHash[:12], res.Stats.SnapshotBytes))
	if opts.DryRun {
		printDetail("dry run: nothing was saved")
	}
}
