package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/pkg/errors"
	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/pipeline"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// diffCommand creates the diff command.
func (c *CLI) diffCommand() *cobra.Command {
	var stored bool

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Preview how a re-import would change an order's routings",
		Long: `Diff reconciles the routings of <new> against those of <old> without saving
anything and reports, per routing, whether it would be kept, patched in place,
replaced, added, removed or rejected.

With --stored only <new> is given and the stored snapshot of its order is
used as the old state.`,
		Example: `  routegraph diff MO-4711.v1.yaml MO-4711.v2.yaml
  routegraph diff --stored MO-4711.v2.yaml`,
		Args: func(cmd *cobra.Command, args []string) error {
			if stored {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		ValidArgsFunction: completeDocuments(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if stored {
				res, err := c.previewStored(ctx, args[0])
				if err != nil {
					return err
				}
				printDiffResult(res.Order.ExternalID(), res.Reconcile)
				return nil
			}

			old, err := c.loadOrder(ctx, args[0], false)
			if err != nil {
				return err
			}
			next, err := c.loadOrder(ctx, args[1], false)
			if err != nil {
				return err
			}
			res := previewReconcile(old, next)
			printDiffResult(old.ExternalID(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stored, "stored", false, "diff the document against the stored snapshot of its order")

	return cmd
}

// previewReconcile reconciles next into the routings of old. old is
// modified and must not be saved.
func previewReconcile(old, next *order.Order) routing.ReconcileResult {
	return old.Routings().Reconcile(next.Routings(), routing.NopTracker{})
}

// previewStored runs a dry-run import of the document at path, which diffs
// it against the stored snapshot of its order.
func (c *CLI) previewStored(ctx context.Context, path string) (*pipeline.Result, error) {
	doc, err := docio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	runner, closeStore, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	res, err := runner.Import(ctx, doc, pipeline.Options{DryRun: true})
	if err != nil {
		return nil, err
	}
	if !res.Restored {
		return nil, errors.New(errors.ErrCodeNotFound, "no snapshot stored for order %s", doc.Order)
	}
	return res, nil
}

func printDiffResult(orderID string, res routing.ReconcileResult) {
	if !res.Changed() && !hasRejected(res) {
		printSuccess("Order %s: no routing changes", StyleTitle.Render(orderID))
		return
	}

	printInfo("Order %s", StyleTitle.Render(orderID))
	fmt.Println(outcomeTable(res))
	for _, out := range res.Outcomes {
		for _, d := range out.Diff.Descriptions {
			printDetail("%s: %s", out.ExternalID, d)
		}
	}
	if res.ScheduleInvalidated {
		printWarning("importing would unschedule the order")
	}
}

func hasRejected(res routing.ReconcileResult) bool {
	for _, o := range res.Outcomes {
		if o.Action == routing.ActionRejected {
			return true
		}
	}
	return false
}
