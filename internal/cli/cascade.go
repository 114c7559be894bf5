package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/pkg/errors"
	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// stateReport is one operation=state argument of the cascade command.
type stateReport struct {
	operation string
	state     routing.ProductionState
}

func parseStateReport(arg string) (stateReport, error) {
	op, state, ok := strings.Cut(arg, "=")
	if !ok || op == "" {
		return stateReport{}, errors.Invalid(errors.ErrCodeInvalidInput, "report", arg, "want <operation>=<state>")
	}
	s, err := routing.ParseProductionState(state)
	if err != nil {
		return stateReport{}, err
	}
	return stateReport{operation: op, state: s}, nil
}

// cascadeOpts holds the flags of the cascade command.
type cascadeOpts struct {
	output string
	stored bool
}

// cascadeCommand creates the cascade command.
func (c *CLI) cascadeCommand() *cobra.Command {
	var opts cascadeOpts

	cmd := &cobra.Command{
		Use:   "cascade <file> <operation>=<state>...",
		Short: "Report production feedback and run the auto-finish cascade",
		Long: `Cascade records production states for operations of an order document and
finishes the predecessors whose edges auto-finish on that state. With -o the
document is written back with the resulting operation states.

With --stored the cascade runs over the stored routings of the order instead
of the document's.

States: unstarted, setup-started, run-started, post-processing-started,
finished.`,
		Example: `  routegraph cascade MO-4711.yaml OP30=setup-started
  routegraph cascade MO-4711.yaml OP30=finished OP40=run-started -o MO-4711.yaml`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: completeStateReports,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := make([]stateReport, 0, len(args)-1)
			for _, arg := range args[1:] {
				rep, err := parseStateReport(arg)
				if err != nil {
					return err
				}
				reports = append(reports, rep)
			}

			o, err := c.loadOrder(cmd.Context(), args[0], opts.stored)
			if errors.Is(err, errors.ErrCodeNotFound) {
				printNextStep("Import the order first", appName+" import "+args[0])
			}
			if err != nil {
				return err
			}

			finished, err := applyReports(o, reports)
			if err != nil {
				return err
			}
			if len(finished) == 0 {
				printInfo("No operations were auto-finished")
			} else {
				printSuccess("Auto-finished %d operation(s)", len(finished))
				for _, id := range finished {
					printDetail("%s", id)
				}
			}

			if opts.output == "" {
				return nil
			}
			if err := docio.WriteFile(docio.FromOrder(o), opts.output); err != nil {
				return err
			}
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the updated document to this file")
	cmd.Flags().BoolVar(&opts.stored, "stored", false, "use the stored snapshot instead of the document's routings")

	return cmd
}

// applyReports reports the states in order and collects the external ids
// of the operations finished by the cascade.
func applyReports(o *order.Order, reports []stateReport) ([]string, error) {
	var finished []string
	for _, rep := range reports {
		ops, err := o.ReportState(rep.operation, rep.state)
		if err != nil {
			return finished, err
		}
		for _, op := range ops {
			finished = append(finished, op.ExternalID())
		}
	}
	return finished, nil
}
