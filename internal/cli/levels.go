package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/pkg/routing"
)

// levelsOpts holds the flags of the levels command.
type levelsOpts struct {
	routing     string
	schedulable bool
	stored      bool
	interactive bool
}

// levelsCommand creates the levels command.
func (c *CLI) levelsCommand() *cobra.Command {
	var opts levelsOpts

	cmd := &cobra.Command{
		Use:   "levels <file>",
		Short: "Print the level order of a routing",
		Long: `Levels prints the operations of a routing in the earliest-to-latest order a
scheduler consumes: by level (longest predecessor chain) and then by node id.

Without --routing the default routing is shown; -i picks one interactively.
With --stored the routings come from the stored snapshot instead of the
document.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocuments(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := c.loadOrder(cmd.Context(), args[0], opts.stored)
			if err != nil {
				return err
			}

			var r *routing.Routing
			if opts.interactive {
				r, err = selectRouting(o.Routings())
				if err != nil || r == nil {
					return err
				}
			} else if r, err = pickRouting(o, opts.routing); err != nil {
				return err
			}

			levels, err := r.Levels()
			if err != nil {
				return err
			}
			if opts.schedulable {
				levels = schedulableLevels(levels)
			}

			printInfo("Routing %s of order %s", StyleTitle.Render(r.ExternalID()), o.ExternalID())
			printStats(r)
			fmt.Println(levelTable(levels))
			if p, ok := r.PrimaryProduct(); ok {
				printKeyValue("product", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.routing, "routing", "r", "", "routing external id (default: the order's default routing)")
	cmd.Flags().BoolVar(&opts.schedulable, "schedulable", false, "leave out finished and omitted operations")
	cmd.Flags().BoolVar(&opts.stored, "stored", false, "use the stored snapshot instead of the document's routings")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the routing interactively")
	_ = cmd.RegisterFlagCompletionFunc("routing", completeRoutings)

	return cmd
}

func schedulableLevels(levels []routing.LeveledNode) []routing.LeveledNode {
	out := levels[:0:0]
	for _, ln := range levels {
		if routing.Schedulable(ln.Node.Operation()) {
			out = append(out, ln)
		}
	}
	return out
}

// selectRouting runs the routing picker. It returns nil if the user quit.
func selectRouting(c *routing.Collection) (*routing.Routing, error) {
	if c.Len() == 0 {
		return nil, errNoRoutings(c.OrderID())
	}
	final, err := tea.NewProgram(NewRoutingListModel(c)).Run()
	if err != nil {
		return nil, fmt.Errorf("routing picker: %w", err)
	}
	return final.(RoutingListModel).Selected, nil
}
