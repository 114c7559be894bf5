package cli

import (
	"github.com/spf13/cobra"

	docio "github.com/matzehuels/routegraph/pkg/io"
)

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var stored bool

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert an order document between JSON, YAML and TOML",
		Long: `Convert reads an order document, validates it by building its routings and
writes it in the format given by the extension of <out>.

With --stored the routings written are those of the stored snapshot, which
exports the reconciled state of an imported order.`,
		Example: `  routegraph convert MO-4711.json MO-4711.yaml
  routegraph convert --stored MO-4711.yaml MO-4711.snapshot.toml`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeDocuments(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := c.loadOrder(cmd.Context(), args[0], stored)
			if err != nil {
				return err
			}
			if err := docio.WriteFile(docio.FromOrder(o), args[1]); err != nil {
				return err
			}
			printSuccess("Converted order %s", StyleTitle.Render(o.ExternalID()))
			printFile(args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&stored, "stored", false, "write the stored snapshot's routings")

	return cmd
}
