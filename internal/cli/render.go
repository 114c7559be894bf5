package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/render"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	routing  string
	detailed bool
	stored   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a routing as a Graphviz graph",
		Long: `Render writes a routing as Graphviz DOT, or as SVG when the output file ends
in .svg. Without -o the DOT source is printed.`,
		Example: `  routegraph render MO-4711.yaml -o MO-4711.svg
  routegraph render MO-4711.yaml --routing ALT --detailed | dot -Tpng > alt.png`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocuments(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := c.loadOrder(cmd.Context(), args[0], opts.stored)
			if err != nil {
				return err
			}
			r, err := pickRouting(o, opts.routing)
			if err != nil {
				return err
			}

			dot, err := render.ToDOT(r, render.Options{
				Detailed: opts.detailed,
				Title:    o.ExternalID() + " / " + r.ExternalID(),
			})
			if err != nil {
				return err
			}
			if opts.output == "" {
				fmt.Print(dot)
				return nil
			}

			prog := newProgress(c.Logger)
			data := []byte(dot)
			switch ext := strings.ToLower(filepath.Ext(opts.output)); ext {
			case ".dot", ".gv":
			case ".svg":
				if data, err = render.RenderSVG(cmd.Context(), dot); err != nil {
					return err
				}
			default:
				return errors.Invalid(errors.ErrCodeInvalidFormat, "output", ext, "unsupported output format (want .dot, .gv or .svg)")
			}
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "write %s", opts.output)
			}
			prog.done("Rendered", "routing", r.ExternalID())

			printSuccess("Rendered routing %s", StyleTitle.Render(r.ExternalID()))
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.dot, .gv or .svg)")
	cmd.Flags().StringVarP(&opts.routing, "routing", "r", "", "routing external id (default: the order's default routing)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label edges with their overlap parameters")
	cmd.Flags().BoolVar(&opts.stored, "stored", false, "use the stored snapshot instead of the document's routings")
	_ = cmd.RegisterFlagCompletionFunc("output", completeRenderOutput)
	_ = cmd.RegisterFlagCompletionFunc("routing", completeRoutings)

	return cmd
}
