package cli

import (
	"strings"

	"github.com/spf13/cobra"

	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// documentExts are the extensions docio.FormatFromPath accepts.
var documentExts = []string{"json", "yaml", "yml", "toml"}

// renderExts are the outputs of the render command.
var renderExts = []string{"dot", "gv", "svg"}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion bash|zsh|fish|powershell",
		Short: "Generate shell completion scripts",
		Long: `Completion prints the completion script for a shell. Besides commands and
flags it completes order documents by extension, the routing ids of a
document for --routing, render outputs for -o and operation=state reports
for cascade.`,
		Example: `  source <(routegraph completion bash)
  routegraph completion zsh > "${fpath[1]}/_routegraph"
  routegraph completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
		},
	}
}

// completeDocuments completes order documents for the first n positional
// arguments, or for all of them when n is negative.
func completeDocuments(n int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if n >= 0 && len(args) >= n {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return documentExts, cobra.ShellCompDirectiveFilterFileExt
	}
}

// completeRoutings completes the routing ids of the document given as the
// first argument.
func completeRoutings(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	doc, err := docio.ReadFile(args[0])
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return routingIDs(doc, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeRenderOutput(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return renderExts, cobra.ShellCompDirectiveFilterFileExt
}

// completeStateReports completes the cascade arguments: the document, then
// operation ids followed by their production states.
func completeStateReports(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return documentExts, cobra.ShellCompDirectiveFilterFileExt
	}
	doc, err := docio.ReadFile(args[0])
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	if !strings.Contains(toComplete, "=") {
		return operationPrefixes(doc, toComplete), cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
	return stateReports(toComplete), cobra.ShellCompDirectiveNoFileComp
}

func routingIDs(doc *docio.Document, prefix string) []string {
	var out []string
	for _, r := range doc.Routings {
		if !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		if r.Name != "" {
			out = append(out, r.ID+"\t"+r.Name)
		} else {
			out = append(out, r.ID)
		}
	}
	return out
}

func operationPrefixes(doc *docio.Document, prefix string) []string {
	var out []string
	for _, op := range doc.Operations {
		if strings.HasPrefix(op.ID, prefix) {
			out = append(out, op.ID+"=")
		}
	}
	return out
}

func stateReports(toComplete string) []string {
	op, _, _ := strings.Cut(toComplete, "=")
	var out []string
	for s := routing.Unstarted; s <= routing.Finished; s++ {
		if report := op + "=" + s.String(); strings.HasPrefix(report, toComplete) {
			out = append(out, report)
		}
	}
	return out
}
