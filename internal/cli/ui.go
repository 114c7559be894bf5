package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/routegraph/pkg/routing"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - scheduled
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleHeader    = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleScheduled = lipgloss.NewStyle().Foreground(colorBlue)
	styleFinished  = lipgloss.NewStyle().Foreground(colorDim)
	styleCommand   = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printStats prints routing statistics on a single line.
func printStats(r *routing.Routing) {
	parts := []string{
		fmt.Sprintf("%d operations", r.NodeCount()),
		fmt.Sprintf("%d edges", r.EdgeCount()),
		fmt.Sprintf("%d roots", len(r.Roots())),
		fmt.Sprintf("%d leaves", len(r.Leaves())),
	}
	fmt.Println("  " + StyleDim.Render(strings.Join(parts, " · ")))
}

// =============================================================================
// Tables
// =============================================================================

// headerRow is the row index lipgloss passes to StyleFunc for the header.
const headerRow = -1

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// levelTable renders a level-ordered routing as a table. Finished and
// omitted operations are dimmed; scheduled ones are highlighted.
func levelTable(levels []routing.LeveledNode) string {
	rows := make([][]string, len(levels))
	for i, ln := range levels {
		op := ln.Node.Operation()
		sched := ""
		if op.Scheduled() {
			sched = iconSuccess
		}
		rows[i] = []string{
			strconv.Itoa(ln.Level),
			op.ExternalID(),
			op.State().String(),
			sched,
			strconv.Itoa(ln.Node.In().Len()),
			strconv.Itoa(ln.Node.Out().Len()),
		}
	}

	return newTable("Level", "Operation", "State", "Scheduled", "Preds", "Succs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			op := levels[row].Node.Operation()
			switch {
			case !routing.Schedulable(op):
				return styleFinished
			case op.Scheduled():
				return styleScheduled
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// outcomeTable renders the per-routing result of a reconciliation.
func outcomeTable(res routing.ReconcileResult) string {
	rows := make([][]string, len(res.Outcomes))
	for i, o := range res.Outcomes {
		cause := ""
		if o.Diff.RoutingChanged {
			cause = o.Diff.Cause.String()
		}
		if o.Err != nil {
			cause = o.Err.Error()
		}
		rows[i] = []string{o.ExternalID, o.Action.String(), cause}
	}

	return newTable("Routing", "Action", "Cause").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			o := res.Outcomes[row]
			switch {
			case o.Action == routing.ActionRejected:
				return lipgloss.NewStyle().Foreground(colorRed)
			case o.Diff.ScheduleChanged:
				return StyleWarning
			case o.Action == routing.ActionUnchanged:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
