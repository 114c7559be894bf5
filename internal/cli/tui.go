package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/routegraph/pkg/routing"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// RoutingListModel is the bubbletea model for interactive routing selection.
type RoutingListModel struct {
	Routings []*routing.Routing
	Default  *routing.Routing
	Active   *routing.Routing
	Cursor   int
	Selected *routing.Routing
	Height   int
	Offset   int
}

// NewRoutingListModel lists the routings of c with the cursor on the
// default routing.
func NewRoutingListModel(c *routing.Collection) RoutingListModel {
	m := RoutingListModel{
		Routings: c.Routings(),
		Default:  c.Default(),
		Active:   c.Active(),
		Height:   15,
	}
	for i, r := range m.Routings {
		if r == m.Default {
			m.Cursor = i
		}
	}
	if m.Cursor >= m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m
}

func (m RoutingListModel) Init() tea.Cmd {
	return nil
}

func (m RoutingListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Routings)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Routings) == 0 {
				return m, tea.Quit
			}
			m.Selected = m.Routings[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m RoutingListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Routing"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Routings))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Routings[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		var flags []string
		if r == m.Default {
			flags = append(flags, "default")
		}
		if r == m.Active {
			flags = append(flags, "active")
		}
		rows = append(rows, []string{
			cursor,
			r.ExternalID(),
			r.Name(),
			strconv.Itoa(r.Preference()),
			strconv.Itoa(r.NodeCount()),
			r.AutoUse().String(),
			strings.Join(flags, ", "),
		})
	}

	t := newTable("", "Routing", "Name", "Pref", "Ops", "Auto-use", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Routings))))

	return b.String()
}
