// ABOUTME: Board view rendering and key handling
// ABOUTME: Stage columns with count and value headers, a scrolling window around the focused column
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pipecrm/viz"
)

const columnWidth = 26

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(columnWidth).
			Padding(0, 1)

	focusedColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	headerStyle = lipgloss.NewStyle().Bold(true)

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62"))
)

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE"))
	s.WriteString("\n")

	switch {
	case m.loading && len(m.columns) == 0:
		s.WriteString("Loading...\n")
	case len(m.columns) == 0:
		s.WriteString("No stages configured\n")
	default:
		s.WriteString(m.renderColumns())
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	} else if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("←/→: move card • ↑/↓: select • tab: column • m: more • enter: details • d: delete • r: refresh • q: quit"))
	return s.String()
}

// visibleRange picks the columns that fit the terminal width, keeping the
// focused one in view.
func (m Model) visibleRange() (int, int) {
	fit := m.width / (columnWidth + 4)
	if fit < 1 {
		fit = 1
	}
	if fit >= len(m.columns) {
		return 0, len(m.columns)
	}
	start := m.focus - fit/2
	if start < 0 {
		start = 0
	}
	if start+fit > len(m.columns) {
		start = len(m.columns) - fit
	}
	return start, start + fit
}

func (m Model) renderColumns() string {
	start, end := m.visibleRange()
	rendered := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rendered = append(rendered, m.renderColumn(i))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(i int) string {
	col := m.columns[i]
	var b strings.Builder

	b.WriteString(headerStyle.Render(truncate(col.Stage.Title, columnWidth-2)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d · %s\n", col.Totals.Count, viz.FormatMoney(col.Totals.Value)))
	b.WriteString(strings.Repeat("─", columnWidth-2))
	b.WriteString("\n")

	if len(col.Page.Items) == 0 {
		b.WriteString(cardStyle.Render("(empty)"))
		b.WriteString("\n")
	}
	for j, opp := range col.Page.Items {
		line := truncate(fmt.Sprintf("%s %s", opp.Name, viz.FormatMoney(opp.Value)), columnWidth-2)
		if i == m.focus && j == m.selected[i] {
			b.WriteString(selectedCardStyle.Render(line))
		} else {
			b.WriteString(cardStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if col.Page.HasMore {
		b.WriteString(helpStyle.Render("m: more"))
	}

	style := columnStyle
	if i == m.focus {
		style = focusedColumnStyle
	}
	return style.Render(b.String())
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.columns) == 0 {
		if key.Matches(msg, keys.Refresh) {
			m.loading = true
			return m, m.loadBoard()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Tab):
		m.focus = (m.focus + 1) % len(m.columns)
	case key.Matches(msg, keys.BackTab):
		m.focus = (m.focus - 1 + len(m.columns)) % len(m.columns)
	case key.Matches(msg, keys.Up):
		if m.selected[m.focus] > 0 {
			m.selected[m.focus]--
		}
	case key.Matches(msg, keys.Down):
		if m.selected[m.focus] < len(m.columns[m.focus].Page.Items)-1 {
			m.selected[m.focus]++
		}
	case key.Matches(msg, keys.Left), key.Matches(msg, keys.Right):
		opp, ok := m.card()
		if !ok {
			return m, nil
		}
		target := m.focus + 1
		if key.Matches(msg, keys.Left) {
			target = m.focus - 1
		}
		if target < 0 || target >= len(m.columns) {
			return m, nil
		}
		m.status = ""
		m.focus = target
		return m, m.move(opp.ID, m.columns[target].Stage.ID)
	case key.Matches(msg, keys.More):
		if m.columns[m.focus].Page.HasMore {
			return m, m.loadMore(m.focus)
		}
	case key.Matches(msg, keys.Refresh):
		m.loading = true
		return m, m.loadBoard()
	case key.Matches(msg, keys.Open):
		if _, ok := m.card(); ok {
			m.viewMode = ViewDetail
		}
	case key.Matches(msg, keys.Delete):
		if _, ok := m.card(); ok {
			m.viewMode = ViewConfirmDelete
		}
	}
	return m, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
