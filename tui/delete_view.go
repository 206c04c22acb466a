// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Confirms removal of the selected opportunity before calling the engine
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	opp, ok := m.card()
	if !ok {
		return "No opportunity selected"
	}

	var content strings.Builder
	content.WriteString(warningStyle.Render("⚠ DELETE CONFIRMATION"))
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("Delete opportunity:\n\n%s\n\n", lipgloss.NewStyle().Bold(true).Render(opp.Name)))
	if opp.ContactName != "" {
		content.WriteString(fmt.Sprintf("Its contact %s is removed too unless other opportunities use it.\n\n", opp.ContactName))
	}
	content.WriteString(warningStyle.Render("This action cannot be undone!"))
	content.WriteString("\n\n")

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)
	content.WriteString(buttons)

	box := confirmBoxStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		opp, ok := m.card()
		if !ok {
			m.viewMode = ViewBoard
			return m, nil
		}
		return m, m.remove(opp.ID, opp.Name)
	case "n", "N", "esc":
		m.viewMode = ViewBoard
	}
	return m, nil
}
