// ABOUTME: Detail view for the selected card
// ABOUTME: Contact, value, tags, tasks and notes of one opportunity
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pipecrm/viz"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true).
			Width(14)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	opp, ok := m.card()
	if !ok {
		return "No opportunity selected"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(opp.Name))
	s.WriteString("\n")

	s.WriteString(m.renderField("Stage", m.columns[m.focus].Stage.Title))
	s.WriteString(m.renderField("Status", opp.Status))
	s.WriteString(m.renderField("Value", viz.FormatMoney(opp.Value)))
	s.WriteString(m.renderField("Owner", opp.Owner))
	s.WriteString(m.renderField("Contact", opp.ContactName))
	s.WriteString(m.renderField("Email", opp.ContactEmail))
	s.WriteString(m.renderField("Phone", opp.ContactPhone))
	s.WriteString(m.renderField("Company", opp.CompanyName))
	s.WriteString(m.renderField("Source", opp.Source))
	s.WriteString(m.renderField("Tags", strings.Join(opp.Tags, ", ")))

	if len(opp.Tasks) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Render("TASKS"))
		s.WriteString("\n")
		for _, task := range opp.Tasks {
			mark := "[ ]"
			if task.IsCompleted {
				mark = "[x]"
			}
			line := fmt.Sprintf("  %s %s", mark, task.Title)
			if task.DueDate != "" {
				line += " (due " + task.DueDate + ")"
			}
			s.WriteString(line + "\n")
		}
	}

	if len(opp.Notes) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Render("NOTES"))
		s.WriteString("\n")
		for _, note := range opp.Notes {
			s.WriteString(fmt.Sprintf("  %s  %s\n", note.CreatedAt.Format("2006-01-02"), note.Content))
		}
	}

	s.WriteString(helpStyle.Render("esc: back • d: delete • q: quit"))
	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.viewMode = ViewBoard
	case key.Matches(msg, keys.Delete):
		m.viewMode = ViewConfirmDelete
	}
	return m, nil
}
