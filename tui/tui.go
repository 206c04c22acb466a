// ABOUTME: Terminal Kanban board using the bubbletea framework
// ABOUTME: One column per stage; cards move between stages through the stage engine
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewDetail
	ViewConfirmDelete
)

// Engine is what the board drives.
type Engine interface {
	Board(ctx context.Context, owner string) ([]pipeline.Column, error)
	NextPage(ctx context.Context, col *pipeline.Column, owner string) error
	MoveToStage(ctx context.Context, id uuid.UUID, stageID string) (*models.Opportunity, error)
	Delete(ctx context.Context, id uuid.UUID) (pipeline.DeleteResult, error)
}

type keyMap struct {
	Left    key.Binding
	Right   key.Binding
	Up      key.Binding
	Down    key.Binding
	Tab     key.Binding
	BackTab key.Binding
	More    key.Binding
	Refresh key.Binding
	Open    key.Binding
	Delete  key.Binding
	Back    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "move card left")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "move card right")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next column")),
	BackTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev column")),
	More:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the main bubbletea model
type Model struct {
	engine Engine
	owner  string
	ctx    context.Context

	viewMode ViewMode
	columns  []pipeline.Column
	focus    int
	selected []int
	loading  bool
	status   string
	err      error

	width  int
	height int
}

// NewModel creates a board for owner's opportunities. An empty owner shows all.
func NewModel(ctx context.Context, engine Engine, owner string) Model {
	return Model{
		engine:   engine,
		owner:    owner,
		ctx:      ctx,
		viewMode: ViewBoard,
		loading:  true,
		width:    120,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadBoard()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case boardLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setColumns(msg.columns)
		return m, nil
	case pageLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.index < len(m.columns) {
			m.columns[msg.index] = msg.column
		}
		return m, nil
	case movedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = "Moved " + msg.opp.Name
		return m, m.loadBoard()
	case deletedMsg:
		m.viewMode = ViewBoard
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = "Deleted " + msg.name
		if len(msg.result.Warnings) > 0 {
			m.status += " (" + msg.result.Warnings[0] + ")"
		}
		return m, m.loadBoard()
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return m.renderBoardView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) && m.viewMode != ViewConfirmDelete {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}
	return m.handleBoardKeys(msg)
}

// setColumns swaps in fresh columns, keeping focus and selection in range.
func (m *Model) setColumns(cols []pipeline.Column) {
	m.columns = cols
	if m.focus >= len(cols) {
		m.focus = len(cols) - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
	sel := make([]int, len(cols))
	for i := range cols {
		if i < len(m.selected) {
			sel[i] = m.selected[i]
		}
		if n := len(cols[i].Page.Items); sel[i] >= n {
			sel[i] = n - 1
		}
		if sel[i] < 0 {
			sel[i] = 0
		}
	}
	m.selected = sel
}

// card returns the selected opportunity of the focused column.
func (m Model) card() (*models.Opportunity, bool) {
	if m.focus >= len(m.columns) {
		return nil, false
	}
	items := m.columns[m.focus].Page.Items
	i := m.selected[m.focus]
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return &items[i], true
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)
