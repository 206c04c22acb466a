// ABOUTME: Asynchronous backend calls for the board
// ABOUTME: Each call runs as a tea.Cmd and reports back with a message
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
)

type boardLoadedMsg struct {
	columns []pipeline.Column
	err     error
}

type pageLoadedMsg struct {
	index  int
	column pipeline.Column
	err    error
}

type movedMsg struct {
	opp *models.Opportunity
	err error
}

type deletedMsg struct {
	name   string
	result pipeline.DeleteResult
	err    error
}

func (m Model) loadBoard() tea.Cmd {
	engine, ctx, owner := m.engine, m.ctx, m.owner
	return func() tea.Msg {
		cols, err := engine.Board(ctx, owner)
		return boardLoadedMsg{columns: cols, err: err}
	}
}

func (m Model) loadMore(index int) tea.Cmd {
	engine, ctx, owner := m.engine, m.ctx, m.owner
	col := m.columns[index]
	col.Page.Items = append([]models.Opportunity(nil), col.Page.Items...)
	return func() tea.Msg {
		err := engine.NextPage(ctx, &col, owner)
		return pageLoadedMsg{index: index, column: col, err: err}
	}
}

func (m Model) move(id uuid.UUID, stageID string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		opp, err := engine.MoveToStage(ctx, id, stageID)
		return movedMsg{opp: opp, err: err}
	}
}

func (m Model) remove(id uuid.UUID, name string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		res, err := engine.Delete(ctx, id)
		return deletedMsg{name: name, result: res, err: err}
	}
}
