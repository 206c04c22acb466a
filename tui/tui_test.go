package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/pipecrm/cache"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoard(t *testing.T) (Model, *pipeline.Service) {
	t.Helper()
	backend := db.NewTestStore(t)
	engine := pipeline.New(backend, cache.Contacts(backend, ""), pipeline.Config{}, logging.Discard())
	return NewModel(context.Background(), engine, ""), engine
}

// run executes cmd and feeds its message back, like the bubbletea runtime would.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, next := m.Update(cmd())
	m = updated.(Model)
	if next != nil {
		return run(t, m, next)
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardLoadsColumns(t *testing.T) {
	m, engine := newBoard(t)
	_, err := engine.Create(context.Background(), models.Opportunity{Name: "Acme renewal", Value: 1200, Stage: "1"})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	require.Len(t, m.columns, len(pipeline.DefaultStages()))

	view := m.View()
	assert.Contains(t, view, "PIPELINE")
	assert.Contains(t, view, "Acme renewal")
}

func TestMoveCardRight(t *testing.T) {
	m, engine := newBoard(t)
	ctx := context.Background()
	res, err := engine.Create(ctx, models.Opportunity{Name: "Deal", Stage: "9"})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	m.focus = 9

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = run(t, m, cmd)

	assert.Equal(t, 10, m.focus)
	assert.Contains(t, m.status, "Moved Deal")

	got, err := engine.Get(ctx, res.Opportunity.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Stage)
	assert.Equal(t, models.StatusWon, got.Status)
}

func TestMoveAtEdgeIsNoop(t *testing.T) {
	m, engine := newBoard(t)
	_, err := engine.Create(context.Background(), models.Opportunity{Name: "Junk", Stage: "0"})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.focus)
}

func TestColumnNavigationWraps(t *testing.T) {
	m, _ := newBoard(t)
	m = run(t, m, m.Init())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, len(m.columns)-1, m.focus)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.focus)
}

func TestDeleteConfirmation(t *testing.T) {
	m, engine := newBoard(t)
	ctx := context.Background()
	res, err := engine.Create(ctx, models.Opportunity{Name: "Doomed", Stage: "0"})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	m, _ = press(t, m, runes("d"))
	assert.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "Doomed")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.viewMode)

	m, _ = press(t, m, runes("d"))
	m, cmd := press(t, m, runes("y"))
	m = run(t, m, cmd)
	assert.Equal(t, ViewBoard, m.viewMode)
	assert.True(t, strings.HasPrefix(m.status, "Deleted Doomed"))

	got, err := engine.Get(ctx, res.Opportunity.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadMore(t *testing.T) {
	m, engine := newBoard(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := engine.Create(ctx, models.Opportunity{Name: "Lead", Stage: "1"})
		require.NoError(t, err)
	}

	m = run(t, m, m.Init())
	m.focus = 1
	require.Len(t, m.columns[1].Page.Items, 10)
	assert.True(t, m.columns[1].Page.HasMore)

	m, cmd := press(t, m, runes("m"))
	m = run(t, m, cmd)
	assert.Len(t, m.columns[1].Page.Items, 12)
	assert.False(t, m.columns[1].Page.HasMore)
}

func TestDetailView(t *testing.T) {
	m, engine := newBoard(t)
	_, err := engine.Create(context.Background(), models.Opportunity{
		Name:         "Detail",
		Stage:        "0",
		ContactName:  "Jane Doe",
		ContactEmail: "jane@example.com",
		Tags:         []string{"hot"},
	})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, m.viewMode)

	view := m.View()
	assert.Contains(t, view, "Jane Doe")
	assert.Contains(t, view, "hot")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.viewMode)
}

func TestQuit(t *testing.T) {
	m, _ := newBoard(t)
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
