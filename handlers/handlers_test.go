// ABOUTME: Tests for the MCP tool handlers
// ABOUTME: Calls handlers directly against a temporary SQLite backend
package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/config"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/tasks"
	"github.com/harperreed/pipecrm/viz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Owner = "sam"
	return app.New(cfg, db.NewTestStore(t), logging.Discard())
}

func TestCreateOpportunityLinksContact(t *testing.T) {
	a := setupTestApp(t)
	h := NewOpportunityHandlers(a.Pipeline, "sam")
	ctx := context.Background()

	_, out, err := h.CreateOpportunity(ctx, nil, CreateOpportunityInput{
		Name:         "Kitchen remodel",
		Value:        4200,
		Stage:        "Qualified",
		ContactName:  "Jane Doe",
		ContactEmail: "jane@example.com",
	})
	require.NoError(t, err)

	if out.Stage != "3" {
		t.Errorf("Expected stage resolved by title to '3', got %q", out.Stage)
	}
	assert.Equal(t, "Open", out.Status)
	assert.Equal(t, "sam", out.Owner)
	assert.True(t, out.ContactCreated)
	require.NotNil(t, out.ContactID)

	_, again, err := h.CreateOpportunity(ctx, nil, CreateOpportunityInput{
		Name:         "Deck",
		ContactName:  "J. Doe",
		ContactEmail: "jane@example.com",
	})
	require.NoError(t, err)
	assert.False(t, again.ContactCreated)
	assert.Equal(t, *out.ContactID, *again.ContactID)
}

func TestCreateOpportunityValidation(t *testing.T) {
	a := setupTestApp(t)
	h := NewOpportunityHandlers(a.Pipeline, "")
	ctx := context.Background()

	_, _, err := h.CreateOpportunity(ctx, nil, CreateOpportunityInput{})
	assert.Error(t, err)

	_, _, err = h.CreateOpportunity(ctx, nil, CreateOpportunityInput{Name: "x", Stage: "Nowhere"})
	assert.True(t, errors.Is(err, pipeline.ErrUnknownStage))

	_, _, err = h.CreateOpportunity(ctx, nil, CreateOpportunityInput{Name: "x", Value: -5})
	assert.Error(t, err)
}

func TestMoveUpdateAndDelete(t *testing.T) {
	a := setupTestApp(t)
	h := NewOpportunityHandlers(a.Pipeline, "sam")
	ctx := context.Background()

	_, created, err := h.CreateOpportunity(ctx, nil, CreateOpportunityInput{Name: "Deal", ContactName: "Bob"})
	require.NoError(t, err)

	_, moved, err := h.MoveOpportunity(ctx, nil, MoveOpportunityInput{ID: created.ID, Stage: "Closed/Won"})
	require.NoError(t, err)
	assert.Equal(t, "10", moved.Stage)
	assert.Equal(t, "Won", moved.Status)

	_, _, err = h.MoveOpportunity(ctx, nil, MoveOpportunityInput{ID: "not-a-uuid", Stage: "1"})
	assert.Error(t, err)

	name := "Bigger deal"
	value := 9000.0
	_, updated, err := h.UpdateOpportunity(ctx, nil, UpdateOpportunityInput{ID: created.ID, Name: &name, Value: &value})
	require.NoError(t, err)
	assert.Equal(t, "Bigger deal", updated.Name)
	assert.Equal(t, 9000.0, updated.Value)
	assert.Equal(t, "Won", updated.Status)

	_, del, err := h.DeleteOpportunity(ctx, nil, DeleteOpportunityInput{ID: created.ID})
	require.NoError(t, err)
	assert.True(t, del.ContactDeleted)
	assert.Equal(t, created.ContactID, del.ContactID)
}

func TestListStageAndSummary(t *testing.T) {
	a := setupTestApp(t)
	h := NewOpportunityHandlers(a.Pipeline, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := h.CreateOpportunity(ctx, nil, CreateOpportunityInput{Name: "Lead", Value: 100, Stage: "1"})
		require.NoError(t, err)
	}

	_, page, err := h.ListStage(ctx, nil, ListStageInput{Stage: "1", PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Opportunities, 2)
	assert.True(t, page.HasMore)

	_, rest, err := h.ListStage(ctx, nil, ListStageInput{Stage: "New Lead", Cursor: page.NextCursor, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, rest.Opportunities, 1)
	assert.False(t, rest.HasMore)

	_, summary, err := h.StageSummary(ctx, nil, StageSummaryInput{})
	require.NoError(t, err)
	assert.Len(t, summary.Stages, len(pipeline.DefaultStages()))
	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, 300.0, summary.TotalValue)
	assert.Equal(t, 3, summary.Stages[1].Count)
}

func TestImportExportCSV(t *testing.T) {
	a := setupTestApp(t)
	h := NewCSVHandlers(a.Importer, a.Pipeline, "")
	ctx := context.Background()

	csvText := "Opportunity Name,Contact Name,Contact Email,Value,Stage\n" +
		"Roof,Ann,ann@example.com,\"$1,500\",Contacted\n" +
		"Siding,Ann,ann@example.com,abc,Contacted\n" +
		",,,,\n"

	_, out, err := h.ImportCSV(ctx, nil, ImportCSVInput{Kind: "opportunities", CSV: csvText})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Report.SuccessCount)
	assert.Equal(t, 1, out.Report.ErrorCount)
	assert.Equal(t, 1, out.Report.SkippedCount)

	_, exported, err := h.ExportCSV(ctx, nil, ExportCSVInput{Kind: "opportunities"})
	require.NoError(t, err)
	assert.Equal(t, 1, exported.Count)
	assert.True(t, strings.Contains(exported.CSV, "Roof"))

	_, contacts, err := h.ExportCSV(ctx, nil, ExportCSVInput{Kind: "contacts"})
	require.NoError(t, err)
	assert.Equal(t, 1, contacts.Count)

	_, _, err = h.ImportCSV(ctx, nil, ImportCSVInput{Kind: "widgets", CSV: csvText})
	assert.Error(t, err)

	_, _, err = h.ImportCSV(ctx, nil, ImportCSVInput{Kind: "contacts"})
	assert.Error(t, err)
}

func TestRemoveDuplicatesTool(t *testing.T) {
	a := setupTestApp(t)
	h := NewCSVHandlers(a.Importer, a.Pipeline, "")
	ctx := context.Background()

	csvText := "Name,Email\nAnn,ann@example.com\nBen,ben@example.com\n"
	_, _, err := h.ImportCSV(ctx, nil, ImportCSVInput{Kind: "contacts", CSV: csvText})
	require.NoError(t, err)

	_, out, err := h.RemoveDuplicates(ctx, nil, RemoveDuplicatesInput{Kind: "contacts"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Removed)
	assert.Equal(t, 2, out.Kept)
}

func TestTaskTools(t *testing.T) {
	a := setupTestApp(t)
	opps := NewOpportunityHandlers(a.Pipeline, "")
	h := NewTaskHandlers(a.Tasks, tasks.Identity{ID: "sam"})
	ctx := context.Background()

	_, opp, err := opps.CreateOpportunity(ctx, nil, CreateOpportunityInput{Name: "Deal"})
	require.NoError(t, err)

	_, task, err := h.AddTask(ctx, nil, AddTaskInput{OpportunityID: opp.ID, Title: "Call back", Assignee: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "sam", task.CreatedBy)
	assert.False(t, task.IsCompleted)

	_, _, err = h.ToggleTask(ctx, nil, ToggleTaskInput{OpportunityID: opp.ID, TaskID: task.ID})
	assert.True(t, errors.Is(err, tasks.ErrNotPermitted), "creator is not the assignee")

	_, toggled, err := h.ToggleTask(ctx, nil, ToggleTaskInput{OpportunityID: opp.ID, TaskID: task.ID, As: "ANA@example.com"})
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)

	_, note, err := h.AddNote(ctx, nil, AddNoteInput{OpportunityID: opp.ID, Content: "left voicemail"})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)

	_, _, err = h.AddNote(ctx, nil, AddNoteInput{OpportunityID: opp.ID, Content: "  "})
	assert.Error(t, err)
}

func TestNewServerRegistersTools(t *testing.T) {
	a := setupTestApp(t)
	assert.NotPanics(t, func() {
		NewServer(a, "test")
	})
}

func TestPipelineGraphResource(t *testing.T) {
	a := setupTestApp(t)
	gen := viz.NewGraphGenerator(a.Pipeline)
	res, err := PipelineGraphResource(gen)(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "digraph")
}
