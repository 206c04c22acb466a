package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/pipecrm/app"
	"github.com/harperreed/pipecrm/config"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Owner = "sam"
	return app.New(cfg, db.NewTestStore(t), logging.Discard())
}

func noTerminal(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}

func seed(t *testing.T, a *app.App, o models.Opportunity) *models.Opportunity {
	t.Helper()
	res, err := a.Pipeline.Create(context.Background(), o)
	require.NoError(t, err)
	return res.Opportunity
}

func TestAddOpportunityAndListStage(t *testing.T) {
	a := setupTestApp(t)
	var out bytes.Buffer

	err := AddOpportunityCommand(a, &out, []string{"--name", "Roof", "--value", "2500", "--stage", "Contacted", "--contact", "Ann", "--tags", "hot, new"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Opportunity created: Roof")
	assert.Contains(t, out.String(), "Contact created: Ann")

	out.Reset()
	require.NoError(t, ListStageCommand(a, &out, []string{"Contacted"}))
	assert.Contains(t, out.String(), "Roof")
	assert.Contains(t, out.String(), "$2.5K")

	out.Reset()
	require.NoError(t, ListStageCommand(a, &out, []string{"--stage", "1"}))
	assert.Contains(t, out.String(), "No opportunities in New Lead")

	err = AddOpportunityCommand(a, &out, []string{"--value", "1"})
	assert.Error(t, err)

	err = AddOpportunityCommand(a, &out, []string{"--name", "x", "--stage", "Nowhere"})
	assert.True(t, errors.Is(err, pipeline.ErrUnknownStage))
}

func TestMoveAndUpdate(t *testing.T) {
	a := setupTestApp(t)
	opp := seed(t, a, models.Opportunity{Name: "Deal", Value: 100})
	var out bytes.Buffer

	require.NoError(t, MoveCommand(a, &out, []string{opp.ID.String(), "closed/won"}))
	assert.Contains(t, out.String(), "status: Won")

	out.Reset()
	require.NoError(t, UpdateOpportunityCommand(a, &out, []string{"--name", "Renamed", opp.ID.String()}))

	got, err := a.Pipeline.Get(context.Background(), opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 100.0, got.Value, "unset flags leave fields alone")
	assert.Equal(t, models.StatusWon, got.Status)

	assert.Error(t, MoveCommand(a, &out, []string{opp.ID.String()}))
	assert.Error(t, UpdateOpportunityCommand(a, &out, []string{"--name", "x"}))
}

func TestDeleteCommands(t *testing.T) {
	noTerminal(t)
	a := setupTestApp(t)
	one := seed(t, a, models.Opportunity{Name: "One", ContactName: "Ann"})
	two := seed(t, a, models.Opportunity{Name: "Two"})
	three := seed(t, a, models.Opportunity{Name: "Three"})
	var out bytes.Buffer

	require.NoError(t, DeleteOpportunityCommand(a, &out, []string{one.ID.String()}))
	assert.Contains(t, out.String(), "Contact")

	err := BulkDeleteCommand(a, &out, []string{two.ID.String(), three.ID.String()})
	assert.Error(t, err, "no terminal and no --yes")

	out.Reset()
	require.NoError(t, BulkDeleteCommand(a, &out, []string{"--yes", two.ID.String(), three.ID.String()}))
	assert.Contains(t, out.String(), "Deleted 2 opportunities")

	all, err := a.Pipeline.All(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConfirmReadsAnswer(t *testing.T) {
	origTerm, origIn := isTerminal, stdin
	t.Cleanup(func() { isTerminal, stdin = origTerm, origIn })
	isTerminal = func() bool { return true }

	var out bytes.Buffer
	stdin = strings.NewReader("y\n")
	assert.NoError(t, confirm(&out, "Really?", false))
	assert.Contains(t, out.String(), "Really? [y/N]")

	stdin = strings.NewReader("\n")
	assert.True(t, errors.Is(confirm(&out, "Really?", false), ErrNotConfirmed))
}

func TestSaveStagesByTitles(t *testing.T) {
	a := setupTestApp(t)
	var out bytes.Buffer

	require.NoError(t, SaveStagesCommand(a, &out, []string{"--titles", "Cold, Warm, Won"}))
	stages, err := a.Pipeline.Stages(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "0", stages[0].ID, "renaming keeps the id")
	assert.Equal(t, "Cold", stages[0].Title)

	out.Reset()
	require.NoError(t, StagesCommand(a, &out, nil))
	assert.Contains(t, out.String(), "Warm")

	assert.Error(t, SaveStagesCommand(a, &out, nil))
}

func TestImportExportContacts(t *testing.T) {
	a := setupTestApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(in, []byte("Name,Email,Company\nAnn,ann@example.com,Acme\nAnn,ann@example.com,Acme\n,,\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, ImportContactsCommand(a, &out, []string{in}))
	assert.Contains(t, out.String(), "Imported 1 rows")
	assert.Contains(t, out.String(), "1 duplicate rows ignored")
	assert.Contains(t, out.String(), "1 empty rows skipped")

	out.Reset()
	require.NoError(t, ExportContactsCommand(a, &out, nil))
	assert.Contains(t, out.String(), "ann@example.com")

	exported := filepath.Join(dir, "opps.csv")
	out.Reset()
	require.NoError(t, ExportOpportunitiesCommand(a, &out, []string{"--file", exported}))
	assert.Contains(t, out.String(), "Exported 1 rows")

	assert.Error(t, ImportOpportunitiesCommand(a, &out, []string{filepath.Join(dir, "missing.csv")}))
}

func TestDedupeCommand(t *testing.T) {
	a := setupTestApp(t)
	ctx := context.Background()
	_, err := a.Pipeline.AddContact(ctx, models.Contact{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	_, err = a.Pipeline.AddContact(ctx, models.Contact{Name: "Ann B", Email: "ann@example.com"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, DedupeCommand(a, &out, []string{"--yes", "contacts"}))
	assert.Contains(t, out.String(), "Removed 1 duplicate contacts, kept 1")

	assert.Error(t, DedupeCommand(a, &out, []string{"--yes", "widgets"}))
}

func TestTaskCommands(t *testing.T) {
	a := setupTestApp(t)
	opp := seed(t, a, models.Opportunity{Name: "Deal"})
	var out bytes.Buffer

	require.NoError(t, AddTaskCommand(a, &out, []string{opp.ID.String(), "--title", "Call", "--assignee", "ana"}))
	list, err := a.Tasks.Tasks(context.Background(), opp.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	taskID := list[0].ID

	err = ToggleTaskCommand(a, &out, []string{opp.ID.String(), taskID})
	assert.True(t, errors.Is(err, tasks.ErrNotPermitted))

	out.Reset()
	require.NoError(t, ToggleTaskCommand(a, &out, []string{"--as", "ana", opp.ID.String(), taskID}))
	assert.Contains(t, out.String(), "Call is done")

	err = DeleteTaskCommand(a, &out, []string{"--as", "ana", opp.ID.String(), taskID})
	assert.True(t, errors.Is(err, tasks.ErrNotPermitted), "only the creator deletes")
	require.NoError(t, DeleteTaskCommand(a, &out, []string{opp.ID.String(), taskID}))

	require.NoError(t, AddNoteCommand(a, &out, []string{opp.ID.String(), "left voicemail"}))
	got, err := a.Pipeline.Get(context.Background(), opp.ID)
	require.NoError(t, err)
	assert.Len(t, got.Notes, 1)
	assert.Empty(t, got.Tasks)
}

func TestConversationCommands(t *testing.T) {
	a := setupTestApp(t)
	contact, err := a.Pipeline.AddContact(context.Background(), models.Contact{Name: "Ann"})
	require.NoError(t, err)
	var out bytes.Buffer

	require.NoError(t, SendMessageCommand(a, &out, []string{contact.ID.String(), "hello"}))
	require.NoError(t, SendMessageCommand(a, &out, []string{"--incoming", contact.ID.String(), "hi"}))

	out.Reset()
	require.NoError(t, ConversationsCommand(a, &out, nil))
	assert.Contains(t, out.String(), "Ann")
	assert.Contains(t, out.String(), "hi")
}

func TestAppointmentCommands(t *testing.T) {
	a := setupTestApp(t)
	var out bytes.Buffer
	next := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")

	require.NoError(t, AddAppointmentCommand(a, &out, []string{"--title", "Site visit", "--date", next, "--time", "09:00"}))
	assert.Error(t, AddAppointmentCommand(a, &out, []string{"--title", "Bad", "--date", "soon"}))

	out.Reset()
	require.NoError(t, AppointmentsCommand(a, &out, nil))
	assert.Contains(t, out.String(), "Site visit")
}

func TestSummaryAndGraph(t *testing.T) {
	a := setupTestApp(t)
	seed(t, a, models.Opportunity{Name: "Deal", Value: 1000, Stage: "4"})
	var out bytes.Buffer

	require.NoError(t, SummaryCommand(a, &out, nil))
	assert.Contains(t, out.String(), "Needs Analysis")

	out.Reset()
	require.NoError(t, GraphCommand(a, &out, nil))
	assert.Contains(t, out.String(), "->")
}

func TestBoardAndSyncGuards(t *testing.T) {
	noTerminal(t)
	a := setupTestApp(t)
	var out bytes.Buffer

	assert.Error(t, BoardCommand(a, &out, nil))
	assert.Error(t, SyncCommand(a, &out, []string{"status"}))
}
