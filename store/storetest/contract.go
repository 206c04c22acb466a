// ABOUTME: Behavioral contract every store.Backend must satisfy
// ABOUTME: Backend packages call Run from their tests with a fresh-backend factory

package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backend; it registers its own cleanup on t.
type Factory func(t *testing.T) store.Backend

// Run exercises the full backend contract against fresh backends.
func Run(t *testing.T, newBackend Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b store.Backend)
	}{
		{"ContactCRUD", testContactCRUD},
		{"ContactSearch", testContactSearch},
		{"ContactNotFound", testContactNotFound},
		{"OpportunityCRUD", testOpportunityCRUD},
		{"StagePaginationExhaustion", testStagePagination},
		{"StageAggregates", testStageAggregates},
		{"BulkDelete", testBulkDelete},
		{"RemoveDuplicateContacts", testRemoveDuplicateContacts},
		{"RemoveDuplicateOpportunities", testRemoveDuplicateOpportunities},
		{"Subscriptions", testSubscriptions},
		{"Stages", testStages},
		{"Appointments", testAppointments},
		{"Conversations", testConversations},
		{"OwnerFilter", testOwnerFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newBackend(t))
		})
	}
}

func testContactCRUD(t *testing.T, b store.Backend) {
	ctx := context.Background()

	c := &models.Contact{Name: "Jane Doe", Email: "jane@example.com", ValueTier: models.TierMid, Owner: "sam"}
	require.NoError(t, b.CreateContact(ctx, c))
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := b.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, models.TierMid, got.ValueTier)

	require.NoError(t, b.UpdateContact(ctx, c.ID, models.ContactPatch{Phone: models.String("555-0100")}))
	got, err = b.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", got.Phone)
	assert.Equal(t, "jane@example.com", got.Email, "unpatched fields are kept")
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt), "createdAt is immutable")

	require.NoError(t, b.DeleteContact(ctx, c.ID))
	got, err = b.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testContactSearch(t *testing.T, b store.Backend) {
	ctx := context.Background()

	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "Alice", CompanyName: "Acme"}))
	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "Bob", Email: "bob@acme.io"}))
	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "Carol", Phone: "555-9999"}))

	found, err := b.SearchContacts(ctx, "", "ACME")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = b.SearchContacts(ctx, "", "9999")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Carol", found[0].Name)
}

func testContactNotFound(t *testing.T, b store.Backend) {
	ctx := context.Background()
	missing := uuid.New()

	got, err := b.GetContact(ctx, missing)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = b.UpdateContact(ctx, missing, models.ContactPatch{Name: models.String("x")})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	err = b.DeleteContact(ctx, missing)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	err = b.DeleteOpportunity(ctx, missing)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func testOpportunityCRUD(t *testing.T, b store.Backend) {
	ctx := context.Background()
	contactID := uuid.New()

	opp := &models.Opportunity{
		Name:      "Big Deal",
		Value:     1200,
		Stage:     "1",
		Status:    models.StatusOpen,
		Tags:      []string{"hot"},
		ContactID: &contactID,
		Tasks:     []models.Task{{ID: "t1", Title: "Call"}},
		Notes:     []models.Note{{ID: "n1", Content: "met at expo"}},
	}
	require.NoError(t, b.CreateOpportunity(ctx, opp))

	got, err := b.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"hot"}, got.Tags)
	require.NotNil(t, got.ContactID)
	assert.Equal(t, contactID, *got.ContactID)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "Call", got.Tasks[0].Title)
	require.Len(t, got.Notes, 1)

	before := got.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, b.UpdateOpportunity(ctx, opp.ID, models.OpportunityPatch{Stage: models.String("2"), ClearContact: true}))

	got, err = b.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Stage)
	assert.Nil(t, got.ContactID)
	assert.Equal(t, "Big Deal", got.Name)
	assert.True(t, got.UpdatedAt.After(before), "updatedAt is bumped")

	err = b.UpdateOpportunity(ctx, uuid.New(), models.OpportunityPatch{Name: models.String("x")})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testStagePagination(t *testing.T, b store.Backend) {
	ctx := context.Background()

	var want []uuid.UUID
	for i := 0; i < 23; i++ {
		stage := "1"
		if i%3 == 0 {
			stage = "2"
		}
		opp := &models.Opportunity{Name: "Deal", Value: float64(i), Stage: stage, Status: models.StatusOpen}
		require.NoError(t, b.CreateOpportunity(ctx, opp))
		if stage == "1" {
			want = append(want, opp.ID)
		}
	}

	var got []uuid.UUID
	cursor := ""
	pages := 0
	for {
		page, err := b.ListOpportunitiesByStage(ctx, "1", store.ListOptions{Cursor: cursor, PageSize: 4})
		require.NoError(t, err)
		for _, o := range page.Items {
			assert.Equal(t, "1", o.Stage)
			got = append(got, o.ID)
		}
		pages++
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
		require.Less(t, pages, 20, "pagination did not terminate")
	}

	assert.Equal(t, want, got, "full, non-overlapping, creation ordered")
	assert.Equal(t, 4, pages)

	// An insert after the first page is fetched must not shift later pages.
	first, err := b.ListOpportunitiesByStage(ctx, "1", store.ListOptions{PageSize: 5})
	require.NoError(t, err)
	require.NoError(t, b.CreateOpportunity(ctx, &models.Opportunity{Name: "Late", Stage: "1", Status: models.StatusOpen}))
	rest, err := b.ListOpportunitiesByStage(ctx, "1", store.ListOptions{Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Items, len(want)-5+1)
	assert.Equal(t, want[5], rest.Items[0].ID)
}

func testStageAggregates(t *testing.T, b store.Backend) {
	ctx := context.Background()

	for _, o := range []models.Opportunity{
		{Name: "a", Value: 100, Stage: "1", Status: models.StatusOpen},
		{Name: "b", Value: 50.5, Stage: "1", Status: models.StatusOpen},
		{Name: "c", Value: 10, Stage: "10", Status: models.StatusWon},
	} {
		o := o
		require.NoError(t, b.CreateOpportunity(ctx, &o))
	}

	totals, err := b.StageAggregates(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StageTotals{Count: 2, Value: 150.5}, totals["1"])
	assert.Equal(t, store.StageTotals{Count: 1, Value: 10}, totals["10"])
	assert.Len(t, totals, 2)
}

func testBulkDelete(t *testing.T, b store.Backend) {
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		o := &models.Opportunity{Name: "x", Stage: "0", Status: models.StatusOpen}
		require.NoError(t, b.CreateOpportunity(ctx, o))
		ids = append(ids, o.ID)
	}

	require.NoError(t, b.BulkDeleteOpportunities(ctx, ids[:2]))

	page, err := b.ListOpportunities(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[2], page.Items[0].ID)

	c := &models.Contact{Name: "gone"}
	require.NoError(t, b.CreateContact(ctx, c))
	require.NoError(t, b.BulkDeleteContacts(ctx, []uuid.UUID{c.ID}))
	got, err := b.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testRemoveDuplicateContacts(t *testing.T, b store.Backend) {
	ctx := context.Background()

	a := &models.Contact{Name: "Jane", Email: "jane@example.com"}
	dup := &models.Contact{Name: "Jane D", Email: " JANE@example.com"}
	other := &models.Contact{Name: "Mark"}
	for _, c := range []*models.Contact{a, dup, other} {
		require.NoError(t, b.CreateContact(ctx, c))
	}

	result, err := b.RemoveDuplicateContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 2, result.Kept)

	kept, err := b.GetContact(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept, "earliest record survives")

	gone, err := b.GetContact(ctx, dup.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	again, err := b.RemoveDuplicateContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Removed)
}

func testRemoveDuplicateOpportunities(t *testing.T, b store.Backend) {
	ctx := context.Background()
	contactID := uuid.New()

	first := &models.Opportunity{Name: "Deal", ContactID: &contactID, Stage: "0", Status: models.StatusOpen}
	second := &models.Opportunity{Name: "deal", ContactID: &contactID, Stage: "3", Status: models.StatusOpen}
	unlinked := &models.Opportunity{Name: "Deal", Stage: "0", Status: models.StatusOpen}
	for _, o := range []*models.Opportunity{first, second, unlinked} {
		require.NoError(t, b.CreateOpportunity(ctx, o))
	}

	result, err := b.RemoveDuplicateOpportunities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 2, result.Kept)

	got, err := b.GetOpportunity(ctx, first.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	got, err = b.GetOpportunity(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testSubscriptions(t *testing.T, b store.Backend) {
	ctx := context.Background()

	var snapshots [][]models.Opportunity
	unsubscribe := b.SubscribeOpportunities(func(opps []models.Opportunity) {
		snapshots = append(snapshots, opps)
	}, "sam")

	require.NoError(t, b.CreateOpportunity(ctx, &models.Opportunity{Name: "mine", Owner: "sam", Stage: "0", Status: models.StatusOpen}))
	require.NoError(t, b.CreateOpportunity(ctx, &models.Opportunity{Name: "theirs", Owner: "ana", Stage: "0", Status: models.StatusOpen}))

	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 1, "owner filter applies to snapshots")
	assert.Equal(t, "mine", snapshots[1][0].Name)

	unsubscribe()
	require.NoError(t, b.CreateOpportunity(ctx, &models.Opportunity{Name: "later", Owner: "sam", Stage: "0", Status: models.StatusOpen}))
	assert.Len(t, snapshots, 2)

	var contacts []models.Contact
	unsubscribeContacts := b.SubscribeContacts(func(cs []models.Contact) { contacts = cs }, "")
	defer unsubscribeContacts()
	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "Zed"}))
	assert.Len(t, contacts, 1)
}

func testStages(t *testing.T, b store.Backend) {
	ctx := context.Background()

	stages, err := b.LoadStages(ctx)
	require.NoError(t, err)
	assert.Empty(t, stages)

	want := []models.Stage{{ID: "a", Title: "Lead", Color: "#fff"}, {ID: "b", Title: "Won"}}
	require.NoError(t, b.SaveStages(ctx, want))
	stages, err = b.LoadStages(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, stages)

	require.NoError(t, b.SaveStages(ctx, want[1:]))
	stages, err = b.LoadStages(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[1:], stages, "save replaces the whole list")
}

func testAppointments(t *testing.T, b store.Backend) {
	ctx := context.Background()

	appt := &models.Appointment{Title: "Demo", Date: "2026-05-01", Time: "10:00", AssignedTo: "sam"}
	require.NoError(t, b.CreateAppointment(ctx, appt))

	require.NoError(t, b.UpdateAppointment(ctx, appt.ID, models.AppointmentPatch{Time: models.String("11:30")}))
	got, err := b.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "11:30", got.Time)
	assert.Equal(t, "Demo", got.Title)

	page, err := b.ListAppointments(ctx, store.ListOptions{Owner: "ana"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	require.NoError(t, b.BulkDeleteAppointments(ctx, []uuid.UUID{appt.ID}))
	got, err = b.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = b.DeleteAppointment(ctx, appt.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testConversations(t *testing.T, b store.Backend) {
	ctx := context.Background()

	conv := &models.Conversation{ContactID: uuid.New(), ContactName: "Jane"}
	require.NoError(t, b.CreateConversation(ctx, conv))

	sent := time.Now().UTC()
	require.NoError(t, b.AppendMessage(ctx, conv.ID, models.Message{Sender: models.SenderMe, Message: "hello", Timestamp: sent}))
	require.NoError(t, b.AppendMessage(ctx, conv.ID, models.Message{Sender: models.SenderThem, Message: "hi!", Timestamp: sent.Add(time.Second)}))

	got, err := b.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Message)
	assert.Equal(t, "hi!", got.LastMessage)
	assert.True(t, got.Time.Equal(sent.Add(time.Second)))

	err = b.AppendMessage(ctx, uuid.New(), models.Message{Message: "x"})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, b.DeleteConversation(ctx, conv.ID))
	page, err := b.ListConversations(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func testOwnerFilter(t *testing.T, b store.Backend) {
	ctx := context.Background()

	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "a", Owner: "sam"}))
	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "b", Owner: "ana"}))
	require.NoError(t, b.CreateContact(ctx, &models.Contact{Name: "c", Owner: "sam"}))

	page, err := b.ListContacts(ctx, store.ListOptions{Owner: "sam"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a", page.Items[0].Name)
	assert.Equal(t, "c", page.Items[1].Name)

	found, err := b.SearchContacts(ctx, "ana", "")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
