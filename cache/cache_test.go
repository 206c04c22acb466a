package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutateRefetches(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	contacts := Contacts(backend, "")

	items, err := contacts.Ensure(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = contacts.Mutate(ctx, func(ctx context.Context) error {
		return backend.CreateContact(ctx, &models.Contact{Name: "Jane"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, contacts.Len())
}

func TestFailedMutateKeepsSnapshot(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, backend.CreateContact(ctx, &models.Contact{Name: "Jane"}))

	contacts := Contacts(backend, "")
	require.NoError(t, contacts.Refresh(ctx))

	err := contacts.Mutate(ctx, func(context.Context) error { return errors.New("offline") })
	assert.Error(t, err)
	assert.Equal(t, 1, contacts.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, backend.CreateContact(ctx, &models.Contact{Name: "Jane"}))

	contacts := Contacts(backend, "")
	require.NoError(t, contacts.Refresh(ctx))

	snap := contacts.Snapshot()
	snap[0].Name = "changed"
	assert.Equal(t, "Jane", contacts.Snapshot()[0].Name)
}

func TestFollowTracksPushes(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()

	opps := Opportunities(backend, "sam")
	stop := opps.Follow()

	require.NoError(t, backend.CreateOpportunity(ctx, &models.Opportunity{Name: "a", Owner: "sam", Stage: "0", Status: models.StatusOpen}))
	require.NoError(t, backend.CreateOpportunity(ctx, &models.Opportunity{Name: "b", Owner: "ana", Stage: "0", Status: models.StatusOpen}))
	assert.Equal(t, 1, opps.Len())

	stop()
	require.NoError(t, backend.CreateOpportunity(ctx, &models.Opportunity{Name: "c", Owner: "sam", Stage: "0", Status: models.StatusOpen}))
	assert.Equal(t, 1, opps.Len())
}
