// ABOUTME: Runs the backend contract against the Charm KV store
// ABOUTME: Uses the BadgerDB-backed test client so no charm server is needed

package charm

import (
	"context"
	"testing"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/harperreed/pipecrm/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return NewStore(NewTestClient(t))
	})
}

func TestKeysArePrefixedByKind(t *testing.T) {
	client := NewTestClient(t)
	s := NewStore(client)
	ctx := context.Background()

	require.NoError(t, s.CreateContact(ctx, &models.Contact{Name: "Jane"}))
	require.NoError(t, s.CreateOpportunity(ctx, &models.Opportunity{Name: "Deal", Stage: "0", Status: models.StatusOpen}))
	require.NoError(t, s.SaveStages(ctx, []models.Stage{{ID: "0", Title: "Lead"}}))

	contactKeys, err := client.KeysWithPrefix([]byte(contactPrefix))
	require.NoError(t, err)
	assert.Len(t, contactKeys, 1)

	oppKeys, err := client.KeysWithPrefix([]byte(opportunityPrefix))
	require.NoError(t, err)
	assert.Len(t, oppKeys, 1)

	all, err := client.Keys()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClientGetMissingKey(t *testing.T) {
	client := NewTestClient(t)

	_, err := client.Get([]byte("nope"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, client.Set([]byte("k"), []byte("v")))
	require.NoError(t, client.Reset())
	_, err = client.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestCreatedAtStrictlyIncreases(t *testing.T) {
	s := NewStore(NewTestClient(t))
	ctx := context.Background()

	var prev models.Contact
	for i := 0; i < 50; i++ {
		c := models.Contact{Name: "c"}
		require.NoError(t, s.CreateContact(ctx, &c))
		if i > 0 {
			assert.True(t, c.CreatedAt.After(prev.CreatedAt))
		}
		prev = c
	}
}
