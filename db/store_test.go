// ABOUTME: Runs the backend contract against the SQLite store
// ABOUTME: Also checks cursor rejection and transactional duplicate removal
package db

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
		return NewTestStore(t)
	})
}

func TestListRejectsForeignCursor(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.ListOpportunities(context.Background(), store.ListOptions{Cursor: store.EncodeCursor("a", "b")})
	assert.Error(t, err)

	_, err = s.ListOpportunities(context.Background(), store.ListOptions{Cursor: store.EncodeCursor("nope")})
	assert.ErrorIs(t, err, store.ErrBadCursor)
}

func TestEmptyArraysRoundTrip(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	opp := &models.Opportunity{Name: "Bare", Stage: "0", Status: models.StatusOpen}
	require.NoError(t, s.CreateOpportunity(ctx, opp))

	var raw string
	require.NoError(t, s.DB().QueryRow(`SELECT tasks FROM opportunities WHERE id = ?`, opp.ID.String()).Scan(&raw))
	assert.Equal(t, "[]", raw)

	got, err := s.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
	assert.Empty(t, got.Tags)
}
