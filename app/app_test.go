package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harperreed/pipecrm/config"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "crm.db")
	cfg.Owner = "sam"

	a, err := Open(cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	res, err := a.Pipeline.Create(ctx, models.Opportunity{Name: "Deal", Owner: "sam", ContactName: "Jane"})
	require.NoError(t, err)
	assert.NotNil(t, res.Opportunity.ContactID)

	// the followed caches see backend pushes without a refresh
	assert.Equal(t, 1, a.Opportunities.Len())
	assert.Equal(t, 1, a.Pipeline.Contacts().Len())
	assert.Nil(t, a.Charm)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "mongo"
	_, err := Open(cfg, logging.Discard())
	assert.Error(t, err)
}
