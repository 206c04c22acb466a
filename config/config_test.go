package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Sources{})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "10", cfg.ClosedStage)
	assert.Equal(t, 10, cfg.PageSize)
	assert.True(t, cfg.CascadeSharedContacts)
	assert.Equal(t, filepath.Join("pipecrm", "pipecrm.db"), filepath.Join(filepath.Base(filepath.Dir(cfg.DBPath)), filepath.Base(cfg.DBPath)))
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"page_size": 25, "owner": "file-owner", "cascade_shared_contacts": false}`), 0600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PIPECRM_CLOSED_STAGE=won\nPIPECRM_OWNER=dotenv-owner\n"), 0600))

	t.Setenv("PIPECRM_OWNER", "env-owner")
	t.Setenv("PIPECRM_CLOSED_STAGE", "")
	os.Unsetenv("PIPECRM_CLOSED_STAGE")

	cfg, err := Load(Sources{File: file, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.PageSize, "file overrides default")
	assert.False(t, cfg.CascadeSharedContacts, "file can turn a default off")
	assert.Equal(t, "won", cfg.ClosedStage, ".env fills unset variables")
	assert.Equal(t, "env-owner", cfg.Owner, "real environment beats .env")
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PIPECRM_BACKEND", "mongo")
	_, err := Load(Sources{})
	assert.Error(t, err)
}

func TestLoadRejectsBadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{`), 0600))

	_, err := Load(Sources{File: file})
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Owner = "sam"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(Sources{File: path})
	require.NoError(t, err)
	assert.Equal(t, "sam", loaded.Owner)
}
