package google

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/pipecrm/cache"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/importer"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/people/v1"
)

func TestPersonRowPrefersPrimary(t *testing.T) {
	person := &people.Person{
		ResourceName: "people/c1",
		Names:        []*people.Name{{DisplayName: "Jane Doe"}},
		EmailAddresses: []*people.EmailAddress{
			{Value: "old@example.com"},
			{Value: "jane@example.com", Metadata: &people.FieldMetadata{Primary: true}},
		},
		PhoneNumbers:  []*people.PhoneNumber{{Value: "555-0100"}},
		Organizations: []*people.Organization{{Name: "Acme", Title: "CTO"}},
		Biographies:   []*people.Biography{{Value: " met at expo "}},
	}

	row := PersonRow(person)
	assert.Equal(t, "Jane Doe", row["name"])
	assert.Equal(t, "jane@example.com", row["email"])
	assert.Equal(t, "555-0100", row["phone"])
	assert.Equal(t, "Acme", row["company name"])
	assert.Equal(t, "met at expo", row["notes"])
}

func TestRowsDropsAnonymous(t *testing.T) {
	rows := Rows([]*people.Person{
		{ResourceName: "people/c1"},
		{PhoneNumbers: []*people.PhoneNumber{{Value: "555"}}},
		{EmailAddresses: []*people.EmailAddress{{Value: "x@example.com"}}},
		nil,
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "x@example.com", rows[0]["email"])
}

func TestImportPeople(t *testing.T) {
	backend := db.NewTestStore(t)
	engine := pipeline.New(backend, cache.Contacts(backend, ""), pipeline.Config{}, logging.Discard())
	imp := importer.New(backend, engine, "", logging.Discard())

	persons := []*people.Person{
		{
			Names:          []*people.Name{{DisplayName: "Jane Doe"}},
			EmailAddresses: []*people.EmailAddress{{Value: "jane@example.com"}},
		},
		{
			Names:          []*people.Name{{DisplayName: "Jane Doe"}},
			EmailAddresses: []*people.EmailAddress{{Value: "jane@example.com"}},
		},
		{EmailAddresses: []*people.EmailAddress{{Value: "bob@example.com"}}},
	}

	report, err := ImportPeople(context.Background(), imp, persons)
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 1, report.DuplicateCount)
	assert.Equal(t, 2, engine.Contacts().Len())
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestConfigRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	_, err := Config()
	assert.Error(t, err)

	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	cfg, err := Config()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/oauth/callback", cfg.RedirectURL)
}
