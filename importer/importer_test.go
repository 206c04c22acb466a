package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/harperreed/pipecrm/cache"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
	"github.com/harperreed/pipecrm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImporter(t *testing.T) (*Importer, *db.Store) {
	t.Helper()
	backend := db.NewTestStore(t)
	log := logging.Discard()
	engine := pipeline.New(backend, cache.Contacts(backend, ""), pipeline.Config{}, log)
	return New(backend, engine, "", log), backend
}

func TestNormalize(t *testing.T) {
	row := Normalize(map[string]string{" Opportunity Name ": " Deal ", "EMAIL": "a@b.c", "Blank": ""})
	assert.Equal(t, "Deal", row["opportunity name"])
	assert.Equal(t, "a@b.c", row["email"])
	assert.False(t, row.Empty())
	assert.True(t, Normalize(map[string]string{"a": " ", "b": ""}).Empty())

	assert.Equal(t, "Deal", row.First(opportunityNameAliases))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"1200", 1200, false},
		{"$1,200.50", 1200.5, false},
		{" 3 000 ", 3000, false},
		{"-5", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseValue(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseValue(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestContactNameJoinsLastName(t *testing.T) {
	row := Normalize(map[string]string{"First Name": "Jane", "Last Name": "Doe"})
	assert.Equal(t, "Jane Doe", contactName(row))

	row = Normalize(map[string]string{"Name": "Solo", "Last Name": "Ignored"})
	assert.Equal(t, "Solo", contactName(row))
}

func TestImportOpportunitiesIsolatesRowErrors(t *testing.T) {
	imp, backend := newImporter(t)
	ctx := context.Background()

	var records []map[string]string
	for i := 1; i <= 10; i++ {
		rec := map[string]string{
			"Opportunity Name": fmt.Sprintf("Deal %d", i),
			"Contact Name":     fmt.Sprintf("Person %d", i),
			"Stage":            "qualified",
			"Value":            "$1,000",
		}
		if i == 5 {
			rec["Opportunity Name"] = ""
			rec["Contact Name"] = ""
		}
		records = append(records, rec)
	}

	report, err := imp.ImportOpportunities(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 9, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 5, report.Errors[0].Row)

	opps, err := store.All(ctx, backend.ListOpportunities, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, opps, 9)
	names := make([]string, 0, len(opps))
	for _, o := range opps {
		names = append(names, o.Name)
		assert.Equal(t, "3", o.Stage)
		assert.Equal(t, 1000.0, o.Value)
		assert.NotNil(t, o.ContactID)
	}
	assert.NotContains(t, names, "Deal 5")
	assert.Contains(t, names, "Deal 10")

	contacts, err := store.All(ctx, backend.ListContacts, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, contacts, 9)
	assert.Equal(t, 9, imp.engine.Contacts().Len())
}

func TestImportOpportunitiesLinksRepeatedContact(t *testing.T) {
	imp, backend := newImporter(t)
	ctx := context.Background()

	report, err := imp.ImportOpportunities(ctx, []map[string]string{
		{"Name": "First", "Contact": "Jane", "Email": "jane@example.com"},
		{"Name": "Second", "Contact": "jane"},
		{"Name": "First", "Contact": "Jane", "Email": "jane@example.com"},
		{"Name": "", "Contact": "", "Email": ""},
		{"Name": "Unknown stage", "Stage": "nowhere", "Status": "won"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.SuccessCount)
	assert.Equal(t, 1, report.DuplicateCount)
	assert.Equal(t, 1, report.SkippedCount)
	assert.Zero(t, report.ErrorCount)

	contacts, err := store.All(ctx, backend.ListContacts, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	opps, err := store.All(ctx, backend.ListOpportunities, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, opps, 3)
	assert.Equal(t, contacts[0].ID, *opps[0].ContactID)
	assert.Equal(t, contacts[0].ID, *opps[1].ContactID)
	assert.Nil(t, opps[2].ContactID)
	assert.Equal(t, "0", opps[2].Stage)
	assert.Equal(t, models.StatusWon, opps[2].Status)
}

func TestImportOpportunitiesKeepsSameNameWithoutContact(t *testing.T) {
	imp, backend := newImporter(t)
	ctx := context.Background()

	report, err := imp.ImportOpportunities(ctx, []map[string]string{
		{"Name": "Renewal", "Value": "500", "Owner": "alice"},
		{"Name": "Renewal", "Value": "900", "Owner": "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Zero(t, report.DuplicateCount)

	opps, err := store.All(ctx, backend.ListOpportunities, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, 500.0, opps[0].Value)
	assert.Equal(t, 900.0, opps[1].Value)
}

func TestImportOpportunitiesRejectsBadValue(t *testing.T) {
	imp, _ := newImporter(t)
	report, err := imp.ImportOpportunities(context.Background(), []map[string]string{
		{"Title": "Bad", "Amount": "-10"},
		{"Title": "Tier", "Tier": "Platinum"},
	})
	require.NoError(t, err)
	assert.Zero(t, report.SuccessCount)
	assert.Equal(t, 2, report.ErrorCount)
}

func TestImportContactsIsolatesRowErrors(t *testing.T) {
	imp, backend := newImporter(t)
	ctx := context.Background()

	var records []map[string]string
	for i := 1; i <= 10; i++ {
		rec := map[string]string{"Name": fmt.Sprintf("Person %d", i), "Email": fmt.Sprintf("p%d@example.com", i)}
		if i == 5 {
			rec = map[string]string{"Name": "", "Email": "", "Phone": "555"}
		}
		records = append(records, rec)
	}

	report, err := imp.ImportContacts(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 9, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)

	contacts, err := store.All(ctx, backend.ListContacts, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, contacts, 9)
}

func TestImportContactsCreatesCompanionForNewContactsOnly(t *testing.T) {
	imp, backend := newImporter(t)
	ctx := context.Background()

	existing := models.Contact{Name: "Known", Email: "known@example.com", ValueTier: models.TierStandard}
	require.NoError(t, backend.CreateContact(ctx, &existing))

	report, err := imp.ImportContacts(ctx, []map[string]string{
		{"First Name": "Jane", "Last Name": "Doe", "Company": "Acme", "Value Tier": "high"},
		{"Email": "known@example.com", "Phone": "555-0101"},
		{"Email": "only@example.com"},
		{"Name": "jane doe"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.SuccessCount)
	assert.Equal(t, 1, report.DuplicateCount)

	opps, err := store.All(ctx, backend.ListOpportunities, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "Acme", opps[0].Name)
	assert.Equal(t, "0", opps[0].Stage)
	assert.Equal(t, "Jane Doe", opps[0].ContactName)
	assert.Equal(t, "only@example.com", opps[1].Name)

	known, err := backend.GetContact(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0101", known.Phone)
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffName,Email\nJane,jane@example.com\nBob\n"
	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Jane", records[0]["Name"])
	assert.Equal(t, "", records[1]["Email"])

	records, err = ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExportImportRoundTrip(t *testing.T) {
	imp, _ := newImporter(t)
	ctx := context.Background()

	_, err := imp.ImportOpportunities(ctx, []map[string]string{
		{"Opportunity Name": "Deal", "Value": "250", "Stage": "Proposal Sent", "Contact Name": "Jane", "Tags": "hot, q3"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := imp.ExportOpportunities(ctx, &buf, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Deal", records[0]["Opportunity Name"])
	assert.Equal(t, "250", records[0]["Value"])
	assert.Equal(t, "Proposal Sent", records[0]["Stage"])
	assert.Equal(t, "hot,q3", records[0]["Tags"])

	other, _ := newImporter(t)
	report, err := other.ImportOpportunities(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)

	var contacts bytes.Buffer
	n, err = imp.ExportContacts(ctx, &contacts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, strings.HasPrefix(contacts.String(), strings.Join(ContactHeaders, ",")))
}
