package dedupe

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/stretchr/testify/assert"
)

func TestPlanKeepsEarliest(t *testing.T) {
	a := Keyed{ID: uuid.New(), Key: "k"}
	b := Keyed{ID: uuid.New(), Key: "k"}
	c := Keyed{ID: uuid.New(), Key: "m"}

	remove, result := Plan([]Keyed{a, b, c})

	assert.Equal(t, Result{Removed: 1, Kept: 2}, result)
	assert.Equal(t, []uuid.UUID{b.ID}, remove)
}

func TestPlanIgnoresEmptyKeys(t *testing.T) {
	records := []Keyed{
		{ID: uuid.New(), Key: ""},
		{ID: uuid.New(), Key: ""},
		{ID: uuid.New(), Key: "x"},
	}

	remove, result := Plan(records)

	assert.Empty(t, remove)
	assert.Equal(t, Result{Removed: 0, Kept: 1}, result)
}

func TestPlanManyDuplicates(t *testing.T) {
	first := uuid.New()
	records := []Keyed{{ID: first, Key: "dup"}}
	for i := 0; i < 4; i++ {
		records = append(records, Keyed{ID: uuid.New(), Key: "dup"})
	}

	remove, result := Plan(records)

	assert.Len(t, remove, 4)
	assert.NotContains(t, remove, first)
	assert.Equal(t, 1, result.Kept)
}

func TestContactKey(t *testing.T) {
	tests := []struct {
		contact models.Contact
		want    string
	}{
		{models.Contact{Name: "Jane", Email: " Jane@Example.com "}, "jane@example.com"},
		{models.Contact{Name: "  Jane Doe "}, "jane doe"},
		{models.Contact{}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ContactKey(tt.contact))
	}
}

func TestOpportunityKey(t *testing.T) {
	contactID := uuid.New()

	assert.Equal(t, "big deal_"+contactID.String(), OpportunityKey(models.Opportunity{Name: "Big Deal", ContactID: &contactID}))
	assert.Equal(t, "big deal_", OpportunityKey(models.Opportunity{Name: "Big Deal"}))
	assert.Equal(t, "", OpportunityKey(models.Opportunity{Name: "  "}))
}
