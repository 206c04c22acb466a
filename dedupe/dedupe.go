// ABOUTME: Duplicate detection for contacts and opportunities
// ABOUTME: Builds identity keys and an earliest-wins removal plan over records in creation order
package dedupe

import (
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
)

// Result reports how many records a cleanup removed and how many distinct
// identity keys survived. Records with an empty key are not counted.
type Result struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}

// Keyed pairs a record id with its identity key.
type Keyed struct {
	ID  uuid.UUID
	Key string
}

// ContactKey is the lowercase-trimmed email, or the lowercase-trimmed name
// when the email is empty.
func ContactKey(c models.Contact) string {
	if email := strings.ToLower(strings.TrimSpace(c.Email)); email != "" {
		return email
	}
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// OpportunityKey is lowercase(name) + "_" + contactID. An opportunity with a
// blank name has no key.
func OpportunityKey(o models.Opportunity) string {
	if strings.TrimSpace(o.Name) == "" {
		return ""
	}
	contactID := ""
	if o.ContactID != nil {
		contactID = o.ContactID.String()
	}
	return strings.ToLower(o.Name) + "_" + contactID
}

// Plan walks records in the order given and returns the ids of every record
// whose key was already seen. The first record per key is always the one kept.
func Plan(records []Keyed) ([]uuid.UUID, Result) {
	seen := make(map[string]bool)
	var remove []uuid.UUID

	for _, rec := range records {
		if rec.Key == "" {
			continue
		}
		if seen[rec.Key] {
			remove = append(remove, rec.ID)
			continue
		}
		seen[rec.Key] = true
	}

	return remove, Result{Removed: len(remove), Kept: len(seen)}
}

// Contacts keys contacts for Plan. The slice must be in creation order.
func Contacts(contacts []models.Contact) []Keyed {
	keyed := make([]Keyed, len(contacts))
	for i, c := range contacts {
		keyed[i] = Keyed{ID: c.ID, Key: ContactKey(c)}
	}
	return keyed
}

// Opportunities keys opportunities for Plan. The slice must be in creation order.
func Opportunities(opps []models.Opportunity) []Keyed {
	keyed := make([]Keyed, len(opps))
	for i, o := range opps {
		keyed[i] = Keyed{ID: o.ID, Key: OpportunityKey(o)}
	}
	return keyed
}
