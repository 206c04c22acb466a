// ABOUTME: Contact reconciliation for opportunity saves and imports
// ABOUTME: Links free-text contact fields to an existing contact, patching or creating as needed

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/sirupsen/logrus"
)

// ErrReconcile wraps backend failures while creating or patching a contact.
var ErrReconcile = errors.New("contact reconciliation failed")

// ContactWriter is the slice of the backend the reconciler writes through.
type ContactWriter interface {
	CreateContact(ctx context.Context, c *models.Contact) error
	UpdateContact(ctx context.Context, id uuid.UUID, patch models.ContactPatch) error
}

// Candidate is the contact data carried by an opportunity or import row.
type Candidate struct {
	Name        string
	Email       string
	Phone       string
	CompanyName string
	ValueTier   string
	Owner       string
	Type        string
	Status      string
	Notes       string

	// FallbackCompany is used as the company name of a newly created contact
	// when CompanyName is empty (usually the opportunity name).
	FallbackCompany string
}

// Result reports what reconciliation did. ContactID is nil when nothing was
// reconciled (empty candidate name).
type Result struct {
	ContactID *uuid.UUID
	Created   bool
	Patched   bool
	Contact   *models.Contact
}

type Reconciler struct {
	contacts ContactWriter
	log      logrus.FieldLogger
}

func New(contacts ContactWriter, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{contacts: contacts, log: log}
}

// Match returns the first contact in existing that is the same entity as the
// candidate: exact email equality (when the candidate has an email) or
// case-insensitive name equality.
func Match(candidate Candidate, existing []models.Contact) *models.Contact {
	name := strings.TrimSpace(candidate.Name)
	for i := range existing {
		c := &existing[i]
		if candidate.Email != "" && c.Email == candidate.Email {
			return c
		}
		if name != "" && strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c
		}
	}
	return nil
}

// Diff builds a patch of the candidate fields that differ from c. Empty
// candidate fields never clear stored values.
func Diff(candidate Candidate, c *models.Contact) models.ContactPatch {
	var patch models.ContactPatch
	if candidate.ValueTier != "" && candidate.ValueTier != c.ValueTier {
		patch.ValueTier = models.String(candidate.ValueTier)
	}
	if candidate.Phone != "" && candidate.Phone != c.Phone {
		patch.Phone = models.String(candidate.Phone)
	}
	if candidate.Email != "" && candidate.Email != c.Email {
		patch.Email = models.String(candidate.Email)
	}
	if candidate.CompanyName != "" && candidate.CompanyName != c.CompanyName {
		patch.CompanyName = models.String(candidate.CompanyName)
	}
	if candidate.Name != "" && candidate.Name != c.Name {
		patch.Name = models.String(candidate.Name)
	}
	return patch
}

// Reconcile links candidate to a contact in existing, patching it when fields
// changed, or creates a new contact. existing is searched in order and is not
// modified.
func (r *Reconciler) Reconcile(ctx context.Context, candidate Candidate, existing []models.Contact) (Result, error) {
	if strings.TrimSpace(candidate.Name) == "" {
		return Result{}, nil
	}

	if match := Match(candidate, existing); match != nil {
		id := match.ID
		result := Result{ContactID: &id, Contact: match}

		patch := Diff(candidate, match)
		if patch.IsEmpty() {
			return result, nil
		}

		if err := r.contacts.UpdateContact(ctx, id, patch); err != nil {
			return result, fmt.Errorf("%w: update contact %s: %v", ErrReconcile, id, err)
		}

		updated := *match
		patch.Apply(&updated)
		result.Contact = &updated
		result.Patched = true
		r.log.WithField("contact_id", id).Debug("patched contact from candidate")
		return result, nil
	}

	contact := &models.Contact{
		Name:        strings.TrimSpace(candidate.Name),
		Email:       candidate.Email,
		Phone:       candidate.Phone,
		ValueTier:   candidate.ValueTier,
		Owner:       candidate.Owner,
		CompanyName: candidate.CompanyName,
		Type:        candidate.Type,
		Status:      candidate.Status,
		Notes:       candidate.Notes,
	}
	if contact.CompanyName == "" {
		contact.CompanyName = candidate.FallbackCompany
	}
	if contact.ValueTier == "" {
		contact.ValueTier = models.TierStandard
	}

	if err := r.contacts.CreateContact(ctx, contact); err != nil {
		return Result{}, fmt.Errorf("%w: create contact %q: %v", ErrReconcile, contact.Name, err)
	}

	id := contact.ID
	r.log.WithField("contact_id", id).Debug("created contact from candidate")
	return Result{ContactID: &id, Created: true, Contact: contact}, nil
}
