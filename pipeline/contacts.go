// ABOUTME: Manual contact entry and maintenance through the shared contact cache
// ABOUTME: Validates before any backend call and refreshes the working set after writes

package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

// AddContact creates a contact entered by hand. A name or an email is required.
func (s *Service) AddContact(ctx context.Context, c models.Contact) (*models.Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.ValueTier == "" {
		c.ValueTier = models.TierStandard
	}
	if err := models.Validate(&c); err != nil {
		return nil, err
	}

	err := s.contacts.Mutate(ctx, func(ctx context.Context) error {
		return s.backend.CreateContact(ctx, &c)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("contact_id", c.ID).Info("created contact")
	return &c, nil
}

// UpdateContact applies a partial update after validating the merged record.
func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, patch models.ContactPatch) (*models.Contact, error) {
	current, err := s.backend.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, store.ErrNotFound
	}

	merged := *current
	patch.Apply(&merged)
	if err := models.Validate(&merged); err != nil {
		return nil, err
	}

	err = s.contacts.Mutate(ctx, func(ctx context.Context) error {
		return s.backend.UpdateContact(ctx, id, patch)
	})
	if err != nil {
		return nil, err
	}
	return s.backend.GetContact(ctx, id)
}

// DeleteContact removes a contact. Opportunities keep their denormalized copy.
func (s *Service) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.contacts.Mutate(ctx, func(ctx context.Context) error {
		return s.backend.DeleteContact(ctx, id)
	})
}

func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	return s.backend.GetContact(ctx, id)
}

// SearchContacts matches term against name, email, phone and company.
func (s *Service) SearchContacts(ctx context.Context, owner, term string) ([]models.Contact, error) {
	return s.backend.SearchContacts(ctx, owner, strings.TrimSpace(term))
}
