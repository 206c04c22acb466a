// ABOUTME: Contact database operations
// ABOUTME: Handles CRUD, search, batch delete and duplicate removal for contacts
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/dedupe"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

const contactColumns = `seq, id, name, email, phone, value_tier, owner, company_name, type, status, notes, created_at, updated_at`

func scanContact(s scanner) (models.Contact, int64, error) {
	var c models.Contact
	var seq int64
	err := s.Scan(&seq, &c.ID, &c.Name, &c.Email, &c.Phone, &c.ValueTier, &c.Owner, &c.CompanyName,
		&c.Type, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, seq, err
}

func (s *Store) ListContacts(ctx context.Context, opts store.ListOptions) (store.Page[models.Contact], error) {
	filters, args := ownerFilter(opts.Owner, "owner")
	return listPage(ctx, s.db, "SELECT "+contactColumns+" FROM contacts", filters, args, opts, scanContact)
}

// SearchContacts matches term as a case-insensitive substring of name, email,
// phone or company name.
func (s *Store) SearchContacts(ctx context.Context, owner, term string) ([]models.Contact, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	filters := []string{`(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(company_name) LIKE ?)`}
	args := []interface{}{pattern, pattern, pattern, pattern}
	if owner != "" {
		filters = append(filters, "owner = ?")
		args = append(args, owner)
	}

	page, err := listPage(ctx, s.db, "SELECT "+contactColumns+" FROM contacts", filters, args, store.ListOptions{}, scanContact)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	return getContact(ctx, s.db, id)
}

func getContact(ctx context.Context, q querier, id uuid.UUID) (*models.Contact, error) {
	row := q.QueryRowContext(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = ?", id.String())
	c, _, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateContact(ctx context.Context, contact *models.Contact) error {
	contact.ID = uuid.New()
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, email, phone, value_tier, owner, company_name, type, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, contact.ID.String(), contact.Name, contact.Email, contact.Phone, contact.ValueTier, contact.Owner,
		contact.CompanyName, contact.Type, contact.Status, contact.Notes, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	s.publishContacts(ctx)
	return nil
}

func (s *Store) UpdateContact(ctx context.Context, id uuid.UUID, patch models.ContactPatch) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		contact, err := getContact(ctx, tx, id)
		if err != nil {
			return err
		}
		if contact == nil {
			return fmt.Errorf("contact %s: %w", id, store.ErrNotFound)
		}

		patch.Apply(contact)
		contact.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE contacts
			SET name = ?, email = ?, phone = ?, value_tier = ?, owner = ?, company_name = ?, type = ?, status = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`, contact.Name, contact.Email, contact.Phone, contact.ValueTier, contact.Owner, contact.CompanyName,
			contact.Type, contact.Status, contact.Notes, contact.UpdatedAt, id.String())
		return err
	})
	if err != nil {
		return err
	}

	s.publishContacts(ctx)
	return nil
}

func (s *Store) DeleteContact(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if err := checkAffected(res, "contact", id); err != nil {
		return err
	}

	s.publishContacts(ctx)
	return nil
}

// BulkDeleteContacts removes every listed contact in one transaction. Ids that
// do not exist are ignored.
func (s *Store) BulkDeleteContacts(ctx context.Context, ids []uuid.UUID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteIDs(ctx, tx, "contacts", ids)
	})
	if err != nil {
		return fmt.Errorf("failed to bulk delete contacts: %w", err)
	}

	s.publishContacts(ctx)
	return nil
}

func (s *Store) RemoveDuplicateContacts(ctx context.Context) (dedupe.Result, error) {
	var result dedupe.Result
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		page, err := listPage(ctx, tx, "SELECT "+contactColumns+" FROM contacts", nil, nil, store.ListOptions{}, scanContact)
		if err != nil {
			return err
		}
		var remove []uuid.UUID
		remove, result = dedupe.Plan(dedupe.Contacts(page.Items))
		return deleteIDs(ctx, tx, "contacts", remove)
	})
	if err != nil {
		return dedupe.Result{}, fmt.Errorf("failed to remove duplicate contacts: %w", err)
	}

	if result.Removed > 0 {
		s.publishContacts(ctx)
	}
	return result, nil
}

func deleteIDs(ctx context.Context, tx *sql.Tx, table string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM "+table+" WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range uuidStrings(ids) {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
