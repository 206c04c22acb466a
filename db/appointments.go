// ABOUTME: Appointment database operations
// ABOUTME: Independent entity CRUD with owner filtering on the assignee column
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

const appointmentColumns = `seq, id, title, date, time, assigned_to, notes, contact_id, created_at`

func scanAppointment(s scanner) (models.Appointment, int64, error) {
	var a models.Appointment
	var seq int64
	var contactID sql.NullString
	err := s.Scan(&seq, &a.ID, &a.Title, &a.Date, &a.Time, &a.AssignedTo, &a.Notes, &contactID, &a.CreatedAt)
	a.ContactID = parseNullableID(contactID)
	return a, seq, err
}

// ListAppointments filters on assigned_to when an owner is given.
func (s *Store) ListAppointments(ctx context.Context, opts store.ListOptions) (store.Page[models.Appointment], error) {
	filters, args := ownerFilter(opts.Owner, "assigned_to")
	return listPage(ctx, s.db, "SELECT "+appointmentColumns+" FROM appointments", filters, args, opts, scanAppointment)
}

func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return getAppointment(ctx, s.db, id)
}

func getAppointment(ctx context.Context, q querier, id uuid.UUID) (*models.Appointment, error) {
	row := q.QueryRowContext(ctx, "SELECT "+appointmentColumns+" FROM appointments WHERE id = ?", id.String())
	a, _, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, title, date, time, assigned_to, notes, contact_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, appt.ID.String(), appt.Title, appt.Date, appt.Time, appt.AssignedTo, appt.Notes, nullableID(appt.ContactID), appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (s *Store) UpdateAppointment(ctx context.Context, id uuid.UUID, patch models.AppointmentPatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		appt, err := getAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if appt == nil {
			return fmt.Errorf("appointment %s: %w", id, store.ErrNotFound)
		}

		patch.Apply(appt)

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments
			SET title = ?, date = ?, time = ?, assigned_to = ?, notes = ?, contact_id = ?
			WHERE id = ?
		`, appt.Title, appt.Date, appt.Time, appt.AssignedTo, appt.Notes, nullableID(appt.ContactID), id.String())
		return err
	})
}

func (s *Store) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return checkAffected(res, "appointment", id)
}

func (s *Store) BulkDeleteAppointments(ctx context.Context, ids []uuid.UUID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteIDs(ctx, tx, "appointments", ids)
	})
	if err != nil {
		return fmt.Errorf("failed to bulk delete appointments: %w", err)
	}
	return nil
}
