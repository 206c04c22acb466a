// ABOUTME: Opportunity database operations
// ABOUTME: CRUD, per-stage pagination, stage aggregates and duplicate removal
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/dedupe"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

const opportunityColumns = `seq, id, name, value, stage, status, owner, tags, contact_id, contact_name, contact_email,
	contact_phone, company_name, source, pipeline_id, tasks, notes, created_at, updated_at`

func scanOpportunity(s scanner) (models.Opportunity, int64, error) {
	var o models.Opportunity
	var seq int64
	var contactID sql.NullString
	var tags, tasks, notes string

	err := s.Scan(&seq, &o.ID, &o.Name, &o.Value, &o.Stage, &o.Status, &o.Owner, &tags, &contactID,
		&o.ContactName, &o.ContactEmail, &o.ContactPhone, &o.CompanyName, &o.Source, &o.PipelineID,
		&tasks, &notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, 0, err
	}

	o.ContactID = parseNullableID(contactID)
	if err := decodeJSON(tags, &o.Tags); err != nil {
		return o, 0, fmt.Errorf("failed to decode tags for %s: %w", o.ID, err)
	}
	if err := decodeJSON(tasks, &o.Tasks); err != nil {
		return o, 0, fmt.Errorf("failed to decode tasks for %s: %w", o.ID, err)
	}
	if err := decodeJSON(notes, &o.Notes); err != nil {
		return o, 0, fmt.Errorf("failed to decode notes for %s: %w", o.ID, err)
	}
	return o, seq, nil
}

// embedded holds the JSON forms of an opportunity's array columns.
type embedded struct {
	tags, tasks, notes string
}

func encodeEmbedded(o *models.Opportunity) (embedded, error) {
	var e embedded
	var err error
	tags := o.Tags
	if tags == nil {
		tags = []string{}
	}
	if e.tags, err = encodeJSON(tags); err != nil {
		return e, err
	}
	taskList := o.Tasks
	if taskList == nil {
		taskList = []models.Task{}
	}
	if e.tasks, err = encodeJSON(taskList); err != nil {
		return e, err
	}
	noteList := o.Notes
	if noteList == nil {
		noteList = []models.Note{}
	}
	if e.notes, err = encodeJSON(noteList); err != nil {
		return e, err
	}
	return e, nil
}

func (s *Store) ListOpportunities(ctx context.Context, opts store.ListOptions) (store.Page[models.Opportunity], error) {
	filters, args := ownerFilter(opts.Owner, "owner")
	return listPage(ctx, s.db, "SELECT "+opportunityColumns+" FROM opportunities", filters, args, opts, scanOpportunity)
}

func (s *Store) ListOpportunitiesByStage(ctx context.Context, stageID string, opts store.ListOptions) (store.Page[models.Opportunity], error) {
	filters, args := ownerFilter(opts.Owner, "owner")
	filters = append([]string{"stage = ?"}, filters...)
	args = append([]interface{}{stageID}, args...)
	return listPage(ctx, s.db, "SELECT "+opportunityColumns+" FROM opportunities", filters, args, opts, scanOpportunity)
}

func (s *Store) GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	return getOpportunity(ctx, s.db, id)
}

func getOpportunity(ctx context.Context, q querier, id uuid.UUID) (*models.Opportunity, error) {
	row := q.QueryRowContext(ctx, "SELECT "+opportunityColumns+" FROM opportunities WHERE id = ?", id.String())
	o, _, err := scanOpportunity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateOpportunity(ctx context.Context, opp *models.Opportunity) error {
	opp.ID = uuid.New()
	now := time.Now().UTC()
	opp.CreatedAt = now
	opp.UpdatedAt = now

	e, err := encodeEmbedded(opp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO opportunities (id, name, value, stage, status, owner, tags, contact_id, contact_name, contact_email,
			contact_phone, company_name, source, pipeline_id, tasks, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, opp.ID.String(), opp.Name, opp.Value, opp.Stage, opp.Status, opp.Owner, e.tags, nullableID(opp.ContactID),
		opp.ContactName, opp.ContactEmail, opp.ContactPhone, opp.CompanyName, opp.Source, opp.PipelineID,
		e.tasks, e.notes, opp.CreatedAt, opp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}

	s.publishOpportunities(ctx)
	return nil
}

// UpdateOpportunity applies patch and bumps updated_at. Fields the patch leaves
// nil keep their stored value, so concurrent patches touching different fields
// both survive.
func (s *Store) UpdateOpportunity(ctx context.Context, id uuid.UUID, patch models.OpportunityPatch) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		opp, err := getOpportunity(ctx, tx, id)
		if err != nil {
			return err
		}
		if opp == nil {
			return fmt.Errorf("opportunity %s: %w", id, store.ErrNotFound)
		}

		patch.Apply(opp)
		opp.UpdatedAt = time.Now().UTC()

		e, err := encodeEmbedded(opp)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE opportunities
			SET name = ?, value = ?, stage = ?, status = ?, owner = ?, tags = ?, contact_id = ?, contact_name = ?,
				contact_email = ?, contact_phone = ?, company_name = ?, source = ?, pipeline_id = ?, tasks = ?,
				notes = ?, updated_at = ?
			WHERE id = ?
		`, opp.Name, opp.Value, opp.Stage, opp.Status, opp.Owner, e.tags, nullableID(opp.ContactID), opp.ContactName,
			opp.ContactEmail, opp.ContactPhone, opp.CompanyName, opp.Source, opp.PipelineID, e.tasks,
			e.notes, opp.UpdatedAt, id.String())
		return err
	})
	if err != nil {
		return err
	}

	s.publishOpportunities(ctx)
	return nil
}

func (s *Store) DeleteOpportunity(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM opportunities WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}
	if err := checkAffected(res, "opportunity", id); err != nil {
		return err
	}

	s.publishOpportunities(ctx)
	return nil
}

func (s *Store) BulkDeleteOpportunities(ctx context.Context, ids []uuid.UUID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteIDs(ctx, tx, "opportunities", ids)
	})
	if err != nil {
		return fmt.Errorf("failed to bulk delete opportunities: %w", err)
	}

	s.publishOpportunities(ctx)
	return nil
}

// StageAggregates counts and sums opportunities per stage in a single query,
// so every row lands in exactly one bucket.
func (s *Store) StageAggregates(ctx context.Context) (map[string]store.StageTotals, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, COUNT(*), COALESCE(SUM(value), 0)
		FROM opportunities
		GROUP BY stage
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]store.StageTotals)
	for rows.Next() {
		var stage string
		var t store.StageTotals
		if err := rows.Scan(&stage, &t.Count, &t.Value); err != nil {
			return nil, err
		}
		totals[stage] = t
	}
	return totals, rows.Err()
}

func (s *Store) RemoveDuplicateOpportunities(ctx context.Context) (dedupe.Result, error) {
	var result dedupe.Result
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		page, err := listPage(ctx, tx, "SELECT "+opportunityColumns+" FROM opportunities", nil, nil, store.ListOptions{}, scanOpportunity)
		if err != nil {
			return err
		}
		var remove []uuid.UUID
		remove, result = dedupe.Plan(dedupe.Opportunities(page.Items))
		return deleteIDs(ctx, tx, "opportunities", remove)
	})
	if err != nil {
		return dedupe.Result{}, fmt.Errorf("failed to remove duplicate opportunities: %w", err)
	}

	if result.Removed > 0 {
		s.publishOpportunities(ctx)
	}
	return result, nil
}
