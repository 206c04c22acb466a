// ABOUTME: Conversation database operations
// ABOUTME: Messages are an append-only JSON array; the summary columns follow the last append
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

const conversationColumns = `seq, id, contact_id, contact_name, owner, last_message, time, messages, created_at`

func scanConversation(s scanner) (models.Conversation, int64, error) {
	var c models.Conversation
	var seq int64
	var messages string
	if err := s.Scan(&seq, &c.ID, &c.ContactID, &c.ContactName, &c.Owner, &c.LastMessage, &c.Time, &messages, &c.CreatedAt); err != nil {
		return c, 0, err
	}
	if err := decodeJSON(messages, &c.Messages); err != nil {
		return c, 0, fmt.Errorf("failed to decode messages for %s: %w", c.ID, err)
	}
	return c, seq, nil
}

func (s *Store) ListConversations(ctx context.Context, opts store.ListOptions) (store.Page[models.Conversation], error) {
	filters, args := ownerFilter(opts.Owner, "owner")
	return listPage(ctx, s.db, "SELECT "+conversationColumns+" FROM conversations", filters, args, opts, scanConversation)
}

func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return getConversation(ctx, s.db, id)
}

func getConversation(ctx context.Context, q querier, id uuid.UUID) (*models.Conversation, error) {
	row := q.QueryRowContext(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id.String())
	c, _, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	conv.ID = uuid.New()
	conv.CreatedAt = time.Now().UTC()
	if conv.Time.IsZero() {
		conv.Time = conv.CreatedAt
	}
	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}

	messages, err := encodeJSON(conv.Messages)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, contact_id, contact_name, owner, last_message, time, messages, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, conv.ID.String(), conv.ContactID.String(), conv.ContactName, conv.Owner, conv.LastMessage, conv.Time, messages, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, id uuid.UUID, msg models.Message) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversation(ctx, tx, id)
		if err != nil {
			return err
		}
		if conv == nil {
			return fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
		}

		conv.Append(msg)
		messages, err := encodeJSON(conv.Messages)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE conversations SET messages = ?, last_message = ?, time = ? WHERE id = ?
		`, messages, conv.LastMessage, conv.Time, id.String())
		return err
	})
}

func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return checkAffected(res, "conversation", id)
}
