// ABOUTME: Keyset pagination over the insertion sequence
// ABOUTME: Shared by every list query; cursors carry the last returned seq

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/store"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner[T any] func(s scanner) (T, int64, error)

// listPage runs "SELECT <columns> FROM <table>" with the given filters plus the
// cursor condition, ordered by seq. It fetches one extra row to learn HasMore.
func listPage[T any](ctx context.Context, q querier, selectFrom string, filters []string, args []interface{}, opts store.ListOptions, scan rowScanner[T]) (store.Page[T], error) {
	var page store.Page[T]

	if opts.Cursor != "" {
		parts, err := store.DecodeCursor(opts.Cursor, 1)
		if err != nil {
			return page, err
		}
		after, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return page, fmt.Errorf("%w: %v", store.ErrBadCursor, err)
		}
		filters = append(filters, "seq > ?")
		args = append(args, after)
	}

	query := selectFrom
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY seq"
	if opts.PageSize > 0 {
		query += " LIMIT ?"
		args = append(args, opts.PageSize+1)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	var lastSeq int64
	for rows.Next() {
		if opts.PageSize > 0 && len(page.Items) == opts.PageSize {
			page.HasMore = true
			break
		}
		item, seq, err := scan(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, item)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return page, err
	}

	if page.HasMore {
		page.NextCursor = store.EncodeCursor(strconv.FormatInt(lastSeq, 10))
	}
	return page, nil
}

func ownerFilter(owner string, column string) ([]string, []interface{}) {
	if owner == "" {
		return nil, nil
	}
	return []string{column + " = ?"}, []interface{}{owner}
}

func nullableID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullableID(ns sql.NullString) *uuid.UUID {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil
	}
	return &id
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(raw string, v interface{}) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func checkAffected(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}
