// ABOUTME: Database connection management and the SQLite backend type
// ABOUTME: Opens SQLite with WAL mode and exposes every entity kind through one Store
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	_ "github.com/mattn/go-sqlite3"
)

func OpenDatabase(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Store is the SQLite implementation of store.Backend.
type Store struct {
	db            *sql.DB
	contacts      store.Feed[models.Contact]
	opportunities store.Feed[models.Opportunity]
}

var _ store.Backend = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db), nil
}

// New wraps an already initialized connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) publishContacts(ctx context.Context) {
	if !s.contacts.Active() {
		return
	}
	items, err := store.All(ctx, s.ListContacts, store.ListOptions{})
	if err != nil {
		return
	}
	s.contacts.Publish(items, func(c models.Contact) string { return c.Owner })
}

func (s *Store) publishOpportunities(ctx context.Context) {
	if !s.opportunities.Active() {
		return
	}
	items, err := store.All(ctx, s.ListOpportunities, store.ListOptions{})
	if err != nil {
		return
	}
	s.opportunities.Publish(items, func(o models.Opportunity) string { return o.Owner })
}

func (s *Store) SubscribeContacts(fn func([]models.Contact), owner string) func() {
	return s.contacts.Subscribe(fn, owner)
}

func (s *Store) SubscribeOpportunities(fn func([]models.Opportunity), owner string) func() {
	return s.opportunities.Subscribe(fn, owner)
}
