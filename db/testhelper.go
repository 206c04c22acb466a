// ABOUTME: Test utilities for creating isolated SQLite stores
// ABOUTME: Each store lives in its own temp directory and closes on test cleanup

package db

import (
	"path/filepath"
	"testing"
)

// NewTestStore opens a fresh database under t.TempDir().
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return s
}
