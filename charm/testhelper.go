// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Backs the client with a BadgerDB in a temp directory so no server is needed

package charm

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// badgerKV gives a bare BadgerDB the same surface as charm/kv.KV.
type badgerKV struct {
	db *badger.DB
	mu sync.RWMutex
}

func (b *badgerKV) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (b *badgerKV) Set(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerKV) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerKV) Keys() ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (b *badgerKV) Sync() error {
	return nil
}

func (b *badgerKV) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.DropAll()
}

// NewTestClient creates a charm client over a BadgerDB in t.TempDir().
// The database is closed when the test finishes.
func NewTestClient(t testing.TB) *Client {
	t.Helper()

	opts := badger.DefaultOptions(filepath.Join(t.TempDir(), AppName)).
		WithLogger(nil) // Suppress badger logs in tests

	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return &Client{
		kv:     &badgerKV{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
	}
}
