// ABOUTME: Process-wide snapshot caches of backend entity lists
// ABOUTME: Readers get copies; writes go through Mutate and are followed by a re-fetch

package cache

import (
	"context"
	"sync"

	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
)

// ListFunc is a paginated backend listing.
type ListFunc[T any] func(ctx context.Context, opts store.ListOptions) (store.Page[T], error)

// SubscribeFunc registers for full-list snapshots; nil when the kind has no feed.
type SubscribeFunc[T any] func(fn func([]T), owner string) func()

// Cache holds the latest known list for one entity kind and owner filter.
type Cache[T any] struct {
	list      ListFunc[T]
	subscribe SubscribeFunc[T]
	owner     string

	mu     sync.RWMutex
	items  []T
	loaded bool
}

func New[T any](list ListFunc[T], subscribe SubscribeFunc[T], owner string) *Cache[T] {
	return &Cache[T]{list: list, subscribe: subscribe, owner: owner}
}

// Contacts caches the contact list.
func Contacts(b store.ContactStore, owner string) *Cache[models.Contact] {
	return New[models.Contact](b.ListContacts, b.SubscribeContacts, owner)
}

// Opportunities caches the opportunity list.
func Opportunities(b store.OpportunityStore, owner string) *Cache[models.Opportunity] {
	return New[models.Opportunity](b.ListOpportunities, b.SubscribeOpportunities, owner)
}

// Refresh replaces the snapshot with a full re-fetch. On error the previous
// snapshot is kept.
func (c *Cache[T]) Refresh(ctx context.Context) error {
	items, err := store.All[T](ctx, c.list, store.ListOptions{Owner: c.owner})
	if err != nil {
		return err
	}
	c.set(items)
	return nil
}

func (c *Cache[T]) set(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.loaded = true
}

// Snapshot returns a copy of the current list.
func (c *Cache[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Ensure loads the snapshot on first use.
func (c *Cache[T]) Ensure(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()

	if !loaded {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return c.Snapshot(), nil
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Mutate runs a backend write and re-fetches on success. A failed write
// leaves the snapshot untouched.
func (c *Cache[T]) Mutate(ctx context.Context, write func(ctx context.Context) error) error {
	if err := write(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Follow keeps the snapshot in step with backend pushes until stop is called.
func (c *Cache[T]) Follow() (stop func()) {
	if c.subscribe == nil {
		return func() {}
	}
	return c.subscribe(c.set, c.owner)
}
