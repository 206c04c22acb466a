// ABOUTME: Push-style subscription helper used by backends
// ABOUTME: Delivers full owner-filtered snapshots to listeners after every change

package store

import "sync"

// Feed fans a full list snapshot out to subscribers. Each subscriber may ask
// for only the items belonging to one owner.
type Feed[T any] struct {
	mu      sync.Mutex
	nextID  int
	listens map[int]listener[T]
}

type listener[T any] struct {
	fn    func([]T)
	owner string
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (f *Feed[T]) Subscribe(fn func([]T), owner string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listens == nil {
		f.listens = make(map[int]listener[T])
	}
	id := f.nextID
	f.nextID++
	f.listens[id] = listener[T]{fn: fn, owner: owner}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listens, id)
	}
}

// Active reports whether anyone is listening, so backends can skip the re-read.
func (f *Feed[T]) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listens) > 0
}

// Publish delivers items to every listener, filtered by ownerOf when the
// listener asked for an owner. Listeners run on the caller's goroutine.
func (f *Feed[T]) Publish(items []T, ownerOf func(T) string) {
	f.mu.Lock()
	targets := make([]listener[T], 0, len(f.listens))
	for _, l := range f.listens {
		targets = append(targets, l)
	}
	f.mu.Unlock()

	for _, l := range targets {
		if l.owner == "" {
			l.fn(items)
			continue
		}
		filtered := make([]T, 0, len(items))
		for _, item := range items {
			if ownerOf(item) == l.owner {
				filtered = append(filtered, item)
			}
		}
		l.fn(filtered)
	}
}
