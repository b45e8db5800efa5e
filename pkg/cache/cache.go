// Package cache provides a keyed in-memory TTL store with request
// coalescing: concurrent callers that miss on the same key share a single
// refresh instead of stampeding the upstream. Writes are full replacements,
// so a read observes either the previous complete value or the next one.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	val       V
	fetchedAt time.Time
}

// Store is a TTL cache for values of type V.
type Store[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	group   singleflight.Group
	now     func() time.Time // for testing
}

// fillTimeout bounds a detached fill so an abandoned refresh cannot
// hold the singleflight slot forever.
const fillTimeout = time.Minute

// New creates a Store whose entries expire after ttl.
func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.fetchedAt) >= s.ttl {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Put stores val under key, replacing any previous entry.
func (s *Store[V]) Put(key string, val V) {
	s.mu.Lock()
	s.entries[key] = entry[V]{val: val, fetchedAt: s.now()}
	s.mu.Unlock()
}

// Invalidate drops the entry for key so the next read refreshes.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrFill returns the cached value for key, or runs fill to compute and
// store a fresh one. Concurrent callers for the same key are coalesced;
// only one fill runs and all callers receive its outcome. A failed fill
// leaves any previous (stale) entry untouched.
//
// The fill runs detached from the caller's cancellation, under its own
// timeout: the result is shared by every coalesced waiter, so the first
// caller hanging up must not poison it for the rest.
func (s *Store[V]) GetOrFill(ctx context.Context, key string, fill func(context.Context) (V, error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	res, err, _ := s.group.Do(key, func() (any, error) {
		// Another coalesced caller may have already refreshed.
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()
		v, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}
		s.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
