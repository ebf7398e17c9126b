// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe Store for concurrent registration and lookup.

package session

import (
	"hash/fnv"
	"sync"
)

// Closer is anything a Store can shut down on CloseAll.
type Closer interface {
	Close() error
}

// Store maps keys to live sessions.
type Store[T Closer] struct {
	shards []*bucket[T]
	mask   uint32
}

type bucket[T Closer] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewStore constructs a store with shardCount shards, rounded up to a power of two.
func NewStore[T Closer](shardCount int) *Store[T] {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*bucket[T], m)
	for i := range shards {
		shards[i] = &bucket[T]{items: make(map[string]T)}
	}
	return &Store[T]{shards: shards, mask: m - 1}
}

func (s *Store[T]) shard(key string) *bucket[T] {
	return s.shards[fnv32(key)&s.mask]
}

// Add registers v under key. It reports false if key is already taken.
func (s *Store[T]) Add(key string, v T) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.items[key]; ok {
		return false
	}
	sh.items[key] = v
	return true
}

// Get fetches the session registered under key.
func (s *Store[T]) Get(key string) (T, bool) {
	sh := s.shard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.items[key]
	return v, ok
}

// Delete forgets key without closing its session.
func (s *Store[T]) Delete(key string) {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.items, key)
	sh.mu.Unlock()
}

// Len counts registered sessions.
func (s *Store[T]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Range applies fn to every session. fn must not call back into the store.
func (s *Store[T]) Range(fn func(key string, v T)) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, v := range sh.items {
			fn(k, v)
		}
		sh.mu.RUnlock()
	}
}

// CloseAll removes and closes every session and returns the first error.
func (s *Store[T]) CloseAll() error {
	var firstErr error
	for _, sh := range s.shards {
		sh.mu.Lock()
		items := sh.items
		sh.items = make(map[string]T)
		sh.mu.Unlock()
		for _, v := range items {
			if err := v.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// fnv32 hashes a string to uint32.
func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
