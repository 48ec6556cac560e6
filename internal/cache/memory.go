package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCleanupInterval is how often expired entries are swept from the memory store
const DefaultCleanupInterval = 30 * time.Second

// MemoryStore is an in-process LRU store that expires entries on their ExpireAt
type MemoryStore struct {
	cache *lru.Cache[string, Entry]
	mu    sync.RWMutex
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a new memory store holding at most size entries
func NewMemoryStore(size int, cleanupInterval time.Duration) (*MemoryStore, error) {
	cache, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}

	ms := &MemoryStore{
		cache: cache,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go ms.cleanupLoop(cleanupInterval)
	}

	return ms, nil
}

// Get retrieves an unexpired entry
func (ms *MemoryStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, storeError(OpGet, key, err)
	}

	ms.mu.RLock()
	entry, ok := ms.cache.Get(key)
	ms.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if entry.Expired(ms.now()) {
		ms.mu.Lock()
		ms.cache.Remove(key)
		ms.mu.Unlock()
		return nil, false, nil
	}

	return &entry, true, nil
}

// Put stores a copy of entry
func (ms *MemoryStore) Put(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return storeError(OpPut, entry.CacheKey, err)
	}

	ms.mu.Lock()
	ms.cache.Add(entry.CacheKey, *entry)
	ms.mu.Unlock()
	return nil
}

// Len returns the number of entries held, expired ones included until swept
func (ms *MemoryStore) Len() int {
	return ms.cache.Len()
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() error {
	ms.stopOnce.Do(func() { close(ms.stop) })
	return nil
}

// cleanupLoop periodically removes expired entries
func (ms *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.stop:
			return
		case <-ticker.C:
			ms.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the cache
func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for _, key := range ms.cache.Keys() {
		entry, ok := ms.cache.Peek(key)
		if ok && entry.Expired(now) {
			ms.cache.Remove(key)
		}
	}
}

// NoopStore is a store that holds nothing (used when caching is disabled)
type NoopStore struct{}

// NewNoopStore creates a new no-op store
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

// Get always returns not found
func (ns *NoopStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	return nil, false, nil
}

// Put does nothing
func (ns *NoopStore) Put(ctx context.Context, entry *Entry) error { return nil }

// Close does nothing
func (ns *NoopStore) Close() error { return nil }
