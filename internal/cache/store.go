package cache

import "context"

//go:generate mockgen -source=store.go -destination=mock_store.go -package=cache

// Store is a key-value store with expiry on Entry.ExpireAt.
// Get reports a never-written and an expired key the same way: (nil, false, nil).
// A non-nil error always means the backend failed and is a *StoreError.
type Store interface {
	// Get retrieves the entry stored under key
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Put stores entry under entry.CacheKey, replacing any previous value
	Put(ctx context.Context, entry *Entry) error

	// Close releases any resources held by the store
	Close() error
}
