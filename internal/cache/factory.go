package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"contractcache/internal/config"
)

// New creates the store selected by cfg.Backend. Every call on the returned
// store is bounded by cfg.Timeout.
func New(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (Store, error) {
	log := logger.With().Str("component", "cache").Str("backend", cfg.Backend).Logger()

	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case config.BackendMemory:
		store, err = NewMemoryStore(cfg.Size, DefaultCleanupInterval)
	case config.BackendRedis:
		store, err = DialRedis(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	case config.BackendMongo:
		store, err = DialMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.TableName)
	case config.BackendBolt:
		store, err = OpenBolt(cfg.BoltPath, cfg.TableName, DefaultCleanupInterval, logger)
	case config.BackendNone:
		log.Info().Msg("caching disabled")
		return NewNoopStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend '%s'", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache store: %w", cfg.Backend, err)
	}

	log.Info().Dur("timeout", cfg.GetTimeoutDuration()).Msg("cache store ready")

	return WithTimeout(store, cfg.GetTimeoutDuration()), nil
}

// timeoutStore bounds every call on the wrapped store
type timeoutStore struct {
	Store
	timeout time.Duration
}

// WithTimeout wraps store so each Get and Put gets its own deadline.
// A non-positive timeout returns store unchanged.
func WithTimeout(store Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return store
	}
	return &timeoutStore{Store: store, timeout: timeout}
}

func (ts *timeoutStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ts.timeout)
	defer cancel()
	return ts.Store.Get(ctx, key)
}

func (ts *timeoutStore) Put(ctx context.Context, entry *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, ts.timeout)
	defer cancel()
	return ts.Store.Put(ctx, entry)
}
