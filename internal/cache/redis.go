package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as JSON strings; Redis expires them at ExpireAt
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store on top of an existing client
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects to the Redis server at url and checks it answers
func DialRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "invalid redis url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.WithMessage(err, "failed to ping redis")
	}

	return NewRedisStore(client, prefix), nil
}

// Get retrieves an entry by key
func (rs *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := rs.client.Get(ctx, rs.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError(OpGet, key, pkgerrors.WithMessage(err, "redis get"))
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, storeError(OpGet, key, pkgerrors.WithMessage(err, "corrupt redis entry"))
	}

	return &entry, true, nil
}

// Put stores entry with an absolute expiry
func (rs *RedisStore) Put(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return storeError(OpPut, entry.CacheKey, pkgerrors.WithMessage(err, "failed to encode entry"))
	}

	args := redis.SetArgs{ExpireAt: time.Unix(entry.ExpireAt, 0)}
	if err := rs.client.SetArgs(ctx, rs.prefix+entry.CacheKey, data, args).Err(); err != nil {
		return storeError(OpPut, entry.CacheKey, pkgerrors.WithMessage(err, "redis set"))
	}

	return nil
}

// Close closes the client
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
