package cache

import (
	"fmt"
	"time"

	"contractcache/internal/contract"
)

// Entry is one memoized function result.
// Lookup is by CacheKey alone; the remaining fields record provenance.
type Entry struct {
	CacheKey        string `json:"cacheKey"`
	Value           string `json:"value"`
	CreatedAt       int64  `json:"createdAt"` // epoch milliseconds
	ExpireAt        int64  `json:"expireAt"`  // epoch seconds
	ContractAddress string `json:"contractAddress"`
	FunctionName    string `json:"functionName"`
	Parameters      string `json:"parameters,omitempty"`
}

// NewEntry creates an entry written at now. The expiry always comes from the
// function's TTL.
func NewEntry(key, value, address string, fn contract.Function, params []string, now time.Time) *Entry {
	return &Entry{
		CacheKey:        key,
		Value:           value,
		CreatedAt:       now.UnixMilli(),
		ExpireAt:        now.Add(fn.TTL()).Unix(),
		ContractAddress: address,
		FunctionName:    fn.String(),
		Parameters:      contract.JoinParams(params),
	}
}

// CachedAt returns the instant the entry was written
func (e *Entry) CachedAt() time.Time {
	return time.UnixMilli(e.CreatedAt).UTC()
}

// ExpiresAt returns the absolute expiry instant
func (e *Entry) ExpiresAt() time.Time {
	return time.Unix(e.ExpireAt, 0).UTC()
}

// Expired reports whether the entry is at or past its expiry at now
func (e *Entry) Expired(now time.Time) bool {
	return now.Unix() >= e.ExpireAt
}

// Store operations, recorded on StoreError
const (
	OpGet = "get"
	OpPut = "put"
)

// StoreError means the backend could not serve a request. It is never used for a miss.
type StoreError struct {
	Op    string
	Key   string
	Cause error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("cache store %s %q: %v", e.Op, e.Key, e.Cause)
}

// Unwrap returns the underlying cause
func (e *StoreError) Unwrap() error {
	return e.Cause
}

func storeError(op, key string, cause error) error {
	return &StoreError{Op: op, Key: key, Cause: cause}
}
