package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractcache/internal/contract"
)

const testAddress = "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"

func newTestEntry(fn contract.Function, params []string, value string, now time.Time) *Entry {
	key := contract.DeriveKey("1", testAddress, fn, params)
	return NewEntry(key, value, testAddress, fn, params, now)
}

// roundTrip writes one entry per function and reads each back
func roundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	for _, fn := range contract.Functions() {
		var params []string
		switch fn.Describe().Params {
		case contract.TokenIDParam:
			params = []string{"5"}
		case contract.AddressParam:
			params = []string{testAddress}
		}
		entry := newTestEntry(fn, params, "value-"+fn.String(), now)

		require.NoError(t, store.Put(ctx, entry))

		got, ok, err := store.Get(ctx, entry.CacheKey)
		require.NoError(t, err)
		require.True(t, ok, fn.String())
		assert.Equal(t, entry.Value, got.Value)
		assert.Equal(t, entry.CreatedAt, got.CreatedAt)
		assert.Equal(t, entry.ExpireAt, got.ExpireAt)
		assert.Equal(t, entry.FunctionName, got.FunctionName)
		assert.Equal(t, entry.Parameters, got.Parameters)
	}

	_, ok, err := store.Get(ctx, "1:0x0000000000000000000000000000000000000000:name")
	require.NoError(t, err)
	assert.False(t, ok)
}
