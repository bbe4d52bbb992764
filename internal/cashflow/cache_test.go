package cashflow

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return []LedgerEntry{{RunningBalance: 42}}, nil
	}

	key, err := cache.BuildKey(ctx, "cashflow", "ledger", "MONTH_ONLY", "2024-01-01_2024-01-31")
	require.NoError(t, err)

	var first, second []LedgerEntry
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.InDelta(t, 42, second[0].RunningBalance, 0)
}

func TestCacheBumpChangesKey(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "cashflow", "ledger")
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	after, err := cache.BuildKey(ctx, "cashflow", "ledger")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "cashflow", "ledger", "exp")
	require.NoError(t, err)

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return []LedgerEntry{}, nil
	}
	var out []LedgerEntry
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 2, calls)
}

func TestNilCacheDelegatesToLoader(t *testing.T) {
	var cache *Cache
	var out []LedgerEntry
	err := cache.FetchJSON(context.Background(), "k", &out, func(ctx context.Context) (interface{}, error) {
		return []LedgerEntry{{RunningBalance: 7}}, nil
	})
	require.NoError(t, err)
	require.InDelta(t, 7, out[0].RunningBalance, 0)
}
