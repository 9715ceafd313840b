package reports

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheVersionBump(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ver)

	key, err := cache.BuildKey(ctx, "sales", "2024-05-08")
	require.NoError(t, err)
	assert.Equal(t, "reports:sales:2024-05-08:1", key)

	require.NoError(t, cache.Invalidate(ctx))
	key, err = cache.BuildKey(ctx, "sales", "2024-05-08")
	require.NoError(t, err)
	assert.Equal(t, "reports:sales:2024-05-08:2", key)
}

func TestServiceServesFromCacheUntilInvalidated(t *testing.T) {
	cache, mr := newTestCache(t)
	var hits, misses int
	cache.OnLookup(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	repo := seedLedger()
	svc := newTestService(repo, cache)
	ctx := context.Background()

	first, err := svc.SalesByStore(ctx)
	require.NoError(t, err)
	reads := repo.reads.Load()
	require.Positive(t, reads)

	second, err := svc.SalesByStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, reads, repo.reads.Load())
	assert.True(t, first[0].Revenue.Equal(second[0].Revenue))
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.True(t, mr.Exists("reports:sales_by_store:1"))

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.SalesByStore(ctx)
	require.NoError(t, err)
	assert.Greater(t, repo.reads.Load(), reads)
	assert.Equal(t, 2, misses)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	svc := newTestService(seedLedger(), cache)

	_, err := svc.StockChart(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists("reports:stock_chart:1"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("reports:stock_chart:1"))
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	var cache *Cache
	var out []int
	err := cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out)
	require.NoError(t, cache.Invalidate(context.Background()))
}

func TestSharedBuildOutlivesCancelledCaller(t *testing.T) {
	cache, mr := newTestCache(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	loader := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return map[string]int{"n": 7}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var out map[string]int
		firstErr <- cache.FetchJSON(firstCtx, "k", &out, loader)
	}()
	<-started

	var got map[string]int
	secondErr := make(chan error, 1)
	go func() { secondErr <- cache.FetchJSON(context.Background(), "k", &got, loader) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	require.NoError(t, <-secondErr)
	assert.Equal(t, 7, got["n"])
	assert.True(t, mr.Exists("k"))
}
