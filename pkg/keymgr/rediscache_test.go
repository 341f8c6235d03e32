package keymgr

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

func newRedisCacheFixture(t *testing.T) (*miniredis.Miniredis, *RedisStoreCache) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewRedisStoreCacheWithClient(client, "", NewNopProtector(), logr.Discard())
	return srv, cache
}

func TestRedisStoreCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, cache := newRedisCacheFixture(t)

	container := NewRSAKey(testRSAKey(t), AlgorithmRS256, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	if err := cache.StoreKeys(ctx, []KeyContainer{container}, time.Minute); err != nil {
		t.Fatalf("failed to store keys: %v", err)
	}

	keys, err := cache.GetKeys(ctx)
	if err != nil {
		t.Fatalf("failed to get keys: %v", err)
	}
	if len(keys) != 1 || keys[0].ID() != container.ID() {
		t.Fatalf("expected cached key %s, got %v", container.ID(), ids(keys))
	}
}

func TestRedisStoreCacheMissReturnsNil(t *testing.T) {
	_, cache := newRedisCacheFixture(t)

	keys, err := cache.GetKeys(context.Background())
	if err != nil {
		t.Fatalf("failed to get keys: %v", err)
	}
	if keys != nil {
		t.Fatalf("expected miss, got %v", ids(keys))
	}
}

func TestRedisStoreCacheEntryExpires(t *testing.T) {
	ctx := context.Background()
	srv, cache := newRedisCacheFixture(t)

	container := NewRSAKey(testRSAKey(t), AlgorithmRS256, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	if err := cache.StoreKeys(ctx, []KeyContainer{container}, time.Minute); err != nil {
		t.Fatalf("failed to store keys: %v", err)
	}

	srv.FastForward(2 * time.Minute)

	keys, err := cache.GetKeys(ctx)
	if err != nil {
		t.Fatalf("failed to get keys: %v", err)
	}
	if keys != nil {
		t.Fatalf("expected expired snapshot to miss, got %v", ids(keys))
	}
}
