package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/arcliffe/openidcore/pkg/clock"
)

func newTestAdapter(t *testing.T) (*Adapter, *miniredis.Miniredis, *clock.Fake) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	return NewAdapterWithClient(client, "test:replay:", clk), srv, clk
}

func TestAddAndExists(t *testing.T) {
	cache, _, clk := newTestAdapter(t)
	ctx := context.Background()

	if err := cache.Add(ctx, "par", "handle-1", clk.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	exists, err := cache.Exists(ctx, "par", "handle-1")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected handle to exist")
	}

	exists, err = cache.Exists(ctx, "jti", "handle-1")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected different purpose to be a distinct entry")
	}
}

func TestEntryExpires(t *testing.T) {
	cache, srv, clk := newTestAdapter(t)
	ctx := context.Background()

	if err := cache.Add(ctx, "par", "handle-1", clk.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	srv.FastForward(2 * time.Minute)

	exists, err := cache.Exists(ctx, "par", "handle-1")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected expired handle to be gone")
	}
}

func TestAddAlreadyExpiredIsNoop(t *testing.T) {
	cache, srv, clk := newTestAdapter(t)
	ctx := context.Background()

	if err := cache.Add(ctx, "par", "handle-1", clk.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if srv.Exists("test:replay:parhandle-1") {
		t.Fatal("expected no key to be written for an already-expired entry")
	}
}
