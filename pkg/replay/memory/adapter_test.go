package memory

import (
	"context"
	"testing"
	"time"

	"github.com/arcliffe/openidcore/pkg/clock"
)

func TestAddAndExists(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := NewAdapter(clk)
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

func TestExpiredEntryIsGone(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := NewAdapter(clk)
	ctx := context.Background()

	if err := cache.Add(ctx, "par", "handle-1", clk.Now().Add(time.Minute)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	clk.Advance(2 * time.Minute)

	exists, err := cache.Exists(ctx, "par", "handle-1")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected expired handle to be gone")
	}
}

func TestAddRejectsEmptyKeyParts(t *testing.T) {
	cache := NewAdapter(nil)

	if err := cache.Add(context.Background(), "", "handle", time.Now().Add(time.Minute)); err == nil {
		t.Fatal("expected error for empty purpose")
	}
	if err := cache.Add(context.Background(), "par", "", time.Now().Add(time.Minute)); err == nil {
		t.Fatal("expected error for empty handle")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	cache := NewAdapter(clk)
	ctx := context.Background()

	_ = cache.Add(ctx, "par", "old", clk.Now().Add(time.Second))
	_ = cache.Add(ctx, "par", "new", clk.Now().Add(time.Hour))

	clk.Advance(time.Minute)
	cache.Sweep()

	cache.mu.RLock()
	_, oldOK := cache.entries["parold"]
	_, newOK := cache.entries["parnew"]
	cache.mu.RUnlock()

	if oldOK {
		t.Fatal("expected expired entry to be swept")
	}
	if !newOK {
		t.Fatal("expected live entry to survive sweep")
	}
}
