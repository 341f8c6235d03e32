package memory

import (
	"context"
	"testing"
	"time"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/grants"
)

func testGrant(key, grantType, subject string, expiration *time.Time) grants.PersistedGrant {
	return grants.PersistedGrant{
		Key:          key,
		Type:         grantType,
		SubjectID:    subject,
		ClientID:     "client-1",
		SessionID:    "session-1",
		CreationTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Expiration:   expiration,
		Data:         `{"value":1}`,
	}
}

func TestAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))

	if err := adapter.Store(ctx, testGrant("key-1", grants.TypeAuthorizationCode, "subject-1", nil)); err != nil {
		t.Fatalf("failed to store grant: %v", err)
	}

	grant, err := adapter.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("failed to get grant: %v", err)
	}
	if grant == nil {
		t.Fatal("expected stored grant, got nil")
	}
	if grant.SubjectID != "subject-1" {
		t.Fatalf("expected subject-1, got %s", grant.SubjectID)
	}

	if err := adapter.Remove(ctx, "key-1"); err != nil {
		t.Fatalf("failed to remove grant: %v", err)
	}
	grant, err = adapter.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("failed to get grant after remove: %v", err)
	}
	if grant != nil {
		t.Fatal("expected nil after remove")
	}
}

func TestAdapterGetMissing(t *testing.T) {
	adapter := NewAdapter(nil)

	grant, err := adapter.Get(context.Background(), "no-such-key")
	if err != nil {
		t.Fatalf("failed to get grant: %v", err)
	}
	if grant != nil {
		t.Fatal("expected nil for unknown key")
	}
}

func TestAdapterExpiry(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	adapter := NewAdapter(fake)

	expiration := fake.Now().Add(time.Minute)
	if err := adapter.Store(ctx, testGrant("key-1", grants.TypeAuthorizationCode, "subject-1", &expiration)); err != nil {
		t.Fatalf("failed to store grant: %v", err)
	}

	fake.Advance(59 * time.Second)
	grant, err := adapter.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("failed to get grant: %v", err)
	}
	if grant == nil {
		t.Fatal("grant expired too early")
	}

	fake.Advance(time.Second)
	grant, err = adapter.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("failed to get grant: %v", err)
	}
	if grant != nil {
		t.Fatal("expected expired grant to be dropped")
	}
}

func TestAdapterGetAllFilters(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(nil)

	seed := []grants.PersistedGrant{
		testGrant("key-1", grants.TypeAuthorizationCode, "subject-1", nil),
		testGrant("key-2", grants.TypeRefreshToken, "subject-1", nil),
		testGrant("key-3", grants.TypeRefreshToken, "subject-2", nil),
	}
	for _, grant := range seed {
		if err := adapter.Store(ctx, grant); err != nil {
			t.Fatalf("failed to store grant %s: %v", grant.Key, err)
		}
	}

	all, err := adapter.GetAll(ctx, grants.Filter{SubjectID: "subject-1"})
	if err != nil {
		t.Fatalf("failed to query grants: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 grants for subject-1, got %d", len(all))
	}

	refresh, err := adapter.GetAll(ctx, grants.Filter{
		SubjectID: "subject-1",
		Types:     []string{grants.TypeRefreshToken},
	})
	if err != nil {
		t.Fatalf("failed to query grants: %v", err)
	}
	if len(refresh) != 1 || refresh[0].Key != "key-2" {
		t.Fatalf("expected only key-2, got %+v", refresh)
	}

	if _, err := adapter.GetAll(ctx, grants.Filter{}); err != grants.ErrEmptyFilter {
		t.Fatalf("expected ErrEmptyFilter, got %v", err)
	}
}

func TestAdapterRemoveAll(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(nil)

	seed := []grants.PersistedGrant{
		testGrant("key-1", grants.TypeAuthorizationCode, "subject-1", nil),
		testGrant("key-2", grants.TypeRefreshToken, "subject-1", nil),
		testGrant("key-3", grants.TypeRefreshToken, "subject-2", nil),
	}
	for _, grant := range seed {
		if err := adapter.Store(ctx, grant); err != nil {
			t.Fatalf("failed to store grant %s: %v", grant.Key, err)
		}
	}

	if err := adapter.RemoveAll(ctx, grants.Filter{SubjectID: "subject-1"}); err != nil {
		t.Fatalf("failed to remove grants: %v", err)
	}

	for _, key := range []string{"key-1", "key-2"} {
		grant, err := adapter.Get(ctx, key)
		if err != nil {
			t.Fatalf("failed to get grant %s: %v", key, err)
		}
		if grant != nil {
			t.Fatalf("expected %s removed", key)
		}
	}

	grant, err := adapter.Get(ctx, "key-3")
	if err != nil {
		t.Fatalf("failed to get grant key-3: %v", err)
	}
	if grant == nil {
		t.Fatal("expected key-3 to survive")
	}

	if err := adapter.RemoveAll(ctx, grants.Filter{}); err != grants.ErrEmptyFilter {
		t.Fatalf("expected ErrEmptyFilter, got %v", err)
	}
}

func TestAdapterSweep(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	adapter := NewAdapter(fake)

	expired := fake.Now().Add(time.Minute)
	alive := fake.Now().Add(time.Hour)
	if err := adapter.Store(ctx, testGrant("key-1", grants.TypeAuthorizationCode, "subject-1", &expired)); err != nil {
		t.Fatalf("failed to store grant: %v", err)
	}
	if err := adapter.Store(ctx, testGrant("key-2", grants.TypeAuthorizationCode, "subject-1", &alive)); err != nil {
		t.Fatalf("failed to store grant: %v", err)
	}

	fake.Advance(2 * time.Minute)
	if removed := adapter.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept grant, got %d", removed)
	}

	grant, err := adapter.Get(ctx, "key-2")
	if err != nil {
		t.Fatalf("failed to get grant: %v", err)
	}
	if grant == nil {
		t.Fatal("expected unexpired grant to survive sweep")
	}
}
