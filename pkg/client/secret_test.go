package client

import (
	"context"
	"testing"

	"github.com/arcliffe/openidcore/pkg/secrets"
)

func TestSecretValidatorAuthenticate(t *testing.T) {
	ctx := context.Background()

	hasher := secrets.NewPBKDF2Hasher(secrets.PBKDF2Options{Iterations: 1000})
	encoded, err := hasher.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	store, err := NewMemoryStore(
		&Client{ID: "confidential", Enabled: true, SecretHashes: []string{encoded}},
		&Client{ID: "public", Enabled: true},
	)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	validator, err := NewSecretValidator(store, hasher)
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	authenticated, err := validator.Authenticate(ctx, "confidential", "s3cret")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if authenticated == nil || authenticated.ID != "confidential" {
		t.Fatalf("expected confidential client, got %+v", authenticated)
	}

	authenticated, err = validator.Authenticate(ctx, "confidential", "wrong")
	if err != nil {
		t.Fatalf("authenticate with wrong secret errored: %v", err)
	}
	if authenticated != nil {
		t.Fatal("expected wrong secret to be rejected")
	}

	authenticated, err = validator.Authenticate(ctx, "public", "s3cret")
	if err != nil {
		t.Fatalf("authenticate public client errored: %v", err)
	}
	if authenticated != nil {
		t.Fatal("expected client without stored secrets to be rejected")
	}

	authenticated, err = validator.Authenticate(ctx, "unknown", "s3cret")
	if err != nil {
		t.Fatalf("authenticate unknown client errored: %v", err)
	}
	if authenticated != nil {
		t.Fatal("expected unknown client to be rejected")
	}

	authenticated, err = validator.Authenticate(ctx, "confidential", "")
	if err != nil {
		t.Fatalf("authenticate without secret errored: %v", err)
	}
	if authenticated != nil {
		t.Fatal("expected missing secret to be rejected")
	}
}

func TestSecretValidatorMalformedStoredHash(t *testing.T) {
	store, err := NewMemoryStore(&Client{ID: "broken", Enabled: true, SecretHashes: []string{"not-a-hash"}})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	validator, err := NewSecretValidator(store, nil)
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	if _, err := validator.Authenticate(context.Background(), "broken", "s3cret"); err == nil {
		t.Fatal("expected malformed stored hash to surface an error")
	}
}

func TestNewSecretValidatorRequiresStore(t *testing.T) {
	if _, err := NewSecretValidator(nil, nil); err == nil {
		t.Fatal("expected configuration error without a client store")
	}
}
