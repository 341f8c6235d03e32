package keymgr

import (
	"bytes"
	"testing"
)

func TestAEADProtectorRoundTrip(t *testing.T) {
	protector, err := NewAEADProtector([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to build protector: %v", err)
	}

	plaintext := []byte("signing key material")
	protected, err := protector.Protect(plaintext)
	if err != nil {
		t.Fatalf("failed to protect: %v", err)
	}
	if bytes.Equal(protected, plaintext) {
		t.Fatal("protected payload must not equal plaintext")
	}

	recovered, err := protector.Unprotect(protected)
	if err != nil {
		t.Fatalf("failed to unprotect: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, recovered)
	}
}

func TestAEADProtectorRejectsTamperedPayload(t *testing.T) {
	protector, err := NewAEADProtector([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to build protector: %v", err)
	}

	protected, err := protector.Protect([]byte("signing key material"))
	if err != nil {
		t.Fatalf("failed to protect: %v", err)
	}
	protected[len(protected)-1] ^= 0xff

	if _, err := protector.Unprotect(protected); err != ErrUnprotectFailed {
		t.Fatalf("expected ErrUnprotectFailed, got %v", err)
	}
}

func TestAEADProtectorRejectsWrongSecret(t *testing.T) {
	protector, err := NewAEADProtector([]byte("secret-one"))
	if err != nil {
		t.Fatalf("failed to build protector: %v", err)
	}
	other, err := NewAEADProtector([]byte("secret-two"))
	if err != nil {
		t.Fatalf("failed to build protector: %v", err)
	}

	protected, err := protector.Protect([]byte("signing key material"))
	if err != nil {
		t.Fatalf("failed to protect: %v", err)
	}

	if _, err := other.Unprotect(protected); err != ErrUnprotectFailed {
		t.Fatalf("expected ErrUnprotectFailed, got %v", err)
	}
}

func TestAEADProtectorRejectsEmptySecret(t *testing.T) {
	if _, err := NewAEADProtector(nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestAEADProtectorRejectsShortCiphertext(t *testing.T) {
	protector, err := NewAEADProtector([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to build protector: %v", err)
	}

	if _, err := protector.Unprotect([]byte("short")); err != ErrUnprotectFailed {
		t.Fatalf("expected ErrUnprotectFailed, got %v", err)
	}
}
