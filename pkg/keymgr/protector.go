package keymgr

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/arcliffe/openidcore/pkg/errors"
)

var ErrUnprotectFailed = errors.New(errors.CodeUnknown, "keymgr: failed to unprotect key material")

// Protector encrypts serialized key material before it reaches durable
// storage. A payload that fails to unprotect marks the stored key as corrupt.
type Protector interface {
	Protect(plaintext []byte) ([]byte, error)
	Unprotect(ciphertext []byte) ([]byte, error)
}

type nopProtector struct{}

var _ Protector = nopProtector{}

// NewNopProtector stores key material unencrypted. Only suitable when the
// backing store itself is trusted.
func NewNopProtector() Protector {
	return nopProtector{}
}

func (nopProtector) Protect(plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

func (nopProtector) Unprotect(ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

type aeadProtector struct {
	key [32]byte
}

var _ Protector = (*aeadProtector)(nil)

// NewAEADProtector derives an XChaCha20-Poly1305 key from the secret and
// encrypts payloads with a random nonce prefix.
func NewAEADProtector(secret []byte) (Protector, error) {
	if len(secret) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, "keymgr: protector secret must not be empty")
	}
	return &aeadProtector{key: sha256.Sum256(secret)}, nil
}

func (p *aeadProtector) Protect(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(p.key[:])
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to initialize cipher", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to generate nonce", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (p *aeadProtector) Unprotect(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(p.key[:])
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to initialize cipher", err)
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrUnprotectFailed
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrUnprotectFailed
	}

	return plaintext, nil
}
