package keymgr

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/arcliffe/openidcore/pkg/errors"
)

const AlgorithmRS256 = "RS256"

// KeyContainer is a signing key plus its lifecycle metadata. The two
// variants are a raw asymmetric key and a certificate-backed key; they are
// distinguished with a type switch, not runtime inspection of the material.
type KeyContainer interface {
	ID() string
	Algorithm() string
	Created() time.Time
	HasCertificate() bool
	PrivateKey() *rsa.PrivateKey
}

// RSAKey is a raw RSA signing key.
type RSAKey struct {
	id        string
	algorithm string
	created   time.Time
	key       *rsa.PrivateKey
}

var _ KeyContainer = (*RSAKey)(nil)

func NewRSAKey(key *rsa.PrivateKey, algorithm string, created time.Time) *RSAKey {
	return &RSAKey{
		id:        uuid.NewString(),
		algorithm: algorithm,
		created:   created,
		key:       key,
	}
}

func (k *RSAKey) ID() string                  { return k.id }
func (k *RSAKey) Algorithm() string           { return k.algorithm }
func (k *RSAKey) Created() time.Time          { return k.created }
func (k *RSAKey) HasCertificate() bool        { return false }
func (k *RSAKey) PrivateKey() *rsa.PrivateKey { return k.key }

func newRestoredRSAKey(id, algorithm string, created time.Time, key *rsa.PrivateKey) *RSAKey {
	return &RSAKey{id: id, algorithm: algorithm, created: created, key: key}
}

func newRestoredCertificateKey(id, algorithm string, created time.Time, key *rsa.PrivateKey, certificate *x509.Certificate) *CertificateKey {
	return &CertificateKey{id: id, algorithm: algorithm, created: created, key: key, certificate: certificate}
}

// CertificateKey is an RSA signing key wrapped in a self-signed certificate,
// for relying parties that require certificate-backed metadata.
type CertificateKey struct {
	id          string
	algorithm   string
	created     time.Time
	key         *rsa.PrivateKey
	certificate *x509.Certificate
}

var _ KeyContainer = (*CertificateKey)(nil)

// NewCertificateKey self-signs a certificate over the key, valid until the
// key would be retired anyway.
func NewCertificateKey(key *rsa.PrivateKey, algorithm string, created time.Time, validFor time.Duration) (*CertificateKey, error) {
	id := uuid.NewString()

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to generate certificate serial", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "signing-key-" + id},
		NotBefore:    created,
		NotAfter:     created.Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to self-sign certificate", err)
	}

	certificate, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to parse self-signed certificate", err)
	}

	return &CertificateKey{
		id:          id,
		algorithm:   algorithm,
		created:     created,
		key:         key,
		certificate: certificate,
	}, nil
}

func (k *CertificateKey) ID() string                     { return k.id }
func (k *CertificateKey) Algorithm() string              { return k.algorithm }
func (k *CertificateKey) Created() time.Time             { return k.created }
func (k *CertificateKey) HasCertificate() bool           { return true }
func (k *CertificateKey) PrivateKey() *rsa.PrivateKey    { return k.key }
func (k *CertificateKey) Certificate() *x509.Certificate { return k.certificate }

// PublicJWK returns the container's public key as a JWK for publication in a
// key set document.
func PublicJWK(container KeyContainer) (jwk.Key, error) {
	key, err := jwk.FromRaw(container.PrivateKey().Public())
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to build public jwk", err)
	}

	if err := key.Set(jwk.KeyIDKey, container.ID()); err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to set jwk key id", err)
	}
	if err := key.Set(jwk.AlgorithmKey, container.Algorithm()); err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to set jwk algorithm", err)
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to set jwk use", err)
	}

	return key, nil
}
