package keymgr

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/arcliffe/openidcore/pkg/errors"
)

const serializedKeyVersion = 1

// SerializedKey is the durable representation of a KeyContainer. Data is
// the protected payload; stores and caches never interpret it.
type SerializedKey struct {
	Version           int       `json:"version"`
	ID                string    `json:"id"`
	Algorithm         string    `json:"algorithm"`
	Created           time.Time `json:"created"`
	IsX509Certificate bool      `json:"is_x509_certificate"`
	Data              string    `json:"data"`
}

// keyPayload is the plaintext inside SerializedKey.Data: the private key as
// a JWK plus the DER certificate for certificate-backed containers.
type keyPayload struct {
	Key         json.RawMessage `json:"key"`
	Certificate []byte          `json:"certificate,omitempty"`
}

func serializeKey(container KeyContainer, protector Protector) (SerializedKey, error) {
	privateJWK, err := jwk.FromRaw(container.PrivateKey())
	if err != nil {
		return SerializedKey{}, errors.Wrap(errors.CodeUnknown, "keymgr: failed to build private jwk", err)
	}

	rawJWK, err := json.Marshal(privateJWK)
	if err != nil {
		return SerializedKey{}, errors.Wrap(errors.CodeUnknown, "keymgr: failed to marshal private jwk", err)
	}

	payload := keyPayload{Key: rawJWK}
	if cert, ok := container.(*CertificateKey); ok {
		payload.Certificate = cert.Certificate().Raw
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return SerializedKey{}, errors.Wrap(errors.CodeUnknown, "keymgr: failed to marshal key payload", err)
	}

	protected, err := protector.Protect(plaintext)
	if err != nil {
		return SerializedKey{}, err
	}

	return SerializedKey{
		Version:           serializedKeyVersion,
		ID:                container.ID(),
		Algorithm:         container.Algorithm(),
		Created:           container.Created(),
		IsX509Certificate: container.HasCertificate(),
		Data:              base64.StdEncoding.EncodeToString(protected),
	}, nil
}

func deserializeKey(serialized SerializedKey, protector Protector) (KeyContainer, error) {
	protected, err := base64.StdEncoding.DecodeString(serialized.Data)
	if err != nil {
		return nil, ErrUnprotectFailed
	}

	plaintext, err := protector.Unprotect(protected)
	if err != nil {
		return nil, err
	}

	var payload keyPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to unmarshal key payload", err)
	}

	parsedJWK, err := jwk.ParseKey(payload.Key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to parse private jwk", err)
	}

	var private rsa.PrivateKey
	if err := parsedJWK.Raw(&private); err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to materialize private key", err)
	}

	if serialized.IsX509Certificate {
		certificate, err := x509.ParseCertificate(payload.Certificate)
		if err != nil {
			return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to parse certificate", err)
		}
		return newRestoredCertificateKey(serialized.ID, serialized.Algorithm, serialized.Created, &private, certificate), nil
	}

	return newRestoredRSAKey(serialized.ID, serialized.Algorithm, serialized.Created, &private), nil
}
