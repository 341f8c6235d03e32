package client

import (
	"context"

	"github.com/arcliffe/openidcore/pkg/errors"
	"github.com/arcliffe/openidcore/pkg/secrets"
)

// SecretValidator authenticates confidential clients by checking a presented
// shared secret against the hashes stored on the client record.
type SecretValidator struct {
	clients Store
	hasher  secrets.Hasher
}

func NewSecretValidator(clients Store, hasher secrets.Hasher) (*SecretValidator, error) {
	if clients == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "client: a client store is required")
	}
	if hasher == nil {
		hasher = secrets.NewPBKDF2Hasher(secrets.DefaultPBKDF2Options())
	}

	return &SecretValidator{
		clients: clients,
		hasher:  hasher,
	}, nil
}

// Authenticate resolves the client and verifies the presented secret against
// its stored hashes. It returns nil when the client is unknown, disabled, has
// no stored secrets, or the secret does not match; errors are reserved for
// backend faults and malformed stored hashes.
func (v *SecretValidator) Authenticate(ctx context.Context, clientID string, secret string) (*Client, error) {
	if clientID == "" || secret == "" {
		return nil, nil
	}

	c, err := v.clients.FindEnabledClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.SecretHashes) == 0 {
		return nil, nil
	}

	for _, encoded := range c.SecretHashes {
		ok, err := v.hasher.Verify(secret, encoded)
		if err != nil {
			return nil, errors.Wrap(errors.CodeInvalidConfig, "client: stored secret hash is malformed", err)
		}
		if ok {
			return c, nil
		}
	}

	return nil, nil
}
