package par

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/grants"
	"github.com/arcliffe/openidcore/pkg/handle"
)

// RequestURIPrefix is the urn namespace for pushed request references.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// DefaultLifetime bounds how long a pushed request stays redeemable.
const DefaultLifetime = 10 * time.Minute

// message is the persisted payload behind a request_uri reference.
type message struct {
	ClientID   string     `json:"client_id"`
	Parameters url.Values `json:"parameters"`
}

// Store holds pushed authorization parameters behind one-time request_uri
// references. Read consumes the reference, so redeeming it twice fails.
type Store struct {
	inner    *grants.TypedStore[message]
	clock    clock.Clock
	lifetime time.Duration
}

func NewStore(
	store grants.PersistedGrantStore,
	serializer grants.Serializer,
	handles handle.Generator,
	clk clock.Clock,
	lifetime time.Duration,
	logger logr.Logger,
) *Store {
	if clk == nil {
		clk = clock.System()
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return &Store{
		inner:    grants.NewTypedStore[message](grants.TypePushedAuthorization, store, serializer, handles, logger),
		clock:    clk,
		lifetime: lifetime,
	}
}

// Write stores the pushed parameters and returns the request_uri reference
// handed back to the client.
func (s *Store) Write(ctx context.Context, clientID string, parameters url.Values) (string, error) {
	reference, err := s.inner.Create(ctx, message{
		ClientID:   clientID,
		Parameters: parameters,
	}, grants.Metadata{
		ClientID: clientID,
		Created:  s.clock.Now(),
		Lifetime: s.lifetime,
	})
	if err != nil {
		return "", err
	}

	return RequestURIPrefix + reference, nil
}

// Read resolves a request_uri reference and consumes it. Returns nil
// parameters for an unknown, expired, already consumed, or malformed
// reference.
func (s *Store) Read(ctx context.Context, requestURI string) (string, url.Values, error) {
	reference, ok := strings.CutPrefix(requestURI, RequestURIPrefix)
	if !ok || reference == "" {
		return "", nil, nil
	}

	stored, err := s.inner.Get(ctx, reference)
	if err != nil {
		return "", nil, err
	}
	if stored == nil {
		return "", nil, nil
	}

	if err := s.inner.Remove(ctx, reference); err != nil {
		return "", nil, err
	}

	return stored.ClientID, stored.Parameters, nil
}

// Lifetime reports how long issued references stay redeemable.
func (s *Store) Lifetime() time.Duration {
	return s.lifetime
}
