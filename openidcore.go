package openidcore

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/client"
	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/errors"
	"github.com/arcliffe/openidcore/pkg/grants"
	grantmemory "github.com/arcliffe/openidcore/pkg/grants/memory"
	"github.com/arcliffe/openidcore/pkg/handle"
	"github.com/arcliffe/openidcore/pkg/keymgr"
	"github.com/arcliffe/openidcore/pkg/par"
	"github.com/arcliffe/openidcore/pkg/replay"
	replaymemory "github.com/arcliffe/openidcore/pkg/replay/memory"
	"github.com/arcliffe/openidcore/pkg/session"
	"github.com/arcliffe/openidcore/pkg/validation"
)

// Config assembles the trust core. Clients and Resources are required;
// storage and caching default to in-memory backends unless the Runtime
// config selects durable ones.
type Config struct {
	Clients   client.Store
	Resources validation.ResourceValidator

	RedirectURIs validation.RedirectURIValidator
	Sessions     session.Accessor
	Custom       validation.CustomValidator
	Usage        validation.UsageTracker
	Restrictions *validation.InputLengthRestrictions

	GrantStore      grants.PersistedGrantStore
	SigningKeyStore keymgr.SigningKeyStore
	KeyCache        keymgr.StoreCache
	KeyProtector    keymgr.Protector
	KeyOptions      *keymgr.Options
	ReplayCache     replay.Cache

	// EnablePushedAuthorizationRequests turns on request_uri support.
	// Disabling it invalidates any previously issued references.
	EnablePushedAuthorizationRequests bool
	PushedRequestLifetime             time.Duration

	Clock   clock.Clock
	Logger  logr.Logger
	Runtime RuntimeConfig
}

// Client is the assembled trust core: the authorize request validator, the
// signing key manager, and the grant stores, sharing one set of backends.
type Client struct {
	validator     *validation.Validator
	keys          *keymgr.Manager
	grantStores   *grants.Stores
	pushed        *par.Store
	replayCache   replay.Cache
	logger        logr.Logger
	closeResource func() error
}

func New(config Config) (*Client, error) {
	closeResource, resolved, err := config.initialize(context.Background())
	if err != nil {
		return nil, err
	}

	if resolved.Clients == nil {
		_ = closeResource()
		return nil, errors.New(errors.CodeInvalidConfig, "openidcore: a client store is required")
	}
	if resolved.Resources == nil {
		_ = closeResource()
		return nil, errors.New(errors.CodeInvalidConfig, "openidcore: a resource validator is required")
	}

	if resolved.Clock == nil {
		resolved.Clock = clock.System()
	}
	if resolved.GrantStore == nil {
		resolved.GrantStore = grantmemory.NewAdapter(resolved.Clock)
	}
	if resolved.SigningKeyStore == nil {
		resolved.SigningKeyStore = keymgr.NewInMemoryKeyStore()
	}
	if resolved.ReplayCache == nil {
		resolved.ReplayCache = replaymemory.NewAdapter(resolved.Clock)
	}

	serializer := grants.NewJSONSerializer()
	handles := handle.NewGenerator(0)
	grantStores := grants.NewStores(resolved.GrantStore, serializer, handles, resolved.Logger)

	var pushed *par.Store
	if resolved.EnablePushedAuthorizationRequests {
		pushed = par.NewStore(resolved.GrantStore, serializer, handles, resolved.Clock, resolved.PushedRequestLifetime, resolved.Logger)
	}

	keyOptions := keymgr.DefaultOptions()
	if resolved.KeyOptions != nil {
		keyOptions = *resolved.KeyOptions
	}
	keys, err := keymgr.NewManager(keyOptions, resolved.SigningKeyStore, resolved.KeyCache, resolved.KeyProtector, resolved.Clock, resolved.Logger)
	if err != nil {
		_ = closeResource()
		return nil, err
	}

	validator, err := validation.NewValidator(validation.Config{
		Clients:        resolved.Clients,
		Resources:      resolved.Resources,
		RedirectURIs:   resolved.RedirectURIs,
		Sessions:       resolved.Sessions,
		PushedRequests: pushed,
		Custom:         resolved.Custom,
		Usage:          resolved.Usage,
		Restrictions:   resolved.Restrictions,
		Logger:         resolved.Logger,
	})
	if err != nil {
		_ = closeResource()
		return nil, err
	}

	return &Client{
		validator:     validator,
		keys:          keys,
		grantStores:   grantStores,
		pushed:        pushed,
		replayCache:   resolved.ReplayCache,
		logger:        resolved.Logger,
		closeResource: closeResource,
	}, nil
}

// Validator returns the authorize request validator.
func (c *Client) Validator() *validation.Validator {
	return c.validator
}

// KeyManager returns the signing key lifecycle manager.
func (c *Client) KeyManager() *keymgr.Manager {
	return c.keys
}

// Grants returns the typed grant store facades.
func (c *Client) Grants() *grants.Stores {
	return c.grantStores
}

// PushedRequests returns the pushed authorization request store, or nil
// when pushed authorization is disabled.
func (c *Client) PushedRequests() *par.Store {
	return c.pushed
}

// ReplayCache returns the one-time-use handle cache.
func (c *Client) ReplayCache() replay.Cache {
	return c.replayCache
}

func (c *Client) Close() error {
	if c == nil || c.closeResource == nil {
		return nil
	}

	err := c.closeResource()
	if err != nil {
		return errors.Wrap(errors.CodeUnknown, "openidcore: failed to close client resources", err)
	}
	c.closeResource = nil
	return nil
}
