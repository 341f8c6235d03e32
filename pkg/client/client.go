package client

import (
	"context"
	"slices"

	"github.com/arcliffe/openidcore/pkg/oidc"
)

// Client is the static configuration for a registered relying party.
// Immutable per request; loaded by identifier.
type Client struct {
	ID                string
	Enabled           bool
	ProtocolType      string
	SecretHashes      []string
	RedirectURIs      []string
	AllowedGrantTypes []string
	AllowedScopes     []string

	RequirePKCE                 bool
	AllowPlainTextPKCE          bool
	AllowAccessTokensViaBrowser bool
	RequireRequestObject        bool

	// IdentityProviderRestrictions limits which upstream providers may be
	// requested via the idp acr_values hint. Empty means unrestricted.
	IdentityProviderRestrictions []string

	AuthorizationCodeLifetime int
	AccessTokenLifetime       int
}

// Store loads client configuration by identifier.
type Store interface {
	// FindEnabledClientByID returns the client when it exists and is
	// enabled, or nil when unknown or disabled.
	FindEnabledClientByID(ctx context.Context, clientID string) (*Client, error)
}

func (c *Client) AllowsGrantType(grantType string) bool {
	return slices.Contains(c.AllowedGrantTypes, grantType)
}

func (c *Client) AllowsIdentityProvider(idp string) bool {
	if len(c.IdentityProviderRestrictions) == 0 {
		return true
	}
	return slices.Contains(c.IdentityProviderRestrictions, idp)
}

func (c *Client) IsOpenIDConnect() bool {
	return c.ProtocolType == "" || c.ProtocolType == oidc.ProtocolTypeOpenIDConnect
}
