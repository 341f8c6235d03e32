package oidc

import "context"

// DiscoveryDocument is the subset of OIDC discovery metadata the trust core
// knows how to populate; hosting layers add endpoint URLs.
type DiscoveryDocument struct {
	Issuer                                     string   `json:"issuer"`
	AuthorizationEndpoint                      string   `json:"authorization_endpoint"`
	TokenEndpoint                              string   `json:"token_endpoint"`
	PushedAuthorizationRequestEndpoint         string   `json:"pushed_authorization_request_endpoint,omitempty"`
	JWKSURI                                    string   `json:"jwks_uri"`
	ResponseTypesSupported                     []string `json:"response_types_supported"`
	ResponseModesSupported                     []string `json:"response_modes_supported"`
	GrantTypesSupported                        []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported              []string `json:"code_challenge_methods_supported"`
	PromptValuesSupported                      []string `json:"prompt_values_supported"`
	RequirePushedAuthorizationRequests         bool     `json:"require_pushed_authorization_requests,omitempty"`
	AuthorizationResponseIssParameterSupported bool     `json:"authorization_response_iss_parameter_supported"`
}

// NewDiscoveryDocument returns a document pre-populated with the protocol
// capabilities of the authorize pipeline. Callers fill in the endpoint URLs
// and the pushed authorization settings for their deployment.
func NewDiscoveryDocument(issuer string) DiscoveryDocument {
	return DiscoveryDocument{
		Issuer:                        issuer,
		ResponseTypesSupported:        SupportedResponseTypes,
		ResponseModesSupported:        SupportedResponseModes,
		GrantTypesSupported:           AllowedGrantTypesForAuthorizeEndpoint,
		CodeChallengeMethodsSupported: SupportedCodeChallengeMethods,
		PromptValuesSupported:         SupportedPromptModes,

		AuthorizationResponseIssParameterSupported: true,
	}
}

// IssuerNameService resolves the issuer identifier for the current request.
// Multi-tenant hosts derive it per request; single-tenant hosts return a
// static value.
type IssuerNameService interface {
	CurrentIssuer(ctx context.Context) (string, error)
}

type staticIssuer string

func (s staticIssuer) CurrentIssuer(context.Context) (string, error) {
	return string(s), nil
}

// StaticIssuer returns an IssuerNameService with a fixed issuer name.
func StaticIssuer(issuer string) IssuerNameService {
	return staticIssuer(issuer)
}
