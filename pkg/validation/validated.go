package validation

import (
	"net/url"
	"slices"

	"github.com/arcliffe/openidcore/pkg/client"
	"github.com/arcliffe/openidcore/pkg/oidc"
)

// RequestType distinguishes how the authorize parameters reached the
// endpoint.
type RequestType int

const (
	// RequestTypeAuthorize is a plain front-channel authorize request.
	RequestTypeAuthorize RequestType = iota

	// RequestTypeAuthorizeWithPushedParameters is an authorize request whose
	// parameters were redeemed from a pushed authorization request_uri.
	RequestTypeAuthorizeWithPushedParameters
)

// Subject describes the end user on whose behalf the request runs. A nil
// subject or Authenticated == false models an anonymous caller.
type Subject struct {
	ID               string
	Authenticated    bool
	IdentityProvider string
}

// Request accumulates the outcome of the validation stages. Fields are
// populated as the pipeline advances; on failure the partially populated
// request rides along in the result for logging only.
type Request struct {
	Raw         url.Values
	RequestType RequestType

	ClientID  string
	Client    *client.Client
	Subject   *Subject
	SessionID string

	RedirectURI  string
	ResponseType string
	GrantType    string
	ResponseMode string

	RequestedScopes             []string
	IsOpenIDRequest             bool
	RequestedResourceIndicators []string
	ValidatedResources          *ResourceValidationResult

	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string

	// PromptModes is the set still to be honored: the original prompt values
	// minus the ones the interaction pipeline already processed.
	PromptModes          []string
	OriginalPromptModes  []string
	ProcessedPromptModes []string

	MaxAge            *int
	LoginHint         string
	UILocales         string
	AcrValues         []string
	DisplayMode       string
	DPoPKeyThumbprint string

	RequestObject       string
	RequestObjectValues url.Values
}

// AccessTokenRequested reports whether the response type delivers an access
// token on the front channel.
func (r *Request) AccessTokenRequested() bool {
	return r.responseTypeContains("token")
}

// IDTokenRequested reports whether the response type delivers an id_token.
func (r *Request) IDTokenRequested() bool {
	return r.responseTypeContains("id_token")
}

// CodeRequested reports whether the response type delivers an authorization
// code.
func (r *Request) CodeRequested() bool {
	return r.responseTypeContains("code")
}

func (r *Request) responseTypeContains(token string) bool {
	return slices.Contains(oidc.SplitSpaceDelimited(r.ResponseType), token)
}
