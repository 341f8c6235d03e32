package validation

import (
	"context"
	"slices"

	"github.com/arcliffe/openidcore/pkg/client"
	"github.com/arcliffe/openidcore/pkg/errors"
)

// RedirectURIValidator decides whether a requested redirect_uri is
// acceptable for a client.
type RedirectURIValidator interface {
	IsRedirectURIValid(ctx context.Context, requestedURI string, c *client.Client) (bool, error)
}

// StrictRedirectURIValidator accepts only exact matches against the
// client's registered redirect URIs.
type StrictRedirectURIValidator struct{}

var _ RedirectURIValidator = StrictRedirectURIValidator{}

func (StrictRedirectURIValidator) IsRedirectURIValid(_ context.Context, requestedURI string, c *client.Client) (bool, error) {
	return slices.Contains(c.RedirectURIs, requestedURI), nil
}

// ResourceValidationRequest asks the resource validator to resolve the
// requested scopes and resource indicators against a client.
type ResourceValidationRequest struct {
	Client             *client.Client
	Scopes             []string
	ResourceIndicators []string
}

// ResourceValidationResult is the resolved view of the requested scopes.
// Requested values that could not be resolved, or that the client is not
// allowed to request, land in the Invalid slices.
type ResourceValidationResult struct {
	IdentityScopes []string
	APIScopes      []string
	Resources      []string

	InvalidScopes             []string
	InvalidResourceIndicators []string
}

// Succeeded reports whether every requested scope and resource indicator
// resolved.
func (r *ResourceValidationResult) Succeeded() bool {
	return len(r.InvalidScopes) == 0 && len(r.InvalidResourceIndicators) == 0
}

// ResourceValidator resolves requested scopes and resource indicators
// against the configured scope and resource registry.
type ResourceValidator interface {
	Validate(ctx context.Context, request ResourceValidationRequest) (*ResourceValidationResult, error)
}

// StaticResourceValidator resolves scopes against fixed identity and API
// scope registries, gated by the client's allowed scopes.
type StaticResourceValidator struct {
	IdentityScopes []string
	APIScopes      []string
	Resources      []string
}

var _ ResourceValidator = (*StaticResourceValidator)(nil)

func (v *StaticResourceValidator) Validate(_ context.Context, request ResourceValidationRequest) (*ResourceValidationResult, error) {
	if request.Client == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "validation: resource validation requires a client")
	}

	result := &ResourceValidationResult{}
	for _, scope := range request.Scopes {
		allowed := slices.Contains(request.Client.AllowedScopes, scope)
		switch {
		case allowed && slices.Contains(v.IdentityScopes, scope):
			result.IdentityScopes = append(result.IdentityScopes, scope)
		case allowed && slices.Contains(v.APIScopes, scope):
			result.APIScopes = append(result.APIScopes, scope)
		default:
			result.InvalidScopes = append(result.InvalidScopes, scope)
		}
	}

	for _, indicator := range request.ResourceIndicators {
		if slices.Contains(v.Resources, indicator) {
			result.Resources = append(result.Resources, indicator)
		} else {
			result.InvalidResourceIndicators = append(result.InvalidResourceIndicators, indicator)
		}
	}

	return result, nil
}

// Failure is a protocol-level rejection raised by a CustomValidator. An
// empty Code defaults to invalid_request.
type Failure struct {
	Code        errors.Code
	Description string
}

// CustomValidator runs after the built-in stages and may reject a request
// that passed protocol validation. A nil Failure accepts the request.
type CustomValidator interface {
	Validate(ctx context.Context, request *Request) (*Failure, error)
}

// UsageTracker observes successfully validated requests. Tracking failures
// never fail validation, so the interface has no error return.
type UsageTracker interface {
	Track(ctx context.Context, request *Request)
}
