package validation

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/client"
	"github.com/arcliffe/openidcore/pkg/errors"
	"github.com/arcliffe/openidcore/pkg/oidc"
	"github.com/arcliffe/openidcore/pkg/par"
	"github.com/arcliffe/openidcore/pkg/session"
)

// idpAcrPrefix marks an acr_values entry that selects an upstream identity
// provider rather than an authentication context class.
const idpAcrPrefix = "idp:"

// Config wires the validator's collaborators. Clients and Resources are
// required; the rest default to strict or inert implementations.
type Config struct {
	Clients   client.Store
	Resources ResourceValidator

	// RedirectURIs defaults to exact matching against the client's
	// registered redirect URIs.
	RedirectURIs RedirectURIValidator

	// Sessions resolves the session id for authenticated subjects. Defaults
	// to an anonymous accessor.
	Sessions session.Accessor

	// PushedRequests resolves request_uri references. Nil rejects any
	// request_uri with request_uri_not_supported.
	PushedRequests *par.Store

	Custom CustomValidator
	Usage  UsageTracker

	// Restrictions overrides the default input length bounds.
	Restrictions *InputLengthRestrictions

	Logger logr.Logger
}

// Validator runs the staged authorize request validation pipeline. Stages
// short-circuit: the first protocol failure ends the run and later stages
// never see the request.
type Validator struct {
	clients      client.Store
	resources    ResourceValidator
	redirects    RedirectURIValidator
	sessions     session.Accessor
	pushed       *par.Store
	custom       CustomValidator
	usage        UsageTracker
	restrictions InputLengthRestrictions
	logger       logr.Logger
}

func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Clients == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "validation: a client store is required")
	}
	if cfg.Resources == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "validation: a resource validator is required")
	}
	if cfg.RedirectURIs == nil {
		cfg.RedirectURIs = StrictRedirectURIValidator{}
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStaticAccessor("")
	}

	restrictions := DefaultInputLengthRestrictions()
	if cfg.Restrictions != nil {
		restrictions = *cfg.Restrictions
	}

	return &Validator{
		clients:      cfg.Clients,
		resources:    cfg.Resources,
		redirects:    cfg.RedirectURIs,
		sessions:     cfg.Sessions,
		pushed:       cfg.PushedRequests,
		custom:       cfg.Custom,
		usage:        cfg.Usage,
		restrictions: restrictions,
		logger:       cfg.Logger,
	}, nil
}

// Validate runs the full pipeline over the raw authorize parameters. A nil
// subject models an anonymous caller. Protocol failures come back inside
// the Result; the error return is reserved for infrastructure faults.
func (v *Validator) Validate(ctx context.Context, parameters url.Values, subject *Subject) (Result, error) {
	request := &Request{
		Raw:         cloneValues(parameters),
		RequestType: RequestTypeAuthorize,
		Subject:     subject,
	}

	stages := []func(context.Context, *Request) (Result, error){
		v.loadClient,
		v.loadRequestObject,
		v.validateClient,
		v.validateCoreParameters,
		v.validateScopeAndResources,
		v.validateOptionalParameters,
		v.runCustomValidator,
	}
	for _, stage := range stages {
		result, err := stage(ctx, request)
		if err != nil {
			return Result{}, err
		}
		if result.IsError() {
			return result, nil
		}
	}

	if v.usage != nil {
		v.usage.Track(ctx, request)
	}

	return Result{Request: request}, nil
}

func (v *Validator) loadClient(ctx context.Context, request *Request) (Result, error) {
	clientID := request.Raw.Get(oidc.ParamClientID)
	if clientID == "" || len(clientID) > v.restrictions.ClientID {
		v.logger.V(1).Info("client_id is missing or too long")
		return invalid(request, errors.CodeInvalidRequest, "Invalid client_id"), nil
	}
	request.ClientID = clientID

	c, err := v.clients.FindEnabledClientByID(ctx, clientID)
	if err != nil {
		return Result{}, err
	}
	if c == nil {
		v.logger.V(1).Info("unknown client or client not enabled", "client_id", clientID)
		return invalid(request, errors.CodeUnauthorizedClient, "Unknown client or client not enabled"), nil
	}
	request.Client = c

	return Result{Request: request}, nil
}

func (v *Validator) validateClient(ctx context.Context, request *Request) (Result, error) {
	if request.Client.RequireRequestObject && request.RequestObject == "" && request.RequestType != RequestTypeAuthorizeWithPushedParameters {
		return invalid(request, errors.CodeInvalidRequest, "Client must use request object, but no request or request_uri parameter present"), nil
	}

	redirectURI := request.Raw.Get(oidc.ParamRedirectURI)
	if redirectURI == "" || len(redirectURI) > v.restrictions.RedirectURI {
		v.logger.V(1).Info("redirect_uri is missing or too long", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid redirect_uri"), nil
	}
	if parsed, err := url.Parse(redirectURI); err != nil || !parsed.IsAbs() {
		v.logger.V(1).Info("redirect_uri is not a valid absolute uri", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid redirect_uri"), nil
	}

	if !request.Client.IsOpenIDConnect() {
		v.logger.V(1).Info("client is not configured for the oidc protocol", "client_id", request.ClientID)
		return invalid(request, errors.CodeUnauthorizedClient, "Invalid protocol"), nil
	}

	valid, err := v.redirects.IsRedirectURIValid(ctx, redirectURI, request.Client)
	if err != nil {
		return Result{}, err
	}
	if !valid {
		v.logger.V(1).Info("redirect_uri not registered for client", "client_id", request.ClientID, "redirect_uri", redirectURI)
		return invalid(request, errors.CodeInvalidRequest, "Invalid redirect_uri"), nil
	}
	request.RedirectURI = redirectURI

	return Result{Request: request}, nil
}

func (v *Validator) validateCoreParameters(_ context.Context, request *Request) (Result, error) {
	request.State = request.Raw.Get(oidc.ParamState)

	responseType := request.Raw.Get(oidc.ParamResponseType)
	if responseType == "" {
		v.logger.V(1).Info("response_type is missing", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Missing response_type"), nil
	}

	normalized, supported := oidc.NormalizeResponseType(responseType)
	if !supported {
		v.logger.V(1).Info("response_type not supported", "client_id", request.ClientID, "response_type", responseType)
		return invalid(request, errors.CodeUnsupportedResponseType, "Response type not supported"), nil
	}
	request.ResponseType = normalized

	grantType := oidc.ResponseTypeToGrantType[normalized]
	if !slices.Contains(oidc.AllowedGrantTypesForAuthorizeEndpoint, grantType) {
		return invalid(request, errors.CodeUnauthorizedClient, "Invalid response_type"), nil
	}
	request.GrantType = grantType

	// The flow's first allowed response mode is its default.
	allowedModes := oidc.AllowedResponseModesForGrantType[grantType]
	request.ResponseMode = allowedModes[0]
	if responseMode := request.Raw.Get(oidc.ParamResponseMode); responseMode != "" {
		if !slices.Contains(oidc.SupportedResponseModes, responseMode) {
			v.logger.V(1).Info("response_mode not supported", "client_id", request.ClientID, "response_mode", responseMode)
			return invalid(request, errors.CodeUnsupportedResponseType, "Invalid response_mode"), nil
		}
		if !slices.Contains(allowedModes, responseMode) {
			v.logger.V(1).Info("response_mode not valid for flow", "client_id", request.ClientID, "response_mode", responseMode)
			return invalid(request, errors.CodeInvalidRequest, "Invalid response_mode for response_type"), nil
		}
		request.ResponseMode = responseMode
	}

	if !request.Client.AllowsGrantType(grantType) {
		v.logger.V(1).Info("grant type not allowed for client", "client_id", request.ClientID, "grant_type", grantType)
		return invalid(request, errors.CodeUnauthorizedClient, "Invalid grant type for client"), nil
	}

	if request.AccessTokenRequested() && !request.Client.AllowAccessTokensViaBrowser {
		v.logger.V(1).Info("client requested access token via browser but is not configured for it", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Client not configured to receive access tokens via browser"), nil
	}

	if request.CodeRequested() {
		if result := v.validateProofKeyParameters(request); result.IsError() {
			return result, nil
		}
	}

	return Result{Request: request}, nil
}

func (v *Validator) validateProofKeyParameters(request *Request) Result {
	codeChallenge := request.Raw.Get(oidc.ParamCodeChallenge)
	if codeChallenge == "" {
		if request.Client.RequirePKCE {
			v.logger.V(1).Info("code_challenge is missing", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "code challenge required")
		}
		return Result{Request: request}
	}

	if len(codeChallenge) < v.restrictions.CodeChallengeMinLength || len(codeChallenge) > v.restrictions.CodeChallengeMaxLength {
		v.logger.V(1).Info("code_challenge is of invalid length", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid code_challenge")
	}

	method := request.Raw.Get(oidc.ParamCodeChallengeMethod)
	if method == "" {
		method = oidc.CodeChallengeMethodPlain
	}
	if !slices.Contains(oidc.SupportedCodeChallengeMethods, method) {
		v.logger.V(1).Info("code_challenge_method not supported", "client_id", request.ClientID, "method", method)
		return invalid(request, errors.CodeInvalidRequest, "Transform algorithm not supported")
	}
	if method == oidc.CodeChallengeMethodPlain && !request.Client.AllowPlainTextPKCE {
		v.logger.V(1).Info("client does not allow plain text pkce", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Transform algorithm not supported")
	}

	request.CodeChallenge = codeChallenge
	request.CodeChallengeMethod = method
	return Result{Request: request}
}

func (v *Validator) validateScopeAndResources(ctx context.Context, request *Request) (Result, error) {
	scope := request.Raw.Get(oidc.ParamScope)
	if scope == "" || len(scope) > v.restrictions.Scope {
		v.logger.V(1).Info("scope is missing or too long", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid scope"), nil
	}

	request.RequestedScopes = oidc.DistinctSpaceDelimited(scope)
	request.IsOpenIDRequest = slices.Contains(request.RequestedScopes, oidc.ScopeOpenID)

	requirement := oidc.ResponseTypeToScopeRequirement[request.ResponseType]
	if !request.IsOpenIDRequest &&
		(requirement == oidc.ScopeRequirementIdentity || requirement == oidc.ScopeRequirementIdentityOnly) {
		v.logger.V(1).Info("response_type requires openid scope", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Missing openid scope"), nil
	}

	indicators := oidc.DistinctSpaceDelimited(strings.Join(request.Raw[oidc.ParamResource], " "))
	for _, indicator := range indicators {
		if len(indicator) > v.restrictions.ResourceIndicator {
			return invalid(request, errors.CodeInvalidTarget, "Resource indicator maximum length exceeded"), nil
		}
		parsed, err := url.Parse(indicator)
		if err != nil || !parsed.IsAbs() || parsed.Fragment != "" {
			v.logger.V(1).Info("resource indicator is not a valid uri", "client_id", request.ClientID, "resource", indicator)
			return invalid(request, errors.CodeInvalidTarget, "Invalid resource indicator format"), nil
		}
	}
	if len(indicators) > 0 && request.GrantType == oidc.GrantTypeImplicit {
		v.logger.V(1).Info("resource indicators not allowed for implicit grant", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidTarget, "Resource indicators not allowed for response_type 'token'."), nil
	}
	request.RequestedResourceIndicators = indicators

	resolved, err := v.resources.Validate(ctx, ResourceValidationRequest{
		Client:             request.Client,
		Scopes:             request.RequestedScopes,
		ResourceIndicators: indicators,
	})
	if err != nil {
		return Result{}, err
	}
	if len(resolved.InvalidResourceIndicators) > 0 {
		v.logger.V(1).Info("invalid resource indicators", "client_id", request.ClientID, "resources", resolved.InvalidResourceIndicators)
		return invalid(request, errors.CodeInvalidTarget, "Invalid resource indicator"), nil
	}
	if len(resolved.InvalidScopes) > 0 {
		v.logger.V(1).Info("invalid scopes", "client_id", request.ClientID, "scopes", resolved.InvalidScopes)
		return invalid(request, errors.CodeInvalidScope, "Invalid scope"), nil
	}
	request.ValidatedResources = resolved

	if len(resolved.IdentityScopes) > 0 && !request.IsOpenIDRequest {
		v.logger.V(1).Info("identity scopes requested without openid scope", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidScope, "Identity scopes requested, but openid scope is missing"), nil
	}

	switch requirement {
	case oidc.ScopeRequirementIdentity:
		if len(resolved.IdentityScopes) == 0 {
			v.logger.V(1).Info("response_type requires identity scopes", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidScope, "Invalid scope for response type"), nil
		}
	case oidc.ScopeRequirementIdentityOnly:
		if len(resolved.IdentityScopes) == 0 || len(resolved.APIScopes) > 0 {
			v.logger.V(1).Info("response_type requires identity scopes only", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidScope, "Invalid scope for response type"), nil
		}
	case oidc.ScopeRequirementResourceOnly:
		if len(resolved.IdentityScopes) > 0 || len(resolved.APIScopes) == 0 {
			v.logger.V(1).Info("response_type requires resource scopes only", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidScope, "Invalid scope for response type"), nil
		}
	}

	return Result{Request: request}, nil
}

func (v *Validator) validateOptionalParameters(ctx context.Context, request *Request) (Result, error) {
	nonce := request.Raw.Get(oidc.ParamNonce)
	if nonce != "" {
		if len(nonce) > v.restrictions.Nonce {
			v.logger.V(1).Info("nonce too long", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "Invalid nonce"), nil
		}
		request.Nonce = nonce
	} else if request.IDTokenRequested() {
		v.logger.V(1).Info("nonce required for response types delivering an id_token", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid nonce"), nil
	}

	original, result := v.parsePromptModes(request, request.Raw.Get(oidc.ParamPrompt))
	if result.IsError() {
		return result, nil
	}
	processed, result := v.parsePromptModes(request, request.Raw.Get(oidc.ParamProcessedPrompt))
	if result.IsError() {
		return result, nil
	}
	request.OriginalPromptModes = original
	request.ProcessedPromptModes = processed
	for _, mode := range original {
		if !slices.Contains(processed, mode) {
			request.PromptModes = append(request.PromptModes, mode)
		}
	}

	if uiLocales := request.Raw.Get(oidc.ParamUILocales); uiLocales != "" {
		if len(uiLocales) > v.restrictions.UILocale {
			v.logger.V(1).Info("ui_locales too long", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "Invalid ui_locales"), nil
		}
		request.UILocales = uiLocales
	}

	// Unsupported display values are ignored, not rejected.
	if display := request.Raw.Get(oidc.ParamDisplay); slices.Contains(oidc.SupportedDisplayModes, display) {
		request.DisplayMode = display
	}

	if maxAge := request.Raw.Get(oidc.ParamMaxAge); maxAge != "" {
		seconds, err := strconv.Atoi(maxAge)
		if err != nil || seconds < 0 {
			v.logger.V(1).Info("invalid max_age", "client_id", request.ClientID, "max_age", maxAge)
			return invalid(request, errors.CodeInvalidRequest, "Invalid max_age"), nil
		}
		request.MaxAge = &seconds
	}
	// A processed_max_age marks the max_age as already honored by the
	// interaction pipeline.
	if request.Raw.Get(oidc.ParamProcessedMaxAge) != "" {
		request.MaxAge = nil
	}

	if loginHint := request.Raw.Get(oidc.ParamLoginHint); loginHint != "" {
		if len(loginHint) > v.restrictions.LoginHint {
			v.logger.V(1).Info("login_hint too long", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "Invalid login_hint"), nil
		}
		request.LoginHint = loginHint
	}

	if acrValues := request.Raw.Get(oidc.ParamAcrValues); acrValues != "" {
		if len(acrValues) > v.restrictions.AcrValues {
			v.logger.V(1).Info("acr_values too long", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "Invalid acr_values"), nil
		}
		request.AcrValues = v.filterAcrValues(request, oidc.DistinctSpaceDelimited(acrValues))
	}

	if request.Subject != nil && request.Subject.Authenticated {
		sessionID, err := v.sessions.SessionID(ctx)
		if err != nil {
			return Result{}, err
		}
		request.SessionID = sessionID
	}

	if thumbprint := request.Raw.Get(oidc.ParamDPoPKeyThumbprint); thumbprint != "" {
		if len(thumbprint) > v.restrictions.DPoPKeyThumbprint {
			v.logger.V(1).Info("dpop_jkt too long", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "Invalid dpop_jkt"), nil
		}
		request.DPoPKeyThumbprint = thumbprint
	}

	return Result{Request: request}, nil
}

func (v *Validator) parsePromptModes(request *Request, prompt string) ([]string, Result) {
	if prompt == "" {
		return nil, Result{Request: request}
	}

	modes := oidc.DistinctSpaceDelimited(prompt)
	for _, mode := range modes {
		if !slices.Contains(oidc.SupportedPromptModes, mode) {
			v.logger.V(1).Info("unsupported prompt mode", "client_id", request.ClientID, "prompt", mode)
			return nil, invalid(request, errors.CodeInvalidRequest, "Unsupported prompt mode")
		}
	}
	// none and create are standalone modes.
	if len(modes) > 1 && (slices.Contains(modes, oidc.PromptNone) || slices.Contains(modes, oidc.PromptCreate)) {
		v.logger.V(1).Info("prompt none or create combined with other modes", "client_id", request.ClientID, "prompt", prompt)
		return nil, invalid(request, errors.CodeInvalidRequest, "Invalid prompt")
	}

	return modes, Result{Request: request}
}

// filterAcrValues strips idp hints the client is not allowed to use. A
// disallowed idp hint is dropped rather than rejected.
func (v *Validator) filterAcrValues(request *Request, values []string) []string {
	filtered := make([]string, 0, len(values))
	for _, value := range values {
		if idp, ok := strings.CutPrefix(value, idpAcrPrefix); ok && !request.Client.AllowsIdentityProvider(idp) {
			v.logger.V(1).Info("identity provider not allowed for client, ignoring hint", "client_id", request.ClientID, "idp", idp)
			continue
		}
		filtered = append(filtered, value)
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func (v *Validator) runCustomValidator(ctx context.Context, request *Request) (Result, error) {
	if v.custom == nil {
		return Result{Request: request}, nil
	}

	failure, err := v.custom.Validate(ctx, request)
	if err != nil {
		return Result{}, err
	}
	if failure != nil {
		return invalid(request, failure.Code, failure.Description), nil
	}

	return Result{Request: request}, nil
}
