package oidc

// Authorize request parameter names.
const (
	ParamClientID            = "client_id"
	ParamRedirectURI         = "redirect_uri"
	ParamResponseType        = "response_type"
	ParamResponseMode        = "response_mode"
	ParamScope               = "scope"
	ParamResource            = "resource"
	ParamState               = "state"
	ParamNonce               = "nonce"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
	ParamPrompt              = "prompt"
	ParamMaxAge              = "max_age"
	ParamLoginHint           = "login_hint"
	ParamUILocales           = "ui_locales"
	ParamAcrValues           = "acr_values"
	ParamDisplay             = "display"
	ParamRequest             = "request"
	ParamRequestURI          = "request_uri"
	ParamDPoPKeyThumbprint   = "dpop_jkt"

	// ParamProcessedPrompt and ParamProcessedMaxAge are internal parameters
	// carried on redirects back into the authorize endpoint after user
	// interaction, marking values the interaction pipeline already honored.
	ParamProcessedPrompt = "processed_prompt"
	ParamProcessedMaxAge = "processed_max_age"
)

// Response types.
const (
	ResponseTypeCode             = "code"
	ResponseTypeToken            = "token"
	ResponseTypeIDToken          = "id_token"
	ResponseTypeIDTokenToken     = "id_token token"
	ResponseTypeCodeIDToken      = "code id_token"
	ResponseTypeCodeToken        = "code token"
	ResponseTypeCodeIDTokenToken = "code id_token token"
)

// Grant types.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeImplicit          = "implicit"
	GrantTypeHybrid            = "hybrid"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"
	GrantTypeCIBA              = "urn:openid:params:grant-type:ciba"
)

// Response modes.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
	ResponseModeFormPost = "form_post"
)

// Code challenge methods.
const (
	CodeChallengeMethodPlain = "plain"
	CodeChallengeMethodS256  = "S256"
)

// Prompt modes.
const (
	PromptNone          = "none"
	PromptLogin         = "login"
	PromptConsent       = "consent"
	PromptSelectAccount = "select_account"
	PromptCreate        = "create"
)

// Display modes.
const (
	DisplayPage  = "page"
	DisplayPopup = "popup"
	DisplayTouch = "touch"
	DisplayWap   = "wap"
)

// Protocol types a client can be configured for.
const (
	ProtocolTypeOpenIDConnect = "oidc"
	ProtocolTypeWSFederation  = "wsfed"
	ProtocolTypeSAML2p        = "saml2p"
)

// ScopeOpenID flags a request as an OIDC request when present in scope.
const ScopeOpenID = "openid"

// ScopeRequirement classifies which kinds of scopes a response type demands.
type ScopeRequirement int

const (
	ScopeRequirementNone ScopeRequirement = iota
	ScopeRequirementIdentity
	ScopeRequirementIdentityOnly
	ScopeRequirementResourceOnly
)

// SupportedResponseTypes lists response types in their conventional spelling.
// Inbound values are compared order-insensitively and normalized to these.
var SupportedResponseTypes = []string{
	ResponseTypeCode,
	ResponseTypeToken,
	ResponseTypeIDToken,
	ResponseTypeIDTokenToken,
	ResponseTypeCodeIDToken,
	ResponseTypeCodeToken,
	ResponseTypeCodeIDTokenToken,
}

var ResponseTypeToGrantType = map[string]string{
	ResponseTypeCode:             GrantTypeAuthorizationCode,
	ResponseTypeToken:            GrantTypeImplicit,
	ResponseTypeIDToken:          GrantTypeImplicit,
	ResponseTypeIDTokenToken:     GrantTypeImplicit,
	ResponseTypeCodeIDToken:      GrantTypeHybrid,
	ResponseTypeCodeToken:        GrantTypeHybrid,
	ResponseTypeCodeIDTokenToken: GrantTypeHybrid,
}

var ResponseTypeToScopeRequirement = map[string]ScopeRequirement{
	ResponseTypeCode:             ScopeRequirementNone,
	ResponseTypeToken:            ScopeRequirementResourceOnly,
	ResponseTypeIDToken:          ScopeRequirementIdentityOnly,
	ResponseTypeIDTokenToken:     ScopeRequirementIdentity,
	ResponseTypeCodeIDToken:      ScopeRequirementIdentity,
	ResponseTypeCodeToken:        ScopeRequirementIdentity,
	ResponseTypeCodeIDTokenToken: ScopeRequirementIdentity,
}

var AllowedGrantTypesForAuthorizeEndpoint = []string{
	GrantTypeAuthorizationCode,
	GrantTypeImplicit,
	GrantTypeHybrid,
}

// AllowedResponseModesForGrantType maps each authorize-capable grant type to
// its valid response modes; the first entry is the default for the flow.
var AllowedResponseModesForGrantType = map[string][]string{
	GrantTypeAuthorizationCode: {ResponseModeQuery, ResponseModeFragment, ResponseModeFormPost},
	GrantTypeImplicit:          {ResponseModeFragment, ResponseModeFormPost},
	GrantTypeHybrid:            {ResponseModeFragment, ResponseModeFormPost},
}

var SupportedResponseModes = []string{
	ResponseModeQuery,
	ResponseModeFragment,
	ResponseModeFormPost,
}

var SupportedCodeChallengeMethods = []string{
	CodeChallengeMethodPlain,
	CodeChallengeMethodS256,
}

var SupportedPromptModes = []string{
	PromptNone,
	PromptLogin,
	PromptConsent,
	PromptSelectAccount,
	PromptCreate,
}

var SupportedDisplayModes = []string{
	DisplayPage,
	DisplayPopup,
	DisplayTouch,
	DisplayWap,
}
