package validation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/arcliffe/openidcore/pkg/errors"
	"github.com/arcliffe/openidcore/pkg/oidc"
	"github.com/arcliffe/openidcore/pkg/par"
)

// loadRequestObject resolves the request and request_uri parameters. A
// request_uri must be a pushed authorization reference; a request value is a
// by-value JWT request object. Either way the carried parameters replace or
// override the raw query, except client_id and response_type which must not
// change.
func (v *Validator) loadRequestObject(ctx context.Context, request *Request) (Result, error) {
	jwtRequest := request.Raw.Get(oidc.ParamRequest)
	requestURI := request.Raw.Get(oidc.ParamRequestURI)

	if jwtRequest != "" && requestURI != "" {
		v.logger.V(1).Info("both request and request_uri present", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Only one request parameter is allowed"), nil
	}

	if requestURI != "" {
		return v.loadPushedParameters(ctx, request, requestURI)
	}
	if jwtRequest != "" {
		return v.loadRequestObjectValue(request, jwtRequest)
	}

	return Result{Request: request}, nil
}

func (v *Validator) loadPushedParameters(ctx context.Context, request *Request, requestURI string) (Result, error) {
	if v.pushed == nil {
		v.logger.V(1).Info("request_uri present but pushed authorization is disabled", "client_id", request.ClientID)
		return invalid(request, errors.CodeRequestURINotSupported, "request_uri parameter not supported"), nil
	}
	if !strings.HasPrefix(requestURI, par.RequestURIPrefix) {
		return invalid(request, errors.CodeInvalidRequest, "invalid or reused PAR request uri"), nil
	}

	clientID, parameters, err := v.pushed.Read(ctx, requestURI)
	if err != nil {
		return Result{}, err
	}
	if parameters == nil {
		v.logger.V(1).Info("pushed authorization reference unknown, expired, or already consumed", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "invalid or reused PAR request uri"), nil
	}
	if clientID != request.ClientID {
		v.logger.V(1).Info("pushed authorization reference pushed by a different client", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "invalid client for pushed authorization request"), nil
	}

	raw := cloneValues(parameters)
	raw.Set(oidc.ParamClientID, request.ClientID)
	raw.Del(oidc.ParamRequestURI)

	request.Raw = raw
	request.RequestType = RequestTypeAuthorizeWithPushedParameters
	return Result{Request: request}, nil
}

func (v *Validator) loadRequestObjectValue(request *Request, jwtRequest string) (Result, error) {
	if len(jwtRequest) > v.restrictions.Jwt {
		v.logger.V(1).Info("request value is too long", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid request value"), nil
	}

	token, err := jwt.ParseInsecure([]byte(jwtRequest))
	if err != nil {
		v.logger.V(1).Info("failed to parse request object", "client_id", request.ClientID, "reason", err.Error())
		return invalid(request, errors.CodeInvalidRequest, "Invalid request object"), nil
	}

	values := url.Values{}
	for name, value := range token.PrivateClaims() {
		switch typed := value.(type) {
		case string:
			values.Set(name, typed)
		case float64:
			values.Set(name, fmt.Sprintf("%v", typed))
		}
	}

	// A request object must not nest another one, and must not try to
	// switch the client or response type established on the query.
	if values.Get(oidc.ParamRequest) != "" || values.Get(oidc.ParamRequestURI) != "" {
		return invalid(request, errors.CodeInvalidRequest, "Invalid JWT request"), nil
	}
	if id := values.Get(oidc.ParamClientID); id != "" && id != request.ClientID {
		v.logger.V(1).Info("client_id in request object does not match", "client_id", request.ClientID)
		return invalid(request, errors.CodeInvalidRequest, "Invalid JWT request"), nil
	}
	if rt := values.Get(oidc.ParamResponseType); rt != "" {
		if raw := request.Raw.Get(oidc.ParamResponseType); raw != "" && !oidc.ResponseTypesEqual(raw, rt) {
			v.logger.V(1).Info("response_type in request object does not match", "client_id", request.ClientID)
			return invalid(request, errors.CodeInvalidRequest, "Invalid JWT request"), nil
		}
	}

	merged := cloneValues(request.Raw)
	for name := range values {
		merged.Set(name, values.Get(name))
	}
	merged.Set(oidc.ParamClientID, request.ClientID)
	merged.Del(oidc.ParamRequest)

	request.Raw = merged
	request.RequestObject = jwtRequest
	request.RequestObjectValues = values
	return Result{Request: request}, nil
}

func cloneValues(values url.Values) url.Values {
	cloned := make(url.Values, len(values))
	for name, entries := range values {
		cloned[name] = append([]string(nil), entries...)
	}
	return cloned
}
