package validation

import "github.com/arcliffe/openidcore/pkg/errors"

// Result is the outcome of validating an authorize request. Protocol
// failures are carried here, not as Go errors; the validator only returns a
// Go error for infrastructure faults such as an unreachable client store.
type Result struct {
	Request *Request

	// Err is the OAuth2 error code, or "" on success.
	Err              errors.Code
	ErrorDescription string
}

// IsError reports whether validation failed on the protocol level.
func (r Result) IsError() bool {
	return r.Err != ""
}

func invalid(request *Request, code errors.Code, description string) Result {
	if code == "" {
		code = errors.CodeInvalidRequest
	}

	return Result{
		Request:          request,
		Err:              code,
		ErrorDescription: description,
	}
}
