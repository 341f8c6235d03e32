package validation

// InputLengthRestrictions bounds inbound parameter lengths before any of
// them reach storage or logs.
type InputLengthRestrictions struct {
	ClientID               int
	Scope                  int
	RedirectURI            int
	Nonce                  int
	UILocale               int
	LoginHint              int
	AcrValues              int
	CodeChallengeMinLength int
	CodeChallengeMaxLength int
	Jwt                    int
	ResourceIndicator      int
	DPoPKeyThumbprint      int
}

// DefaultInputLengthRestrictions returns the default parameter bounds.
func DefaultInputLengthRestrictions() InputLengthRestrictions {
	return InputLengthRestrictions{
		ClientID:               100,
		Scope:                  300,
		RedirectURI:            400,
		Nonce:                  300,
		UILocale:               100,
		LoginHint:              100,
		AcrValues:              300,
		CodeChallengeMinLength: 43,
		CodeChallengeMaxLength: 128,
		Jwt:                    51200,
		ResourceIndicator:      512,
		DPoPKeyThumbprint:      100,
	}
}
