package grants

import "time"

// AuthorizationCode is the payload behind an authorization-code handle.
type AuthorizationCode struct {
	ClientID            string    `json:"client_id"`
	SubjectID           string    `json:"subject_id"`
	SessionID           string    `json:"session_id,omitempty"`
	Description         string    `json:"description,omitempty"`
	CreationTime        time.Time `json:"creation_time"`
	Lifetime            int       `json:"lifetime"`
	IsOpenID            bool      `json:"is_openid,omitempty"`
	RequestedScopes     []string  `json:"requested_scopes"`
	RedirectURI         string    `json:"redirect_uri"`
	Nonce               string    `json:"nonce,omitempty"`
	StateHash           string    `json:"state_hash,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	DPoPKeyThumbprint   string    `json:"dpop_jkt,omitempty"`
}

// DeviceAuthorization is the payload behind device- and user-code handles.
type DeviceAuthorization struct {
	ClientID         string    `json:"client_id"`
	SubjectID        string    `json:"subject_id,omitempty"`
	SessionID        string    `json:"session_id,omitempty"`
	Description      string    `json:"description,omitempty"`
	CreationTime     time.Time `json:"creation_time"`
	Lifetime         int       `json:"lifetime"`
	IsOpenID         bool      `json:"is_openid,omitempty"`
	IsAuthorized     bool      `json:"is_authorized"`
	RequestedScopes  []string  `json:"requested_scopes"`
	AuthorizedScopes []string  `json:"authorized_scopes,omitempty"`

	// DeviceCode cross-reference, populated only on the user-code record.
	DeviceCode string `json:"device_code,omitempty"`
}

// BackchannelRequest is the payload behind a CIBA auth_req_id handle.
type BackchannelRequest struct {
	ClientID          string    `json:"client_id"`
	SubjectID         string    `json:"subject_id"`
	SessionID         string    `json:"session_id,omitempty"`
	Description       string    `json:"description,omitempty"`
	CreationTime      time.Time `json:"creation_time"`
	Lifetime          int       `json:"lifetime"`
	RequestedScopes   []string  `json:"requested_scopes"`
	AuthenticatedUser bool      `json:"authenticated_user"`
	BindingMessage    string    `json:"binding_message,omitempty"`
}

// RefreshToken is the payload behind a refresh-token handle.
type RefreshToken struct {
	ClientID         string    `json:"client_id"`
	SubjectID        string    `json:"subject_id"`
	SessionID        string    `json:"session_id,omitempty"`
	Description      string    `json:"description,omitempty"`
	CreationTime     time.Time `json:"creation_time"`
	Lifetime         int       `json:"lifetime"`
	AuthorizedScopes []string  `json:"authorized_scopes"`
	Version          int       `json:"version"`
}
