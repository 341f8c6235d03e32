package grants

import (
	"context"
	"errors"
	"time"
)

// Persisted grant type tags.
const (
	TypeAuthorizationCode   = "authorization_code"
	TypeDeviceCode          = "device_code"
	TypeUserCode            = "user_code"
	TypeBackchannelRequest  = "backchannel_authentication_request"
	TypeRefreshToken        = "refresh_token"
	TypePushedAuthorization = "pushed_authorization_request"
)

// PersistedGrant is the durable record for an opaque single- or
// limited-use protocol artifact. Data is an opaque serialized payload; the
// store never interprets it.
type PersistedGrant struct {
	Key          string
	Type         string
	SubjectID    string
	ClientID     string
	SessionID    string
	Description  string
	CreationTime time.Time
	Expiration   *time.Time
	ConsumedTime *time.Time
	Data         string
}

// Filter selects grants by any combination of subject, client, session and
// type tags. At least one field must be set.
type Filter struct {
	SubjectID string
	ClientID  string
	SessionID string
	Types     []string
}

var ErrEmptyFilter = errors.New("grants: filter requires at least one of subject, client, or session")

func (f Filter) Validate() error {
	if f.SubjectID == "" && f.ClientID == "" && f.SessionID == "" {
		return ErrEmptyFilter
	}
	return nil
}

// PersistedGrantStore is the durable key/value store for grants.
type PersistedGrantStore interface {
	Store(ctx context.Context, grant PersistedGrant) error
	Get(ctx context.Context, key string) (*PersistedGrant, error)
	Remove(ctx context.Context, key string) error
	GetAll(ctx context.Context, filter Filter) ([]PersistedGrant, error)
	RemoveAll(ctx context.Context, filter Filter) error
}
