package grants

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/handle"
)

// Stores bundles the typed grant facades over one persisted grant store.
type Stores struct {
	AuthorizationCodes  *AuthorizationCodeStore
	DeviceFlow          *DeviceFlowStore
	BackchannelRequests *BackchannelRequestStore
	RefreshTokens       *RefreshTokenStore
}

func NewStores(store PersistedGrantStore, serializer Serializer, handles handle.Generator, logger logr.Logger) *Stores {
	return &Stores{
		AuthorizationCodes:  NewAuthorizationCodeStore(store, serializer, handles, logger),
		DeviceFlow:          NewDeviceFlowStore(store, serializer, handles, logger),
		BackchannelRequests: NewBackchannelRequestStore(store, serializer, handles, logger),
		RefreshTokens:       NewRefreshTokenStore(store, serializer, handles, logger),
	}
}

// AuthorizationCodeStore issues and redeems single-use authorization codes.
type AuthorizationCodeStore struct {
	inner *TypedStore[AuthorizationCode]
}

func NewAuthorizationCodeStore(store PersistedGrantStore, serializer Serializer, handles handle.Generator, logger logr.Logger) *AuthorizationCodeStore {
	return &AuthorizationCodeStore{
		inner: NewTypedStore[AuthorizationCode](TypeAuthorizationCode, store, serializer, handles, logger),
	}
}

func (s *AuthorizationCodeStore) Store(ctx context.Context, code AuthorizationCode) (string, error) {
	return s.inner.Create(ctx, code, Metadata{
		ClientID:    code.ClientID,
		SubjectID:   code.SubjectID,
		SessionID:   code.SessionID,
		Description: code.Description,
		Created:     code.CreationTime,
		Lifetime:    time.Duration(code.Lifetime) * time.Second,
	})
}

func (s *AuthorizationCodeStore) Get(ctx context.Context, code string) (*AuthorizationCode, error) {
	return s.inner.Get(ctx, code)
}

func (s *AuthorizationCodeStore) Remove(ctx context.Context, code string) error {
	return s.inner.Remove(ctx, code)
}

// DeviceFlowStore tracks device authorizations under both the device code
// (polled by the device) and the user code (entered by the user). The
// user-code record carries the device code so an approval can update the
// record the device is polling.
type DeviceFlowStore struct {
	byDeviceCode *TypedStore[DeviceAuthorization]
	byUserCode   *TypedStore[DeviceAuthorization]
}

func NewDeviceFlowStore(store PersistedGrantStore, serializer Serializer, handles handle.Generator, logger logr.Logger) *DeviceFlowStore {
	return &DeviceFlowStore{
		byDeviceCode: NewTypedStore[DeviceAuthorization](TypeDeviceCode, store, serializer, handles, logger),
		byUserCode:   NewTypedStore[DeviceAuthorization](TypeUserCode, store, serializer, handles, logger),
	}
}

func (s *DeviceFlowStore) Store(ctx context.Context, userCode string, auth DeviceAuthorization) (string, error) {
	meta := Metadata{
		ClientID:    auth.ClientID,
		SubjectID:   auth.SubjectID,
		SessionID:   auth.SessionID,
		Description: auth.Description,
		Created:     auth.CreationTime,
		Lifetime:    time.Duration(auth.Lifetime) * time.Second,
	}

	deviceCode, err := s.byDeviceCode.Create(ctx, auth, meta)
	if err != nil {
		return "", err
	}

	auth.DeviceCode = deviceCode
	if err := s.byUserCode.Put(ctx, userCode, auth, meta); err != nil {
		return "", err
	}

	return deviceCode, nil
}

func (s *DeviceFlowStore) FindByDeviceCode(ctx context.Context, deviceCode string) (*DeviceAuthorization, error) {
	return s.byDeviceCode.Get(ctx, deviceCode)
}

func (s *DeviceFlowStore) FindByUserCode(ctx context.Context, userCode string) (*DeviceAuthorization, error) {
	return s.byUserCode.Get(ctx, userCode)
}

// UpdateByUserCode rewrites the authorization after user approval or denial,
// updating the record the device is polling as well.
func (s *DeviceFlowStore) UpdateByUserCode(ctx context.Context, userCode string, auth DeviceAuthorization) error {
	existing, err := s.byUserCode.Get(ctx, userCode)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	auth.DeviceCode = existing.DeviceCode
	meta := Metadata{
		ClientID:    auth.ClientID,
		SubjectID:   auth.SubjectID,
		SessionID:   auth.SessionID,
		Description: auth.Description,
		Created:     auth.CreationTime,
		Lifetime:    time.Duration(auth.Lifetime) * time.Second,
	}

	if err := s.byUserCode.Put(ctx, userCode, auth, meta); err != nil {
		return err
	}
	return s.byDeviceCode.Put(ctx, existing.DeviceCode, auth, meta)
}

func (s *DeviceFlowStore) RemoveByDeviceCode(ctx context.Context, deviceCode string) error {
	return s.byDeviceCode.Remove(ctx, deviceCode)
}

// BackchannelRequestStore tracks CIBA login requests by auth_req_id.
type BackchannelRequestStore struct {
	inner *TypedStore[BackchannelRequest]
}

func NewBackchannelRequestStore(store PersistedGrantStore, serializer Serializer, handles handle.Generator, logger logr.Logger) *BackchannelRequestStore {
	return &BackchannelRequestStore{
		inner: NewTypedStore[BackchannelRequest](TypeBackchannelRequest, store, serializer, handles, logger),
	}
}

func (s *BackchannelRequestStore) Store(ctx context.Context, request BackchannelRequest) (string, error) {
	return s.inner.Create(ctx, request, Metadata{
		ClientID:    request.ClientID,
		SubjectID:   request.SubjectID,
		SessionID:   request.SessionID,
		Description: request.Description,
		Created:     request.CreationTime,
		Lifetime:    time.Duration(request.Lifetime) * time.Second,
	})
}

func (s *BackchannelRequestStore) Get(ctx context.Context, authReqID string) (*BackchannelRequest, error) {
	return s.inner.Get(ctx, authReqID)
}

func (s *BackchannelRequestStore) Update(ctx context.Context, authReqID string, request BackchannelRequest) error {
	return s.inner.Put(ctx, authReqID, request, Metadata{
		ClientID:    request.ClientID,
		SubjectID:   request.SubjectID,
		SessionID:   request.SessionID,
		Description: request.Description,
		Created:     request.CreationTime,
		Lifetime:    time.Duration(request.Lifetime) * time.Second,
	})
}

func (s *BackchannelRequestStore) Remove(ctx context.Context, authReqID string) error {
	return s.inner.Remove(ctx, authReqID)
}

// RefreshTokenStore tracks refresh tokens by handle.
type RefreshTokenStore struct {
	inner *TypedStore[RefreshToken]
}

func NewRefreshTokenStore(store PersistedGrantStore, serializer Serializer, handles handle.Generator, logger logr.Logger) *RefreshTokenStore {
	return &RefreshTokenStore{
		inner: NewTypedStore[RefreshToken](TypeRefreshToken, store, serializer, handles, logger),
	}
}

func (s *RefreshTokenStore) Store(ctx context.Context, token RefreshToken) (string, error) {
	return s.inner.Create(ctx, token, Metadata{
		ClientID:    token.ClientID,
		SubjectID:   token.SubjectID,
		SessionID:   token.SessionID,
		Description: token.Description,
		Created:     token.CreationTime,
		Lifetime:    time.Duration(token.Lifetime) * time.Second,
	})
}

func (s *RefreshTokenStore) Get(ctx context.Context, token string) (*RefreshToken, error) {
	return s.inner.Get(ctx, token)
}

func (s *RefreshTokenStore) Remove(ctx context.Context, token string) error {
	return s.inner.Remove(ctx, token)
}
