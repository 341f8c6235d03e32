package grants

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/handle"
)

// Metadata carries the indexable fields stored alongside a grant payload.
type Metadata struct {
	ClientID    string
	SubjectID   string
	SessionID   string
	Description string
	Created     time.Time
	Lifetime    time.Duration
}

// TypedStore persists items of one grant type behind opaque handles. The
// handle returned to the caller is never stored directly; the persisted key
// is a hash of handle and type, so a leaked store cannot be replayed against
// the front channel.
type TypedStore[T any] struct {
	grantType  string
	store      PersistedGrantStore
	serializer Serializer
	handles    handle.Generator
	logger     logr.Logger
}

func NewTypedStore[T any](
	grantType string,
	store PersistedGrantStore,
	serializer Serializer,
	handles handle.Generator,
	logger logr.Logger,
) *TypedStore[T] {
	return &TypedStore[T]{
		grantType:  grantType,
		store:      store,
		serializer: serializer,
		handles:    handles,
		logger:     logger,
	}
}

// hashedKey derives the persisted key for a handle. The type tag is mixed in
// so the same handle value cannot alias across grant types.
func (s *TypedStore[T]) hashedKey(handleValue string) string {
	sum := sha256.Sum256([]byte(handleValue + ":" + s.grantType))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Create stores the item under a freshly generated handle and returns the
// handle.
func (s *TypedStore[T]) Create(ctx context.Context, item T, meta Metadata) (string, error) {
	handleValue, err := s.handles.Generate()
	if err != nil {
		return "", err
	}

	if err := s.Put(ctx, handleValue, item, meta); err != nil {
		return "", err
	}

	return handleValue, nil
}

// Put stores the item under a caller-supplied handle.
func (s *TypedStore[T]) Put(ctx context.Context, handleValue string, item T, meta Metadata) error {
	data, err := s.serializer.Serialize(item)
	if err != nil {
		return err
	}

	expiration := meta.Created.Add(meta.Lifetime)

	return s.store.Store(ctx, PersistedGrant{
		Key:          s.hashedKey(handleValue),
		Type:         s.grantType,
		SubjectID:    meta.SubjectID,
		ClientID:     meta.ClientID,
		SessionID:    meta.SessionID,
		Description:  meta.Description,
		CreationTime: meta.Created,
		Expiration:   &expiration,
		Data:         data,
	})
}

// Get returns the item for the handle, or nil when unknown.
func (s *TypedStore[T]) Get(ctx context.Context, handleValue string) (*T, error) {
	grant, err := s.store.Get(ctx, s.hashedKey(handleValue))
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, nil
	}

	if grant.Type != s.grantType {
		s.logger.Info("grant found but type does not match", "expected", s.grantType, "actual", grant.Type)
		return nil, nil
	}

	var item T
	if err := s.serializer.Deserialize(grant.Data, &item); err != nil {
		s.logger.Error(err, "failed to deserialize grant payload", "type", s.grantType)
		return nil, nil
	}

	return &item, nil
}

// Remove deletes the item for the handle. Removing an unknown handle is not
// an error.
func (s *TypedStore[T]) Remove(ctx context.Context, handleValue string) error {
	return s.store.Remove(ctx, s.hashedKey(handleValue))
}
