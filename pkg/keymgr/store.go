package keymgr

import (
	"context"
	"sync"
)

// SigningKeyStore is durable persistence for serialized signing keys.
type SigningKeyStore interface {
	LoadKeys(ctx context.Context) ([]SerializedKey, error)
	StoreKey(ctx context.Context, key SerializedKey) error
	DeleteKey(ctx context.Context, id string) error
}

// InMemoryKeyStore keeps keys in process memory. Keys do not survive a
// restart, so every instance mints its own on boot.
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]SerializedKey
}

var _ SigningKeyStore = (*InMemoryKeyStore)(nil)

func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[string]SerializedKey)}
}

func (s *InMemoryKeyStore) LoadKeys(_ context.Context) ([]SerializedKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SerializedKey, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key)
	}
	return out, nil
}

func (s *InMemoryKeyStore) StoreKey(_ context.Context, key SerializedKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key.ID] = key
	return nil
}

func (s *InMemoryKeyStore) DeleteKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, id)
	return nil
}
