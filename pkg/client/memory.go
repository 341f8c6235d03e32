package client

import (
	"context"
	"errors"
	"sync"
)

var ErrDuplicateClientID = errors.New("client store: duplicate client id")

// MemoryStore is a configuration-as-code client store. Writes happen at
// startup; reads are concurrent.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(clients ...*Client) (*MemoryStore, error) {
	store := &MemoryStore{
		clients: map[string]*Client{},
	}

	for _, c := range clients {
		if err := store.Add(c); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func (s *MemoryStore) Add(c *Client) error {
	if c == nil || c.ID == "" {
		return errors.New("client store: client id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[c.ID]; exists {
		return ErrDuplicateClientID
	}

	s.clients[c.ID] = c
	return nil
}

func (s *MemoryStore) FindEnabledClientByID(ctx context.Context, clientID string) (*Client, error) {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()

	if !ok || !c.Enabled {
		return nil, nil
	}

	clone := *c
	return &clone, nil
}
