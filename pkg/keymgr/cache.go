package keymgr

import (
	"context"
	"sync"
	"time"

	"github.com/arcliffe/openidcore/pkg/clock"
)

// StoreCache is the short-lived cache in front of the durable key store.
// GetKeys returns nil on a miss; the manager treats nil and empty alike and
// falls through to the store.
type StoreCache interface {
	GetKeys(ctx context.Context) ([]KeyContainer, error)
	StoreKeys(ctx context.Context, keys []KeyContainer, duration time.Duration) error
}

// MemoryStoreCache holds one snapshot of deserialized keys with an absolute
// expiration. Expected to be shared process-wide.
type MemoryStoreCache struct {
	mu      sync.Mutex
	expires time.Time
	keys    []KeyContainer
	clock   clock.Clock
}

var _ StoreCache = (*MemoryStoreCache)(nil)

func NewMemoryStoreCache(clk clock.Clock) *MemoryStoreCache {
	if clk == nil {
		clk = clock.System()
	}
	return &MemoryStoreCache{clock: clk}
}

func (c *MemoryStoreCache) GetKeys(_ context.Context) ([]KeyContainer, error) {
	c.mu.Lock()
	expires, keys := c.expires, c.keys
	c.mu.Unlock()

	if keys != nil && !expires.Before(c.clock.Now()) {
		return keys, nil
	}

	return nil, nil
}

func (c *MemoryStoreCache) StoreKeys(_ context.Context, keys []KeyContainer, duration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expires = c.clock.Now().Add(duration)
	c.keys = keys
	return nil
}
