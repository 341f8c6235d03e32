package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/replay"
)

var ErrInvalidEntry = errors.New("memory replay cache: purpose and handle are required")

// Adapter is an in-process replay cache. Expired entries are dropped on
// read; Sweep can be called to reclaim memory eagerly.
type Adapter struct {
	clock clock.Clock

	mu      sync.RWMutex
	entries map[string]time.Time
}

var _ replay.Cache = (*Adapter)(nil)

func NewAdapter(clk clock.Clock) *Adapter {
	if clk == nil {
		clk = clock.System()
	}

	return &Adapter{
		clock:   clk,
		entries: map[string]time.Time{},
	}
}

func (a *Adapter) Add(ctx context.Context, purpose string, handle string, expiration time.Time) error {
	if purpose == "" || handle == "" {
		return ErrInvalidEntry
	}

	a.mu.Lock()
	a.entries[purpose+handle] = expiration
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Exists(ctx context.Context, purpose string, handle string) (bool, error) {
	key := purpose + handle
	now := a.clock.Now()

	a.mu.RLock()
	expiration, ok := a.entries[key]
	a.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if now.After(expiration) {
		a.mu.Lock()
		delete(a.entries, key)
		a.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Sweep removes all expired entries.
func (a *Adapter) Sweep() {
	now := a.clock.Now()

	a.mu.Lock()
	for key, expiration := range a.entries {
		if now.After(expiration) {
			delete(a.entries, key)
		}
	}
	a.mu.Unlock()
}
