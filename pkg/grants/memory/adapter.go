package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/grants"
)

// Adapter is an in-process persisted grant store. Expired grants are dropped
// on read; Sweep removes them eagerly.
type Adapter struct {
	mu    sync.RWMutex
	byKey map[string]grants.PersistedGrant
	clock clock.Clock
}

var _ grants.PersistedGrantStore = (*Adapter)(nil)

func NewAdapter(clk clock.Clock) *Adapter {
	if clk == nil {
		clk = clock.System()
	}
	return &Adapter{
		byKey: make(map[string]grants.PersistedGrant),
		clock: clk,
	}
}

func (a *Adapter) Store(_ context.Context, grant grants.PersistedGrant) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.byKey[grant.Key] = grant
	return nil
}

func (a *Adapter) Get(_ context.Context, key string) (*grants.PersistedGrant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	grant, ok := a.byKey[key]
	if !ok {
		return nil, nil
	}

	if a.expired(grant) {
		delete(a.byKey, key)
		return nil, nil
	}

	return &grant, nil
}

func (a *Adapter) Remove(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.byKey, key)
	return nil
}

func (a *Adapter) GetAll(_ context.Context, filter grants.Filter) ([]grants.PersistedGrant, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []grants.PersistedGrant
	for _, grant := range a.byKey {
		if a.expired(grant) {
			continue
		}
		if matches(grant, filter) {
			out = append(out, grant)
		}
	}

	return out, nil
}

func (a *Adapter) RemoveAll(_ context.Context, filter grants.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for key, grant := range a.byKey {
		if matches(grant, filter) {
			delete(a.byKey, key)
		}
	}

	return nil
}

// Sweep drops every expired grant and reports how many were removed.
func (a *Adapter) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for key, grant := range a.byKey {
		if a.expired(grant) {
			delete(a.byKey, key)
			removed++
		}
	}

	return removed
}

func (a *Adapter) expired(grant grants.PersistedGrant) bool {
	return grant.Expiration != nil && !grant.Expiration.After(a.clock.Now())
}

func matches(grant grants.PersistedGrant, filter grants.Filter) bool {
	if filter.SubjectID != "" && grant.SubjectID != filter.SubjectID {
		return false
	}
	if filter.ClientID != "" && grant.ClientID != filter.ClientID {
		return false
	}
	if filter.SessionID != "" && grant.SessionID != filter.SessionID {
		return false
	}
	if len(filter.Types) > 0 && !slices.Contains(filter.Types, grant.Type) {
		return false
	}
	return true
}
