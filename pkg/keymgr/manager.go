package keymgr

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/errors"
)

// Manager decides which signing keys exist, which one is current, and when
// to mint new ones. Instances sharing only the durable store converge on
// the same current key through the timing model alone; the mutex here only
// stops one process from racing itself into duplicate keys. Cross-process
// duplicate creation is tolerated and resolved by oldest-eligible-wins.
type Manager struct {
	options   Options
	store     SigningKeyStore
	cache     StoreCache
	protector Protector
	clock     clock.Clock
	logger    logr.Logger

	newKeyMu sync.Mutex
}

func NewManager(
	options Options,
	store SigningKeyStore,
	cache StoreCache,
	protector Protector,
	clk clock.Clock,
	logger logr.Logger,
) (*Manager, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "keymgr: signing key store is required")
	}
	if cache == nil {
		cache = NewMemoryStoreCache(clk)
	}
	if protector == nil {
		protector = NewNopProtector()
	}
	if clk == nil {
		clk = clock.System()
	}

	return &Manager{
		options:   options,
		store:     store,
		cache:     cache,
		protector: protector,
		clock:     clk,
		logger:    logger,
	}, nil
}

// GetCurrentSigningKeys returns the keys currently eligible to sign, one
// per configured algorithm, creating and persisting keys when required.
func (m *Manager) GetCurrentSigningKeys(ctx context.Context) ([]KeyContainer, error) {
	_, signing, err := m.getAllKeysInternal(ctx)
	return signing, err
}

// GetCurrentSigningKey returns the signing key for the default (first
// configured) algorithm.
func (m *Manager) GetCurrentSigningKey(ctx context.Context) (KeyContainer, error) {
	signing, err := m.GetCurrentSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(signing) == 0 {
		return nil, errors.New(errors.CodeUnknown, "keymgr: no signing key available")
	}
	return signing[0], nil
}

// GetAllKeys returns every non-retired key, including keys still
// propagating and keys past rotation that remain published for
// verification.
func (m *Manager) GetAllKeys(ctx context.Context) ([]KeyContainer, error) {
	all, _, err := m.getAllKeysInternal(ctx)
	return all, err
}

func (m *Manager) getAllKeysInternal(ctx context.Context) ([]KeyContainer, []KeyContainer, error) {
	cached := true
	keys, err := m.cache.GetKeys(ctx)
	if err != nil {
		m.logger.Error(err, "key cache read failed, falling back to store")
		keys = nil
	}
	if len(keys) == 0 {
		cached = false
		keys, err = m.getKeysFromStore(ctx, true)
		if err != nil {
			return nil, nil, err
		}
	}

	signing := m.currentSigningKeys(keys)
	if len(signing) == len(m.options.SigningAlgorithms) {
		rotationRequired := m.isKeyRotationRequired(keys)
		if rotationRequired && cached {
			// The cached view may be stale; another instance may have
			// rotated already.
			keys, err = m.getKeysFromStore(ctx, true)
			if err != nil {
				return nil, nil, err
			}
			signing = m.currentSigningKeys(keys)
			rotationRequired = m.isKeyRotationRequired(keys)
		}
		if rotationRequired {
			return m.createNewKeysAndAddToCache(ctx)
		}
		return keys, signing, nil
	}

	if cached {
		keys, err = m.getKeysFromStore(ctx, true)
		if err != nil {
			return nil, nil, err
		}
		signing = m.currentSigningKeys(keys)
		if len(signing) == len(m.options.SigningAlgorithms) {
			if m.isKeyRotationRequired(keys) {
				return m.createNewKeysAndAddToCache(ctx)
			}
			return keys, signing, nil
		}
	}

	return m.createNewKeysAndAddToCache(ctx)
}

// getKeysFromStore loads, prunes and deserializes the durable key set.
// Corrupt records are deleted and skipped, never fatal.
func (m *Manager) getKeysFromStore(ctx context.Context, shouldCache bool) ([]KeyContainer, error) {
	serialized, err := m.store.LoadKeys(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to load signing keys", err)
	}

	live := m.filterAndDeleteRetiredKeys(ctx, serialized)

	keys := make([]KeyContainer, 0, len(live))
	for _, entry := range live {
		container, err := deserializeKey(entry, m.protector)
		if err != nil {
			m.logger.Error(err, "deleting signing key that could not be unprotected", "id", entry.ID)
			if derr := m.store.DeleteKey(ctx, entry.ID); derr != nil {
				m.logger.Error(derr, "failed to delete corrupt signing key", "id", entry.ID)
			}
			continue
		}
		keys = append(keys, container)
	}

	if shouldCache {
		m.cacheKeys(ctx, keys)
	}

	return keys, nil
}

// filterAndDeleteRetiredKeys drops keys past the retirement age and, when
// configured, removes them from the store as a side effect.
func (m *Manager) filterAndDeleteRetiredKeys(ctx context.Context, serialized []SerializedKey) []SerializedKey {
	cutoff := m.clock.Now().Add(-m.options.RetirementAge())

	var live []SerializedKey
	for _, entry := range serialized {
		if entry.ID == "" {
			continue
		}
		if !entry.Created.After(cutoff) {
			if m.options.DeleteRetiredKeys {
				m.logger.V(1).Info("deleting retired signing key", "id", entry.ID)
				if err := m.store.DeleteKey(ctx, entry.ID); err != nil {
					m.logger.Error(err, "failed to delete retired signing key", "id", entry.ID)
				}
			}
			continue
		}
		live = append(live, entry)
	}

	return live
}

func (m *Manager) cacheKeys(ctx context.Context, keys []KeyContainer) {
	if len(keys) == 0 {
		return
	}

	duration := m.options.KeyCacheDuration
	if m.allKeysWithinInitialization(keys) {
		// Cache briefly during cold start so new keys from other
		// instances are noticed quickly.
		duration = m.options.InitializationKeyCacheDuration
	}

	if err := m.cache.StoreKeys(ctx, keys, duration); err != nil {
		m.logger.Error(err, "failed to cache signing keys")
	}
}

// allKeysWithinInitialization reports whether every live key is younger
// than the initialization window. Retired and expired keys are ignored.
func (m *Manager) allKeysWithinInitialization(keys []KeyContainer) bool {
	now := m.clock.Now()
	for _, key := range keys {
		if key == nil {
			continue
		}
		age := now.Sub(key.Created())
		if age >= m.options.RotationInterval || age >= m.options.RetirementAge() {
			continue
		}
		if age > m.options.InitializationDuration {
			return false
		}
	}
	return true
}

// canBeUsedAsCurrentSigningKey applies the timing window: past propagation
// (unless ignored) and not past rotation.
func (m *Manager) canBeUsedAsCurrentSigningKey(key KeyContainer, ignorePropagation bool) bool {
	if key == nil {
		return false
	}

	age := m.clock.Now().Sub(key.Created())
	if age > m.options.RotationInterval {
		return false
	}
	if !ignorePropagation && age < m.options.PropagationTime {
		return false
	}
	return true
}

// currentSigningKeys picks the signing key for each configured algorithm.
// When no key has cleared propagation yet, the gate is waived rather than
// signing nothing at all.
func (m *Manager) currentSigningKeys(keys []KeyContainer) []KeyContainer {
	var signing []KeyContainer
	for _, alg := range m.options.SigningAlgorithms {
		key := m.currentSigningKey(keys, alg, false)
		if key == nil {
			key = m.currentSigningKey(keys, alg, true)
		}
		if key != nil {
			signing = append(signing, key)
		}
	}
	return signing
}

// currentSigningKey selects the oldest eligible key. Older keys have had
// the most time to propagate to relying parties, so the oldest wins over
// the newest; key-type preference only breaks exact creation-time ties.
func (m *Manager) currentSigningKey(keys []KeyContainer, alg SigningAlgorithm, ignorePropagation bool) KeyContainer {
	var best KeyContainer
	for _, key := range keys {
		if key == nil || key.Algorithm() != alg.Name {
			continue
		}
		if !m.canBeUsedAsCurrentSigningKey(key, ignorePropagation) {
			continue
		}
		if best == nil || key.Created().Before(best.Created()) {
			best = key
			continue
		}
		if key.Created().Equal(best.Created()) &&
			key.HasCertificate() == alg.UseX509Certificate &&
			best.HasCertificate() != alg.UseX509Certificate {
			best = key
		}
	}
	return best
}

// isKeyRotationRequired reports whether a new key must be minted: no live
// key at all, or the active key is within PropagationTime of expiring and
// no younger key will outlast that window.
func (m *Manager) isKeyRotationRequired(keys []KeyContainer) bool {
	now := m.clock.Now()

	var candidates []KeyContainer
	for _, key := range keys {
		if key == nil {
			continue
		}
		age := now.Sub(key.Created())
		if age >= m.options.RotationInterval || age >= m.options.RetirementAge() {
			continue
		}
		candidates = append(candidates, key)
	}
	if len(candidates) == 0 {
		return true
	}

	active := candidates[0]
	for _, key := range candidates[1:] {
		if key.Created().Before(active.Created()) {
			active = key
		}
	}

	timeUntilExpiry := m.options.RotationInterval - now.Sub(active.Created())
	if timeUntilExpiry > m.options.PropagationTime {
		return false
	}

	for _, key := range candidates {
		if key == active {
			continue
		}
		if m.options.RotationInterval-now.Sub(key.Created()) > m.options.PropagationTime {
			return false
		}
	}
	return true
}

// createNewKeysAndAddToCache mints one key per configured algorithm. During
// the cold-start window it first sleeps and re-reads the store, so that
// several instances booting together end up sharing one key instead of
// each minting their own.
func (m *Manager) createNewKeysAndAddToCache(ctx context.Context) ([]KeyContainer, []KeyContainer, error) {
	m.newKeyMu.Lock()
	defer m.newKeyMu.Unlock()

	keys, err := m.cache.GetKeys(ctx)
	if err != nil {
		m.logger.Error(err, "key cache read failed before key creation")
		keys = nil
	}

	if m.allKeysWithinInitialization(keys) {
		if delay := m.options.InitializationSynchronizationDelay; delay > 0 {
			m.logger.V(1).Info("delaying key creation for initialization synchronization", "delay", delay)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		keys, err = m.getKeysFromStore(ctx, false)
		if err != nil {
			return nil, nil, err
		}

		signing := m.currentSigningKeys(keys)
		if len(signing) == len(m.options.SigningAlgorithms) {
			m.cacheKeys(ctx, keys)
			return keys, signing, nil
		}
	}

	for _, alg := range m.options.SigningAlgorithms {
		container, err := m.createAndStoreNewKey(ctx, alg)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, container)
	}

	m.cacheKeys(ctx, keys)
	return keys, m.currentSigningKeys(keys), nil
}

func (m *Manager) createAndStoreNewKey(ctx context.Context, alg SigningAlgorithm) (KeyContainer, error) {
	size := m.options.RSAKeySize
	if size == 0 {
		size = 2048
	}

	private, err := rsa.GenerateKey(rand.Reader, size)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnknown, "keymgr: failed to generate rsa key", err)
	}

	now := m.clock.Now()
	var container KeyContainer
	if alg.UseX509Certificate {
		container, err = NewCertificateKey(private, alg.Name, now, m.options.RetirementAge())
		if err != nil {
			return nil, err
		}
	} else {
		container = NewRSAKey(private, alg.Name, now)
	}

	serialized, err := serializeKey(container, m.protector)
	if err != nil {
		return nil, err
	}

	if err := m.store.StoreKey(ctx, serialized); err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to store new signing key", err)
	}

	m.logger.V(1).Info("created new signing key", "id", container.ID(), "algorithm", alg.Name)
	return container, nil
}
