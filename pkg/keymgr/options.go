package keymgr

import (
	"fmt"
	"time"

	"github.com/arcliffe/openidcore/pkg/errors"
)

// SigningAlgorithm configures one signing algorithm the server mints keys
// for. UseX509Certificate selects certificate-backed containers over raw
// keys.
type SigningAlgorithm struct {
	Name               string
	UseX509Certificate bool
}

// Options is the timing model for key rotation. A key is usable for
// verification the moment it exists, usable for signing only once it is
// older than PropagationTime, stops signing after RotationInterval, and is
// dropped entirely after RetirementAge (RotationInterval + RetentionDuration).
type Options struct {
	// SigningAlgorithms lists the algorithms keys are created for. The
	// first entry is the default.
	SigningAlgorithms []SigningAlgorithm

	// PropagationTime is how long a new key must exist before any instance
	// signs with it, so other instances and relying parties can learn about
	// it first.
	PropagationTime time.Duration

	// RotationInterval is how long a key remains eligible to sign.
	RotationInterval time.Duration

	// RetentionDuration is how long an expired key is still published for
	// verification before retirement.
	RetentionDuration time.Duration

	// InitializationDuration is the cold-start window. While every known
	// key is younger than this, instances behave more cautiously to avoid
	// racing each other into creating duplicate keys.
	InitializationDuration time.Duration

	// InitializationSynchronizationDelay is slept before creating a key
	// during the cold-start window, giving other instances time to persist
	// theirs first.
	InitializationSynchronizationDelay time.Duration

	// InitializationKeyCacheDuration is the cache lifetime used while all
	// keys are inside the cold-start window.
	InitializationKeyCacheDuration time.Duration

	// KeyCacheDuration is the steady-state cache lifetime.
	KeyCacheDuration time.Duration

	// DeleteRetiredKeys removes retired keys from the store as a side
	// effect of loading.
	DeleteRetiredKeys bool

	// RSAKeySize is the modulus size for new RSA keys.
	RSAKeySize int

	// KeyPath is the directory used by the filesystem key store.
	KeyPath string
}

// DefaultOptions returns the production timing defaults: two weeks of
// propagation, ninety days of rotation, two weeks of retention.
func DefaultOptions() Options {
	return Options{
		SigningAlgorithms:                  []SigningAlgorithm{{Name: AlgorithmRS256}},
		PropagationTime:                    14 * 24 * time.Hour,
		RotationInterval:                   90 * 24 * time.Hour,
		RetentionDuration:                  14 * 24 * time.Hour,
		InitializationDuration:             5 * time.Minute,
		InitializationSynchronizationDelay: 5 * time.Second,
		InitializationKeyCacheDuration:     1 * time.Minute,
		KeyCacheDuration:                   24 * time.Hour,
		DeleteRetiredKeys:                  true,
		RSAKeySize:                         2048,
	}
}

// RetirementAge is the age past which a key is removed from circulation
// entirely.
func (o Options) RetirementAge() time.Duration {
	return o.RotationInterval + o.RetentionDuration
}

// Validate fails fast on a broken timing model. Construction rejects these
// instead of surfacing them at request time.
func (o Options) Validate() error {
	if len(o.SigningAlgorithms) == 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: at least one signing algorithm is required")
	}
	for _, alg := range o.SigningAlgorithms {
		if alg.Name == "" {
			return errors.New(errors.CodeInvalidConfig, "keymgr: signing algorithm name must not be empty")
		}
	}
	if o.PropagationTime <= 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: propagation time must be greater than zero")
	}
	if o.RotationInterval <= 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: rotation interval must be greater than zero")
	}
	if o.RotationInterval <= o.PropagationTime {
		return errors.New(errors.CodeInvalidConfig,
			fmt.Sprintf("keymgr: rotation interval %s must be longer than propagation time %s", o.RotationInterval, o.PropagationTime))
	}
	if o.RetentionDuration < 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: retention duration must not be negative")
	}
	if o.InitializationDuration < 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: initialization duration must not be negative")
	}
	if o.InitializationSynchronizationDelay < 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: initialization synchronization delay must not be negative")
	}
	if o.InitializationKeyCacheDuration < 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: initialization key cache duration must not be negative")
	}
	if o.KeyCacheDuration < 0 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: key cache duration must not be negative")
	}
	if o.RSAKeySize != 0 && o.RSAKeySize < 2048 {
		return errors.New(errors.CodeInvalidConfig, "keymgr: rsa key size must be at least 2048 bits")
	}
	return nil
}
