package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/replay"
)

const defaultKeyPrefix = "openidcore:replay:"

var ErrInvalidEntry = errors.New("redis replay cache: purpose and handle are required")

type Config struct {
	Address     string
	Username    string
	Password    string
	Database    int
	KeyPrefix   string
	DialTimeout time.Duration
}

// Adapter is a replay cache over a shared redis instance so that replay
// detection holds across server processes.
type Adapter struct {
	client    redis.UniversalClient
	clock     clock.Clock
	keyPrefix string
}

var _ replay.Cache = (*Adapter)(nil)

func NewAdapter(config Config, clk clock.Clock) *Adapter {
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Address,
		Username:    config.Username,
		Password:    config.Password,
		DB:          config.Database,
		DialTimeout: config.DialTimeout,
	})

	return NewAdapterWithClient(client, config.KeyPrefix, clk)
}

// NewAdapterWithClient wires a pre-configured client. Useful for tests with
// miniredis and for callers sharing one client across adapters.
func NewAdapterWithClient(client redis.UniversalClient, keyPrefix string, clk clock.Clock) *Adapter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if clk == nil {
		clk = clock.System()
	}

	return &Adapter{
		client:    client,
		clock:     clk,
		keyPrefix: keyPrefix,
	}
}

func (a *Adapter) Add(ctx context.Context, purpose string, handle string, expiration time.Time) error {
	if purpose == "" || handle == "" {
		return ErrInvalidEntry
	}

	ttl := expiration.Sub(a.clock.Now())
	if ttl <= 0 {
		// Already expired; nothing worth recording.
		return nil
	}

	return a.client.Set(ctx, a.keyPrefix+purpose+handle, "", ttl).Err()
}

func (a *Adapter) Exists(ctx context.Context, purpose string, handle string) (bool, error) {
	n, err := a.client.Exists(ctx, a.keyPrefix+purpose+handle).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}
