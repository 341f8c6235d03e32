package keymgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

const defaultRedisCacheKey = "openidcore:signing-keys"

// RedisStoreCacheConfig configures the shared key cache.
type RedisStoreCacheConfig struct {
	Address     string
	Username    string
	Password    string
	Database    int
	CacheKey    string
	DialTimeout time.Duration
}

// RedisStoreCache shares the key snapshot across server processes. Entries
// hold the protected serialized form, so key material stays encrypted at
// rest in redis; a snapshot that fails to decode is treated as a miss.
type RedisStoreCache struct {
	client    redis.UniversalClient
	protector Protector
	cacheKey  string
	logger    logr.Logger
}

var _ StoreCache = (*RedisStoreCache)(nil)

func NewRedisStoreCache(config RedisStoreCacheConfig, protector Protector, logger logr.Logger) *RedisStoreCache {
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

	return NewRedisStoreCacheWithClient(client, config.CacheKey, protector, logger)
}

// NewRedisStoreCacheWithClient wires a pre-configured client. Useful for
// tests with miniredis and for callers sharing one client across adapters.
func NewRedisStoreCacheWithClient(client redis.UniversalClient, cacheKey string, protector Protector, logger logr.Logger) *RedisStoreCache {
	if cacheKey == "" {
		cacheKey = defaultRedisCacheKey
	}

	return &RedisStoreCache{
		client:    client,
		protector: protector,
		cacheKey:  cacheKey,
		logger:    logger,
	}
}

func (c *RedisStoreCache) GetKeys(ctx context.Context) ([]KeyContainer, error) {
	data, err := c.client.Get(ctx, c.cacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var serialized []SerializedKey
	if err := json.Unmarshal(data, &serialized); err != nil {
		c.logger.Error(err, "failed to decode cached key snapshot, treating as miss")
		return nil, nil
	}

	keys := make([]KeyContainer, 0, len(serialized))
	for _, entry := range serialized {
		container, err := deserializeKey(entry, c.protector)
		if err != nil {
			c.logger.Error(err, "failed to deserialize cached key, treating snapshot as miss", "id", entry.ID)
			return nil, nil
		}
		keys = append(keys, container)
	}

	return keys, nil
}

func (c *RedisStoreCache) StoreKeys(ctx context.Context, keys []KeyContainer, duration time.Duration) error {
	serialized := make([]SerializedKey, 0, len(keys))
	for _, container := range keys {
		entry, err := serializeKey(container, c.protector)
		if err != nil {
			return err
		}
		serialized = append(serialized, entry)
	}

	data, err := json.Marshal(serialized)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.cacheKey, data, duration).Err()
}

func (c *RedisStoreCache) Close() error {
	return c.client.Close()
}
