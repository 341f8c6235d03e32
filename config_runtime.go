package openidcore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/keymgr"
	replayredis "github.com/arcliffe/openidcore/pkg/replay/redis"
	"github.com/arcliffe/openidcore/pkg/storage/postgres"
)

type StorageBackend string

const (
	StorageBackendNone     StorageBackend = "none"
	StorageBackendPostgres StorageBackend = "postgres"
)

type KeyStoreBackend string

const (
	KeyStoreBackendNone       KeyStoreBackend = "none"
	KeyStoreBackendFileSystem KeyStoreBackend = "filesystem"
)

type CacheBackend string

const (
	CacheBackendNone   CacheBackend = "none"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

type RuntimeConfig struct {
	Storage  StorageConfig
	Cache    CacheConfig
	KeyStore KeyStoreConfig
}

type StorageConfig struct {
	Backend  StorageBackend
	Postgres PostgresConfig
}

type PostgresConfig struct {
	DriverName      string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	OpenDB          func(driverName string, dsn string) (*sql.DB, error)
}

type CacheConfig struct {
	Backend CacheBackend
	Redis   RedisCacheConfig
}

type RedisCacheConfig struct {
	Address     string
	Username    string
	Password    string
	Database    int
	Namespace   string
	DialTimeout time.Duration
}

type KeyStoreConfig struct {
	Backend KeyStoreBackend

	// Directory holds the key files for the filesystem backend.
	Directory string
}

func (c Config) initialize(ctx context.Context) (func() error, Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	config := c
	config.Logger = resolveLogger(config.Logger)
	if config.Clock == nil {
		config.Clock = clock.System()
	}

	config, err := initializeKeyStore(config)
	if err != nil {
		return nil, Config{}, err
	}

	closeStorage, config, err := initializeStorage(ctx, config)
	if err != nil {
		return nil, Config{}, err
	}

	closeCache, config, err := initializeCache(config)
	if err != nil {
		_ = closeStorage()
		return nil, Config{}, err
	}

	return joinClosers(closeStorage, closeCache), config, nil
}

func initializeKeyStore(config Config) (Config, error) {
	backend := config.Runtime.KeyStore.Backend
	if backend == "" {
		backend = KeyStoreBackendNone
	}

	switch backend {
	case KeyStoreBackendNone:
		return config, nil
	case KeyStoreBackendFileSystem:
		directory := config.Runtime.KeyStore.Directory
		if directory == "" {
			return Config{}, fmt.Errorf("openidcore config: runtime.keystore.directory is required")
		}
		if config.SigningKeyStore == nil {
			config.SigningKeyStore = keymgr.NewFileSystemKeyStore(directory, config.Logger)
		}
		config.Logger.V(1).Info("initialized filesystem key store backend", "directory", directory)
		return config, nil
	default:
		return Config{}, fmt.Errorf("openidcore config: unsupported runtime.keystore.backend %q", backend)
	}
}

func initializeStorage(ctx context.Context, config Config) (func() error, Config, error) {
	backend := config.Runtime.Storage.Backend
	if backend == "" {
		backend = StorageBackendNone
	}

	switch backend {
	case StorageBackendNone:
		return noopCloser, config, nil
	case StorageBackendPostgres:
		return initializePostgres(ctx, config)
	default:
		return nil, Config{}, fmt.Errorf("openidcore config: unsupported runtime.storage.backend %q", backend)
	}
}

func initializePostgres(ctx context.Context, config Config) (func() error, Config, error) {
	pgConfig := config.Runtime.Storage.Postgres
	if pgConfig.DSN == "" {
		return nil, Config{}, fmt.Errorf("openidcore config: runtime.storage.postgres.dsn is required")
	}

	if pgConfig.DriverName == "" {
		pgConfig.DriverName = "pgx"
	}
	if pgConfig.PingTimeout <= 0 {
		pgConfig.PingTimeout = 5 * time.Second
	}
	if pgConfig.OpenDB == nil {
		pgConfig.OpenDB = sql.Open
	}

	db, err := pgConfig.OpenDB(pgConfig.DriverName, pgConfig.DSN)
	if err != nil {
		return nil, Config{}, fmt.Errorf("openidcore config: failed to open postgres database: %w", err)
	}

	if pgConfig.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	}
	if pgConfig.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	}
	if pgConfig.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pgConfig.ConnMaxLifetime)
	}
	if pgConfig.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pgConfig.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgConfig.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("openidcore config: failed to ping postgres database: %w", err)
	}

	adapter, err := postgres.NewAdapter(db)
	if err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("openidcore config: failed to initialize postgres adapter: %w", err)
	}

	if config.GrantStore == nil {
		config.GrantStore = adapter
	}
	if config.SigningKeyStore == nil {
		config.SigningKeyStore = adapter
	}

	closeResource := func() error {
		return stderrors.Join(adapter.Close(), db.Close())
	}

	config.Runtime.Storage.Postgres = pgConfig
	config.Logger.V(1).Info("initialized postgres storage backend", "driver", pgConfig.DriverName, "max_open_conns", pgConfig.MaxOpenConns, "max_idle_conns", pgConfig.MaxIdleConns)
	return closeResource, config, nil
}

func initializeCache(config Config) (func() error, Config, error) {
	backend := config.Runtime.Cache.Backend
	if backend == "" {
		backend = CacheBackendNone
	}

	switch backend {
	case CacheBackendNone:
		return noopCloser, config, nil
	case CacheBackendMemory:
		return initializeMemoryCache(config)
	case CacheBackendRedis:
		return initializeRedisCache(config)
	default:
		return nil, Config{}, fmt.Errorf("openidcore config: unsupported runtime.cache.backend %q", backend)
	}
}

func initializeMemoryCache(config Config) (func() error, Config, error) {
	if config.KeyCache == nil {
		config.KeyCache = keymgr.NewMemoryStoreCache(config.Clock)
	}

	config.Logger.V(1).Info("initialized memory cache backend")
	return noopCloser, config, nil
}

func initializeRedisCache(config Config) (func() error, Config, error) {
	redisConfig := config.Runtime.Cache.Redis
	if redisConfig.Address == "" {
		return nil, Config{}, fmt.Errorf("openidcore config: runtime.cache.redis.address is required")
	}
	if redisConfig.DialTimeout <= 0 {
		redisConfig.DialTimeout = 5 * time.Second
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:        redisConfig.Address,
		Username:    redisConfig.Username,
		Password:    redisConfig.Password,
		DB:          redisConfig.Database,
		DialTimeout: redisConfig.DialTimeout,
	})

	if config.KeyCache == nil {
		protector := config.KeyProtector
		if protector == nil {
			protector = keymgr.NewNopProtector()
		}
		cacheKey := ""
		if redisConfig.Namespace != "" {
			cacheKey = redisConfig.Namespace + ":signing-keys"
		}
		config.KeyCache = keymgr.NewRedisStoreCacheWithClient(redisClient, cacheKey, protector, config.Logger)
	}
	if config.ReplayCache == nil {
		config.ReplayCache = replayredis.NewAdapterWithClient(redisClient, redisConfig.Namespace, config.Clock)
	}

	closeResource := func() error {
		return redisClient.Close()
	}

	config.Runtime.Cache.Redis = redisConfig
	config.Logger.V(1).Info("initialized redis cache backend", "address", redisConfig.Address, "database", redisConfig.Database, "namespace", redisConfig.Namespace)
	return closeResource, config, nil
}

func joinClosers(closers ...func() error) func() error {
	return func() error {
		var errs []error

		for i := len(closers) - 1; i >= 0; i-- {
			if closers[i] == nil {
				continue
			}
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}

		return stderrors.Join(errs...)
	}
}

func noopCloser() error {
	return nil
}
