package resultcache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/c360/genomegate/errors"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// RedisBackend stores encoded results in Redis with SET ... EX.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a client. Connectivity is not checked until
// Ping or the first operation.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	return &RedisBackend{client: redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})}
}

func (r *RedisBackend) Name() string { return BackendRedis }

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapTransient(err, "RedisBackend", "Get", "read "+key)
	}
	return val, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.WrapTransient(err, "RedisBackend", "Set", "write "+key)
	}
	return nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.WrapTransient(err, "RedisBackend", "Ping", "ping")
	}
	return nil
}

func (r *RedisBackend) Close() error { return r.client.Close() }
