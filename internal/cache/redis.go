package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions 描述 Redis 连接参数。
type RedisOptions struct {
	URL         string
	KeyPrefix   string
	DialTimeout time.Duration
}

// NewRedisClient 解析 URL 并通过 PING 校验连接可用。
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout > 0 {
		parsed.DialTimeout = opts.DialTimeout
	}

	client := redis.NewClient(parsed)

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// redisBackend 将交付载荷保存在 Redis 中，过期交给 Redis 的 TTL 处理。
type redisBackend struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisBackend 基于已有客户端创建缓存后端。
func NewRedisBackend(client redis.UniversalClient, keyPrefix string) Backend {
	return &redisBackend{client: client, keyPrefix: keyPrefix}
}

func (r *redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &CacheError{Op: "get", Key: key, Cause: err}
	}
	return val, nil
}

func (r *redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err(); err != nil {
		return &CacheError{Op: "set", Key: key, Cause: err}
	}
	return nil
}

func (r *redisBackend) Close() error {
	return r.client.Close()
}

var _ Backend = (*redisBackend)(nil)
