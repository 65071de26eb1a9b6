package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/config"
	"github.com/any-hub/content-hub/internal/metrics"
)

// State 汇总进程级缓存状态（版本表 + 交付缓存），启动时构造一次，
// 以引用方式注入 ContentService，在所有并发请求间共享。
type State struct {
	Versions VersionRegistry
	Delivery *DeliveryCache
	Backend  string

	closers []func() error
}

// Open 根据配置构建 memory 或 redis 缓存状态。
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) (*State, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	opts := DeliveryOptions{
		Logger:       logger,
		Metrics:      m,
		SingleFlight: cfg.Global.CacheSingleFlight,
	}

	if !cfg.UsesRedis() {
		return NewMemoryState(cfg.Global.CacheMaxEntries, opts), nil
	}

	client, err := NewRedisClient(ctx, RedisOptions{
		URL:         cfg.Redis.URL,
		KeyPrefix:   cfg.Redis.KeyPrefix,
		DialTimeout: cfg.Redis.DialTimeout.DurationValue(),
	})
	if err != nil {
		return nil, fmt.Errorf("open redis cache: %w", err)
	}
	return NewRedisState(client, cfg.Redis.KeyPrefix, opts), nil
}

// NewMemoryState 构造纯内存的缓存状态，主要用于测试与单实例部署。
func NewMemoryState(maxEntries int, opts DeliveryOptions) *State {
	backend := NewMemoryBackend(maxEntries)
	return &State{
		Versions: NewMemoryVersions(),
		Delivery: NewDeliveryCache(backend, opts),
		Backend:  config.CacheBackendMemory,
		closers:  []func() error{backend.Close},
	}
}

// NewRedisState 让载荷与版本计数器共享同一个 Redis 客户端。
func NewRedisState(client redis.UniversalClient, keyPrefix string, opts DeliveryOptions) *State {
	return &State{
		Versions: NewRedisVersions(client, keyPrefix),
		Delivery: NewDeliveryCache(NewRedisBackend(client, keyPrefix), opts),
		Backend:  config.CacheBackendRedis,
		closers:  []func() error{client.Close},
	}
}

// KnownVersions 返回进程内版本表的快照；Redis 后端不做 key 扫描，返回 nil。
func (s *State) KnownVersions() []LocaleVersion {
	if s == nil {
		return nil
	}
	if mv, ok := s.Versions.(*memoryVersions); ok {
		return mv.Snapshot()
	}
	return nil
}

// Close 关闭底层连接。
func (s *State) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
