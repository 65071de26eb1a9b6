package cache

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// InitialVersion 是从未写入过的 locale 的版本号。
const InitialVersion int64 = 1

// VersionRegistry 维护 locale → 单调递增版本号的映射，是缓存失效的唯一原语。
// 版本只增不减，也不会被重置。
type VersionRegistry interface {
	// GetVersion 返回当前版本，未设置时为 InitialVersion，不产生副作用。
	GetVersion(ctx context.Context, locale string) (int64, error)

	// BumpVersion 原子地将版本加一并返回新值；同一 locale 的并发递增不会丢失。
	BumpVersion(ctx context.Context, locale string) (int64, error)
}

// memoryVersions 以单把互斥锁保护读改写，进程内即可满足原子性。
type memoryVersions struct {
	mu       sync.Mutex
	versions map[string]int64
}

// NewMemoryVersions 创建进程内版本表。
func NewMemoryVersions() VersionRegistry {
	return &memoryVersions{versions: make(map[string]int64)}
}

func (m *memoryVersions) GetVersion(_ context.Context, locale string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.versions[locale]; ok {
		return v, nil
	}
	return InitialVersion, nil
}

func (m *memoryVersions) BumpVersion(_ context.Context, locale string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.versions[locale]
	if !ok {
		current = InitialVersion
	}
	next := current + 1
	m.versions[locale] = next
	return next, nil
}

// LocaleVersion 是诊断端输出的一行版本信息。
type LocaleVersion struct {
	Locale  string `json:"locale"`
	Version int64  `json:"version"`
}

// Snapshot 列出已被递增过的 locale，按名称排序。
func (m *memoryVersions) Snapshot() []LocaleVersion {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]LocaleVersion, 0, len(m.versions))
	for locale, v := range m.versions {
		result = append(result, LocaleVersion{Locale: locale, Version: v})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Locale < result[j].Locale })
	return result
}

// redisVersions 借助 SETNX + INCR 实现跨进程的原子递增：
// SETNX 只在 key 缺失时写入初始值 1，INCR 本身是原子的。
type redisVersions struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisVersions 使用 Redis 保存版本计数器，多个实例共享同一份版本。
func NewRedisVersions(client redis.UniversalClient, keyPrefix string) VersionRegistry {
	return &redisVersions{client: client, keyPrefix: keyPrefix}
}

func (r *redisVersions) key(locale string) string {
	return r.keyPrefix + "version:" + locale
}

func (r *redisVersions) GetVersion(ctx context.Context, locale string) (int64, error) {
	raw, err := r.client.Get(ctx, r.key(locale)).Result()
	if errors.Is(err, redis.Nil) {
		return InitialVersion, nil
	}
	if err != nil {
		return 0, &CacheError{Op: "version_get", Key: locale, Cause: err}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &CacheError{Op: "version_parse", Key: locale, Cause: err}
	}
	return v, nil
}

func (r *redisVersions) BumpVersion(ctx context.Context, locale string) (int64, error) {
	key := r.key(locale)
	if err := r.client.SetNX(ctx, key, InitialVersion, 0).Err(); err != nil {
		return 0, &CacheError{Op: "version_init", Key: locale, Cause: err}
	}
	next, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, &CacheError{Op: "version_bump", Key: locale, Cause: err}
	}
	return next, nil
}

var (
	_ VersionRegistry = (*memoryVersions)(nil)
	_ VersionRegistry = (*redisVersions)(nil)
)
