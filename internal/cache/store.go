package cache

import (
	"context"
	"errors"
	"time"
)

// Backend 是交付缓存的底层字节存储。实现需自行处理过期（TTL），
// 调用方从不显式删除条目：旧版本的 key 不会再被寻址，等待过期或淘汰回收。
type Backend interface {
	// Get 返回 key 对应的载荷。不存在或已过期时返回 ErrNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入载荷并设置 TTL；ttl <= 0 表示不过期。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close 释放底层连接。
	Close() error
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
