package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// memoryBackend 是进程内 TTL 缓存；达到 maxEntries 时先清理过期条目，
// 仍然不足则淘汰最早过期的条目。
type memoryBackend struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryBackend 构造进程内缓存；maxEntries <= 0 表示不限制条目数量。
func NewMemoryBackend(maxEntries int) Backend {
	return newMemoryBackend(maxEntries, time.Now)
}

func newMemoryBackend(maxEntries int, now func() time.Time) *memoryBackend {
	return &memoryBackend{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        now,
	}
}

func (m *memoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(m.now()) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (m *memoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictLocked()
	}
	m.entries[key] = entry
	return nil
}

func (m *memoryBackend) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len 返回当前条目数（包含尚未清理的过期条目）。
func (m *memoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryBackend) evictLocked() {
	now := m.now()
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	var (
		victim    string
		victimExp time.Time
		found     bool
	)
	for key, entry := range m.entries {
		// 不过期的条目最后才被淘汰。
		exp := entry.expiresAt
		if exp.IsZero() {
			exp = now.Add(100 * 365 * 24 * time.Hour)
		}
		if !found || exp.Before(victimExp) {
			victim, victimExp, found = key, exp, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}

var _ Backend = (*memoryBackend)(nil)
