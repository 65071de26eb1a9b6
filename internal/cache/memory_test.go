package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryBackendSetAndGet(t *testing.T) {
	backend := NewMemoryBackend(0)
	ctx := context.Background()

	if err := backend.Set(ctx, "k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set error: %v", err)
	}
	got, err := backend.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("payload mismatch: %s", got)
	}
}

func TestMemoryBackendGetMissing(t *testing.T) {
	backend := NewMemoryBackend(0)
	if _, err := backend.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryBackendExpiresEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := newMemoryBackend(0, clock.Now)
	ctx := context.Background()

	if err := backend.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set error: %v", err)
	}
	clock.Advance(59 * time.Minute)
	if _, err := backend.Get(ctx, "k"); err != nil {
		t.Fatalf("entry should still be live: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := backend.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry at ttl, got %v", err)
	}
	if backend.Len() != 0 {
		t.Fatalf("expired entry should be removed on read")
	}
}

func TestMemoryBackendZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := newMemoryBackend(0, clock.Now)
	ctx := context.Background()

	if err := backend.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set error: %v", err)
	}
	clock.Advance(365 * 24 * time.Hour)
	if _, err := backend.Get(ctx, "k"); err != nil {
		t.Fatalf("zero ttl entry should persist: %v", err)
	}
}

func TestMemoryBackendEvictsWhenFull(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := newMemoryBackend(3, clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := backend.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Duration(i+1)*time.Hour); err != nil {
			t.Fatalf("set error: %v", err)
		}
	}
	if err := backend.Set(ctx, "k3", []byte("v"), 10*time.Hour); err != nil {
		t.Fatalf("set error: %v", err)
	}
	if backend.Len() != 3 {
		t.Fatalf("len = %d, want 3", backend.Len())
	}
	if _, err := backend.Get(ctx, "k0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("soonest-expiring entry should be evicted, got %v", err)
	}
	if _, err := backend.Get(ctx, "k3"); err != nil {
		t.Fatalf("new entry should be present: %v", err)
	}
}

func TestMemoryBackendCopiesValue(t *testing.T) {
	backend := NewMemoryBackend(0)
	ctx := context.Background()
	value := []byte("abc")
	if err := backend.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("set error: %v", err)
	}
	value[0] = 'z'
	got, _ := backend.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("backend should not alias caller buffer, got %s", got)
	}
}
