package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/matzehuels/snackpack/pkg/errors"
)

func TestKey(t *testing.T) {
	if got := Key("@scope/pkg", "1.2.3"); got != "@scope/pkg@1.2.3" {
		t.Errorf("Key() = %q", got)
	}
}

func TestMemoryExclusive(t *testing.T) {
	m := NewMemory(time.Second)
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := m.Acquire(ctx, "pkg@1.0.0")
			if err != nil {
				t.Error(err)
				return
			}
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			lease.Release(ctx)
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside.Load())
	}
	if m.Held("pkg@1.0.0") {
		t.Error("key still held after all releases")
	}
}

func TestMemoryIndependentKeys(t *testing.T) {
	m := NewMemory(50 * time.Millisecond)
	ctx := context.Background()

	a, err := m.Acquire(ctx, "a@1")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release(ctx)

	b, err := m.Acquire(ctx, "b@1")
	if err != nil {
		t.Fatalf("different key blocked: %v", err)
	}
	b.Release(ctx)
}

func TestMemoryTimeout(t *testing.T) {
	m := NewMemory(20 * time.Millisecond)
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "pkg@1")
	if err != nil {
		t.Fatal(err)
	}
	defer lease.Release(ctx)

	_, err = m.Acquire(ctx, "pkg@1")
	if !perrors.Is(err, perrors.ErrCodeLockTimeout) {
		t.Errorf("error = %v, want LOCK_TIMEOUT", err)
	}
}

func TestMemoryCancelled(t *testing.T) {
	m := NewMemory(time.Minute)
	lease, err := m.Acquire(context.Background(), "pkg@1")
	if err != nil {
		t.Fatal(err)
	}
	defer lease.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Acquire(ctx, "pkg@1"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestMemoryDoubleRelease(t *testing.T) {
	m := NewMemory(time.Second)
	ctx := context.Background()

	first, _ := m.Acquire(ctx, "k")
	first.Release(ctx)
	second, err := m.Acquire(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	first.Release(ctx)
	if !m.Held("k") {
		t.Error("stale lease released a newer holder")
	}
	second.Release(ctx)
}

func TestNewRedisBadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), RedisConfig{URL: "not a url"}); err == nil {
		t.Error("expected error for invalid redis url")
	}
}

func TestNewRedisDefaults(t *testing.T) {
	r := newRedis(nil, RedisConfig{})
	if r.prefix != defaultPrefix || r.ttl != defaultTTL || r.timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", r)
	}
}
