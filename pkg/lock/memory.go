package lock

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/snackpack/pkg/observability"
)

// Memory is a process-local Locker.
type Memory struct {
	mu      sync.Mutex
	held    map[string]chan struct{}
	timeout time.Duration
}

// NewMemory creates a Memory locker. timeout <= 0 uses [DefaultTimeout].
func NewMemory(timeout time.Duration) *Memory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Memory{held: make(map[string]chan struct{}), timeout: timeout}
}

func (m *Memory) Acquire(ctx context.Context, key string) (Lease, error) {
	start := time.Now()
	wait, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	for {
		m.mu.Lock()
		released, busy := m.held[key]
		if !busy {
			released = make(chan struct{})
			m.held[key] = released
			m.mu.Unlock()
			observability.Lock().OnLockAcquired(ctx, key, time.Since(start))
			return &memoryLease{m: m, key: key, released: released}, nil
		}
		m.mu.Unlock()

		select {
		case <-released:
		case <-wait.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			waited := time.Since(start)
			observability.Lock().OnLockTimeout(ctx, key, waited)
			return nil, timeoutError(key, waited)
		}
	}
}

// Held reports whether key is currently locked.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

func (m *Memory) Close() error { return nil }

type memoryLease struct {
	m        *Memory
	key      string
	released chan struct{}
	once     sync.Once
}

func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() {
		l.m.mu.Lock()
		if l.m.held[l.key] == l.released {
			delete(l.m.held, l.key)
		}
		l.m.mu.Unlock()
		close(l.released)
	})
	return nil
}

var _ Locker = (*Memory)(nil)
