// Package dedup remembers which inbound events have already been handled so
// platform redeliveries run at most once.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyellow/chatbot-go/internal/config"
)

// Store claims idempotency keys. TryClaim returns true exactly once per key
// within the retention window.
type Store interface {
	TryClaim(ctx context.Context, key string) (bool, error)
	Sweep() int
	Close() error
}

// Open returns the store selected by backend.
func Open(backend, path string, window time.Duration) (Store, error) {
	switch backend {
	case "", config.DedupMemory:
		return NewMemory(window), nil
	case config.DedupBadger:
		return OpenBadger(path, window)
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", backend)
	}
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	window  time.Duration
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemory creates a Memory store keeping keys for window.
func NewMemory(window time.Duration) *Memory {
	return &Memory{
		window:  window,
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// TryClaim records key and reports whether this call was the first.
func (m *Memory) TryClaim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[key] = now.Add(m.window)
	return true, nil
}

// Sweep drops expired keys and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expires)
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
