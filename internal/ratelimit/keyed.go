// Package ratelimit throttles dispatches per acting user.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/garyellow/chatbot-go/internal/metrics"
	"golang.org/x/time/rate"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels metrics, e.g. "user".
	Name string

	// Burst is the bucket capacity and RefillRate the tokens added per second.
	Burst      int
	RefillRate float64

	// CleanupPeriod is how often idle keys are dropped. Zero disables the
	// background loop.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter keeps one token bucket per key. Keys whose bucket has
// refilled completely are considered idle and dropped by the cleanup loop.
type KeyedLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	cfg      KeyedConfig
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewKeyedLimiter creates the limiter and starts its cleanup loop.
//
//	limiter := NewKeyedLimiter(KeyedConfig{Name: "user", Burst: 10, RefillRate: 0.5, CleanupPeriod: time.Minute})
//	defer limiter.Stop()
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	kl := &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
		stopCh:   make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

// Allow consumes one token for key and reports whether it was available.
// An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	if kl.limiter(key).Allow() {
		return true
	}
	kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	return false
}

// Wait blocks until key has a token or ctx is done.
func (kl *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return kl.limiter(key).Wait(ctx)
}

// Available returns the tokens currently available for key.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	lim, ok := kl.limiters[key]
	kl.mu.RUnlock()
	if !ok {
		return float64(kl.cfg.Burst)
	}
	return lim.Tokens()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.limiters)
}

func (kl *KeyedLimiter) limiter(key string) *rate.Limiter {
	kl.mu.RLock()
	lim, ok := kl.limiters[key]
	kl.mu.RUnlock()
	if ok {
		return lim
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if lim, ok = kl.limiters[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(kl.cfg.RefillRate), kl.cfg.Burst)
	kl.limiters[key] = lim
	return lim
}

// Cleanup drops idle keys and returns how many remain.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	for key, lim := range kl.limiters {
		if lim.Tokens() >= float64(kl.cfg.Burst) {
			delete(kl.limiters, key)
		}
	}
	n := len(kl.limiters)
	kl.mu.Unlock()

	kl.cfg.Metrics.SetRateLimiterActive(kl.cfg.Name, n)
	return n
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup loop. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
