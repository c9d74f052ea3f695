// Package cache provides the keyed TTL store used for dashboard aggregates
// and login throttling. The store is an optimization layer only: every cached
// aggregate is recomputable from the database, and the operation engine
// invalidates the dashboard key set after each committed mutation.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a keyed byte store with per-key TTL. Values are opaque; callers
// JSON-encode structured data so the memory and Redis backends behave the same.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DashboardKeys is the full set of aggregate cache keys invalidated after
// every successful stock operation. Parameterised keys list the parameter
// values the dashboard actually requests.
func DashboardKeys() []string {
	return []string{
		"dashboard_overview",
		"dashboard_low_stock",
		"dashboard_distribution",
		"dashboard_charts_7",
		"dashboard_charts_30",
		"dashboard_trend_month",
		"dashboard_trend_quarter",
		"dashboard_trend_year",
		"dashboard_activities_10",
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-process Store with TTL expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// StartPurge starts a background goroutine that evicts expired entries so
// abandoned keys do not accumulate. Stops when ctx is cancelled.
func (m *Memory) StartPurge(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				now := m.now()
				for k, e := range m.entries {
					if now.After(e.expiresAt) {
						delete(m.entries, k)
					}
				}
				m.mu.Unlock()
			}
		}
	}()
}
