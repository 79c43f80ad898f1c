// Package ratelimit is the single-instance retry limiter used when no Redis
// address is configured.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ebike_tours/internal/domain"
)

const (
	idleAfter  = 10 * time.Minute
	sweepEvery = time.Minute
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Memory gives each client key a token bucket of `limit` retries refilled
// evenly over `window`.
type Memory struct {
	mu        sync.Mutex
	clients   map[string]*entry
	lastSweep time.Time
	every     rate.Limit
	burst     int
	now       func() time.Time
}

var _ domain.RetryLimiter = (*Memory)(nil)

func NewMemory(limit int, window time.Duration) *Memory {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		clients: map[string]*entry{},
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		now:     time.Now,
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.clients[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(m.every, m.burst)}
		m.clients[key] = e
	}
	e.seen = now
	if now.Sub(m.lastSweep) >= sweepEvery {
		m.sweep(now)
		m.lastSweep = now
	}
	return e.lim.AllowN(now, 1), nil
}

// sweep drops buckets idle long enough to be full again.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.clients {
		if now.Sub(e.seen) > idleAfter {
			delete(m.clients, k)
		}
	}
}
