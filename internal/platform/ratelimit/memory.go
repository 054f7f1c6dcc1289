package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused key's bucket is kept.
const DefaultIdleTTL = 10 * time.Minute

// Memory keeps one token bucket per key. Buckets refill continuously at
// Limit/Window and hold at most Limit tokens.
type Memory struct {
	rule    Rule
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryOption configures a Memory limiter.
type MemoryOption func(*Memory)

// WithIdleTTL sets how long idle buckets are kept.
func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *Memory) { m.idleTTL = d }
}

// WithMemoryClock overrides the time source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(rule Rule, opts ...MemoryOption) *Memory {
	m := &Memory{
		rule:    rule,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *Memory) every() rate.Limit {
	return rate.Limit(float64(m.rule.Limit) / m.rule.Window.Seconds())
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.every(), m.rule.Limit)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	d := Decision{Limit: m.rule.Limit}
	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
		res.CancelAt(now)
		d.RetryAfter = delay
		if !res.OK() {
			d.RetryAfter = m.rule.Window
		}
	} else {
		d.Allowed = true
	}

	tokens := b.limiter.TokensAt(now)
	d.Remaining = max(0, int(math.Floor(tokens)))
	missing := float64(m.rule.Limit) - tokens
	if missing > 0 {
		d.Reset = time.Duration(missing / float64(m.every()) * float64(time.Second))
	}
	return d, nil
}

// Len reports how many keys are tracked.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// sweep drops buckets idle for longer than idleTTL, at most once per idleTTL.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.idleTTL {
		return
	}
	m.lastSweep = now
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) >= m.idleTTL {
			delete(m.buckets, key)
		}
	}
}

var _ Limiter = (*Memory)(nil)
