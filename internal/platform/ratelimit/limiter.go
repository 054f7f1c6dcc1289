// Package ratelimit provides injected request limiters. Each Limiter owns its
// counters; nothing is kept in package state.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rule allows Limit requests per Window for each key.
type Rule struct {
	Limit  int
	Window time.Duration
}

// PerSecond returns a rule of n requests per second.
func PerSecond(n int) Rule { return Rule{Limit: n, Window: time.Second} }

// PerMinute returns a rule of n requests per minute.
func PerMinute(n int) Rule { return Rule{Limit: n, Window: time.Minute} }

func (r Rule) String() string {
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is the time until the key's quota is fully restored.
	Reset time.Duration
	// RetryAfter is set when the request was rejected.
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
