package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis counts requests per key in fixed windows shared by every instance.
// When Redis cannot be reached the request is allowed and the error returned
// for logging.
type Redis struct {
	client redis.Cmdable
	prefix string
	rule   Rule
}

func NewRedis(client redis.Cmdable, prefix string, rule Rule) *Redis {
	return &Redis{client: client, prefix: prefix, rule: rule}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := r.prefix + ":" + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, r.rule.Window)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{Allowed: true, Limit: r.rule.Limit, Remaining: r.rule.Limit}, err
	}

	count := int(incr.Val())
	reset := pttl.Val()
	if reset < 0 {
		reset = r.rule.Window
	}
	d := Decision{
		Allowed:   count <= r.rule.Limit,
		Limit:     r.rule.Limit,
		Remaining: max(0, r.rule.Limit-count),
		Reset:     reset,
	}
	if !d.Allowed {
		d.RetryAfter = reset
	}
	return d, nil
}

var _ Limiter = (*Redis)(nil)
