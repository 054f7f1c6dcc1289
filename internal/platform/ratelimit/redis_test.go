package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janisto/engineer-profiles/internal/testutil"
)

func TestRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = client.Close() }()

	r := NewRedis(client, "test", PerSecond(1))
	d, err := r.Allow(context.Background(), "ip:1.2.3.4")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !d.Allowed {
		t.Fatal("expected fail-open decision")
	}
}

func TestRedisFixedWindow(t *testing.T) {
	client := testutil.Redis(t)
	ctx := context.Background()
	r := NewRedis(client, "rl-test", Rule{Limit: 3, Window: 2 * time.Second})

	for i := range 3 {
		d, err := r.Allow(ctx, "user:u1")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: expected allowed, got %+v %v", i, d, err)
		}
		if d.Remaining != 2-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 2-i, d.Remaining)
		}
	}
	d, err := r.Allow(ctx, "user:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.RetryAfter <= 0 || d.RetryAfter > 2*time.Second {
		t.Fatalf("expected rejection with retry hint, got %+v", d)
	}

	ttl, err := client.PTTL(ctx, "rl-test:user:u1").Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected key expiry to be set, got %s %v", ttl, err)
	}

	if d, _ := r.Allow(ctx, "user:u2"); !d.Allowed {
		t.Fatal("keys must not share windows")
	}
}
