package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/respond"
)

// Rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderRetry     = "Retry-After"
)

// Policies maps operation IDs to the limiter guarding them.
type Policies map[string]Limiter

// Middleware limits the operations named in policies, keyed by client IP.
// Run chi's RealIP first when serving behind a proxy.
func Middleware(api huma.API, policies Policies) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		limiter, ok := policies[ctx.Operation().OperationID]
		if !ok {
			next(ctx)
			return
		}

		d := allow(ctx.Context(), limiter, "ip:"+ClientIP(ctx.RemoteAddr()), ctx.Operation().OperationID)
		for k, v := range headers(d) {
			ctx.SetHeader(k, v[0])
		}
		if !d.Allowed {
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(ctx)
	}
}

// Check applies limiter to key inside a handler. A rejection is returned as
// a 429 error carrying the rate limit headers.
func Check(ctx context.Context, limiter Limiter, key, scope string) error {
	d := allow(ctx, limiter, key, scope)
	if d.Allowed {
		return nil
	}
	return respond.Problem(http.StatusTooManyRequests, "rate limit exceeded", headers(d))
}

func allow(ctx context.Context, limiter Limiter, key, scope string) Decision {
	d, err := limiter.Allow(ctx, key)
	if err != nil {
		applog.LogWarn(ctx, "rate limiter unavailable, allowing request",
			zap.String("scope", scope), zap.Error(err))
		return Decision{Allowed: true, Limit: d.Limit, Remaining: d.Remaining}
	}
	if !d.Allowed {
		applog.LogInfo(ctx, "rate limit exceeded", zap.String("scope", scope), zap.String("key", key))
	}
	return d
}

func headers(d Decision) http.Header {
	h := http.Header{}
	if d.Limit > 0 {
		h.Set(HeaderLimit, strconv.Itoa(d.Limit))
		h.Set(HeaderRemaining, strconv.Itoa(d.Remaining))
		h.Set(HeaderReset, strconv.Itoa(seconds(d.Reset)))
	}
	if !d.Allowed {
		h.Set(HeaderRetry, strconv.Itoa(max(1, seconds(d.RetryAfter))))
	}
	return h
}

// seconds rounds d up to whole seconds.
func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// ClientIP strips the port from a RemoteAddr.
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
