package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
)

// OptionalAuthKey is the operation metadata key marking public operations
// that still identify the caller when a valid token is sent.
const OptionalAuthKey = "optionalAuth"

type userContextKey struct{}

// NewAuthMiddleware enforces bearer authentication on operations that declare
// a Security requirement. Operations flagged with OptionalAuthKey get the user
// attached when the token verifies and are served anonymously otherwise.
func NewAuthMiddleware(api huma.API, verifier Verifier) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if len(op.Security) == 0 {
			if optional, _ := op.Metadata[OptionalAuthKey].(bool); optional {
				ctx = attachOptionalUser(ctx, verifier)
			}
			next(ctx)
			return
		}

		token, err := ExtractBearerToken(ctx.Header("Authorization"))
		if err != nil {
			applog.LogWarn(ctx.Context(), "auth failed: missing or invalid header", zap.String("reason", "no_token"))
			ctx.SetHeader("WWW-Authenticate", "Bearer")
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		user, err := verifier.Verify(ctx.Context(), token)
		if err != nil {
			applog.LogWarn(ctx.Context(), "auth failed: token verification failed",
				zap.String("reason", categorizeAuthError(err)))
			if errors.Is(err, ErrCertificateFetch) {
				ctx.SetHeader("Retry-After", "30")
				_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "authentication service temporarily unavailable")
				return
			}
			ctx.SetHeader("WWW-Authenticate", "Bearer")
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(huma.WithValue(ctx, userContextKey{}, user))
	}
}

func attachOptionalUser(ctx huma.Context, verifier Verifier) huma.Context {
	token, err := ExtractBearerToken(ctx.Header("Authorization"))
	if err != nil {
		return ctx
	}
	user, err := verifier.Verify(ctx.Context(), token)
	if err != nil {
		applog.LogDebug(ctx.Context(), "optional auth ignored", zap.String("reason", categorizeAuthError(err)))
		return ctx
	}
	return huma.WithValue(ctx, userContextKey{}, user)
}

func categorizeAuthError(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrUserDisabled):
		return "user_disabled"
	case errors.Is(err, ErrCertificateFetch):
		return "certificate_fetch_failed"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown"
	}
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// WithUser attaches user to ctx. Used by non-Huma handlers and tests.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}
