package routes

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/engineer-profiles/internal/http/v1/nicknames"
	"github.com/janisto/engineer-profiles/internal/http/v1/profile"
	"github.com/janisto/engineer-profiles/internal/http/v1/profiles"
	"github.com/janisto/engineer-profiles/internal/platform/auth"
	"github.com/janisto/engineer-profiles/internal/platform/ratelimit"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

// Rate limit rules.
var (
	AvailabilityRule   = ratelimit.PerSecond(5)
	PublicReadRule     = ratelimit.PerSecond(10)
	NicknameUpdateRule = ratelimit.PerMinute(10)
	// WatchRule bounds keystrokes on the live nickname check.
	WatchRule = ratelimit.PerSecond(10)
)

// LimiterFactory builds the limiter for one named scope.
type LimiterFactory func(scope string, rule ratelimit.Rule) ratelimit.Limiter

// Deps are the collaborators the v1 API needs. A nil Limiters disables rate
// limiting.
type Deps struct {
	Verifier auth.Verifier
	Profiles profilesvc.Service
	Limiters LimiterFactory
}

// Policies returns the per-operation limiters keyed by client IP.
func Policies(newLimiter LimiterFactory) ratelimit.Policies {
	return ratelimit.Policies{
		"check-nickname-availability": newLimiter("check-nickname-availability", AvailabilityRule),
		"list-profiles":               newLimiter("list-profiles", PublicReadRule),
		"get-profile-by-nickname":     newLimiter("get-profile-by-nickname", PublicReadRule),
	}
}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, deps Deps) {
	prefix := apiPrefix(api)

	var nicknameLimiter ratelimit.Limiter
	if deps.Limiters != nil {
		api.UseMiddleware(ratelimit.Middleware(api, Policies(deps.Limiters)))
		nicknameLimiter = deps.Limiters("update-nickname", NicknameUpdateRule)
	}
	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, deps.Verifier))

	profile.Register(api, deps.Profiles, prefix, nicknameLimiter)
	profiles.Register(api, deps.Profiles, prefix)
	nicknames.Register(api, deps.Profiles)
}

func apiPrefix(api huma.API) string {
	for _, s := range api.OpenAPI().Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return ""
}
