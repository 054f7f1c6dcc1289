package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/engineer-profiles/internal/platform/auth"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	appmiddleware "github.com/janisto/engineer-profiles/internal/platform/middleware"
	"github.com/janisto/engineer-profiles/internal/platform/ratelimit"
	"github.com/janisto/engineer-profiles/internal/platform/respond"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

func memoryLimiters(_ string, rule ratelimit.Rule) ratelimit.Limiter {
	return ratelimit.NewMemory(rule)
}

func newTestRouter(limiters LimiterFactory) chi.Router {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	router.Route("/v1", func(r chi.Router) {
		cfg := huma.DefaultConfig("RoutesTest", "test")
		cfg.Servers = []*huma.Server{{URL: "/v1"}}
		api := humachi.New(r, cfg)
		Register(api, Deps{
			Verifier: auth.DevVerifier{},
			Profiles: profilesvc.NewMockService(),
			Limiters: limiters,
		})
	})
	return router
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "routes-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterRoutes(t *testing.T) {
	router := newTestRouter(nil)

	tests := []struct {
		path   string
		token  string
		status int
	}{
		{"/v1/profiles", "", http.StatusOK},
		{"/v1/profiles/nobody", "", http.StatusNotFound},
		{"/v1/nicknames/jane-doe/availability", "", http.StatusOK},
		{"/v1/nicknames/jane-doe/validation", "", http.StatusOK},
		{"/v1/profile", "", http.StatusUnauthorized},
		{"/v1/profile", "dev:alice", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if resp := get(router, tt.path, tt.token); resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestRegisterRoutesRateLimits(t *testing.T) {
	router := newTestRouter(memoryLimiters)

	for i := range AvailabilityRule.Limit {
		if resp := get(router, "/v1/nicknames/jane-doe/availability", ""); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.Code)
		}
	}
	resp := get(router, "/v1/nicknames/jane-doe/availability", "")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get(ratelimit.HeaderRetry) == "" {
		t.Fatal("expected Retry-After header")
	}

	// Validation is not limited.
	for range AvailabilityRule.Limit + 1 {
		if resp := get(router, "/v1/nicknames/jane-doe/validation", ""); resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
	}
}

func TestPaginationLinkUsesPrefix(t *testing.T) {
	router := newTestRouter(nil)
	for _, uid := range []string{"a1", "a2", "a3"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/profile",
			strings.NewReader(`{"name":"Engineer","jobTitle":"Developer"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer dev:"+uid)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("create %s: expected 201, got %d: %s", uid, resp.Code, resp.Body.String())
		}
		if loc := resp.Header().Get("Location"); loc != "/v1/profile" {
			t.Fatalf("expected Location /v1/profile, got %q", loc)
		}
	}

	resp := get(router, "/v1/profiles?limit=2", "")
	if link := resp.Header().Get("Link"); !strings.HasPrefix(link, "</v1/profiles?") {
		t.Fatalf("expected prefixed Link header, got %q", link)
	}
}

func TestPolicies(t *testing.T) {
	var scopes []string
	policies := Policies(func(scope string, rule ratelimit.Rule) ratelimit.Limiter {
		scopes = append(scopes, scope+"="+rule.String())
		return ratelimit.NewMemory(rule)
	})
	if len(policies) != 3 {
		t.Fatalf("expected 3 policies, got %d", len(policies))
	}
	for _, op := range []string{"check-nickname-availability", "list-profiles", "get-profile-by-nickname"} {
		if policies[op] == nil {
			t.Fatalf("missing policy for %s", op)
		}
	}
	if len(scopes) != 3 {
		t.Fatalf("expected one limiter per scope, got %v", scopes)
	}
}
