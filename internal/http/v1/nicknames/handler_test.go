package nicknames

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/engineer-profiles/internal/availability"
	"github.com/janisto/engineer-profiles/internal/nickname"
	"github.com/janisto/engineer-profiles/internal/platform/auth"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	appmiddleware "github.com/janisto/engineer-profiles/internal/platform/middleware"
	"github.com/janisto/engineer-profiles/internal/platform/respond"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

func newTestRouter(svc profilesvc.Service) chi.Router {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("NicknamesTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, auth.DevVerifier{}))
	Register(api, svc)
	return router
}

func seededService(t *testing.T) *profilesvc.MockService {
	t.Helper()
	svc := profilesvc.NewMockService()
	_, err := svc.Create(context.Background(), "alice", profilesvc.CreateParams{
		Nickname: "john-doe",
		Name:     "John Doe",
		JobTitle: "Backend Engineer",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func TestCheckAvailability(t *testing.T) {
	router := newTestRouter(seededService(t))

	tests := []struct {
		name      string
		path      string
		token     string
		status    int
		available bool
	}{
		{"free", "/nicknames/jane-doe/availability", "", http.StatusOK, true},
		{"taken", "/nicknames/john-doe/availability", "", http.StatusOK, false},
		{"taken other case", "/nicknames/JOHN-DOE/availability", "", http.StatusOK, false},
		{"own nickname by query", "/nicknames/john-doe/availability?excludeUserId=alice", "", http.StatusOK, true},
		{"own nickname by token", "/nicknames/john-doe/availability", "dev:alice", http.StatusOK, true},
		{"someone else's token", "/nicknames/john-doe/availability", "dev:bob", http.StatusOK, false},
		{"bad token is ignored", "/nicknames/jane-doe/availability", "garbage", http.StatusOK, true},
		{"invalid", "/nicknames/ab/availability", "", http.StatusUnprocessableEntity, false},
		{"reserved", "/nicknames/admin/availability", "", http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var data AvailabilityData
			if err := json.Unmarshal(resp.Body.Bytes(), &data); err != nil {
				t.Fatalf("json unmarshal: %v", err)
			}
			if data.Available != tt.available {
				t.Fatalf("expected available=%v, got %+v", tt.available, data)
			}
			if !data.Available && data.Message != availability.MessageTaken {
				t.Fatalf("expected taken message, got %q", data.Message)
			}
		})
	}
}

func TestCheckAvailabilityValidationLocation(t *testing.T) {
	router := newTestRouter(seededService(t))

	for _, name := range []string{"ab", "admin", "john--doe"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/nicknames/"+name+"/availability", nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", resp.Code)
			}
			var problem huma.ErrorModel
			if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
				t.Fatalf("json unmarshal: %v", err)
			}
			if len(problem.Errors) != 1 || problem.Errors[0].Location != "path.nickname" {
				t.Fatalf("expected path.nickname error, got %+v", problem.Errors)
			}
		})
	}
}

func TestCheckAvailabilityStorageUnavailable(t *testing.T) {
	svc := profilesvc.NewMockService()
	svc.FailWith(profilesvc.ErrMockUnavailable)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/nicknames/jane-doe/availability", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestValidateNickname(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService())

	tests := []struct {
		nickname string
		valid    bool
		kind     nickname.ErrorKind
	}{
		{"john-doe", true, nickname.KindNone},
		{"jd", false, nickname.KindTooShort},
		{"john--doe", false, nickname.KindConsecutiveSymbols},
		{"_john", false, nickname.KindBoundarySymbol},
		{"support", false, nickname.KindReserved},
	}
	for _, tt := range tests {
		t.Run(tt.nickname, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/nicknames/"+tt.nickname+"/validation", nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
			}
			var got nickname.Result
			if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
				t.Fatalf("json unmarshal: %v", err)
			}
			if got.IsValid != tt.valid || got.Kind != tt.kind {
				t.Fatalf("expected valid=%v kind=%q, got %+v", tt.valid, tt.kind, got)
			}
			if !got.IsValid && got.Error != tt.kind.Message() {
				t.Fatalf("expected message %q, got %q", tt.kind.Message(), got.Error)
			}
		})
	}
}
