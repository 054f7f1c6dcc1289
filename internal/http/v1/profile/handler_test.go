package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/engineer-profiles/internal/platform/auth"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	appmiddleware "github.com/janisto/engineer-profiles/internal/platform/middleware"
	"github.com/janisto/engineer-profiles/internal/platform/ratelimit"
	"github.com/janisto/engineer-profiles/internal/platform/respond"
	"github.com/janisto/engineer-profiles/internal/platform/retry"
	"github.com/janisto/engineer-profiles/internal/service/image"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

const createBody = `{"nickname":"john-doe","name":"John Doe","jobTitle":"Backend Engineer",` +
	`"skills":["Go","PostgreSQL"],"yearsOfExperience":7,` +
	`"socialLinks":[{"service":"GitHub","url":"https://github.com/johndoe"}]}`

func newTestRouter(svc profilesvc.Service, limiter ratelimit.Limiter) chi.Router {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("ProfileTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, auth.DevVerifier{}))
	Register(api, svc, "/v1", limiter)
	return router
}

func do(t *testing.T, router http.Handler, method, path, uid, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("Authorization", "Bearer dev:"+uid)
	}
	req.Header.Set(chimiddleware.RequestIDHeader, "profile-test")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeProfile(t *testing.T, resp *httptest.ResponseRecorder) Profile {
	t.Helper()
	var p Profile
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	return p
}

func decodeProblem(t *testing.T, resp *httptest.ResponseRecorder) huma.ErrorModel {
	t.Helper()
	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	return problem
}

func TestCreateProfileSuccess(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)

	resp := do(t, router, http.MethodPost, "/profile", "alice", createBody)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if location := resp.Header().Get("Location"); location != "/v1/profile" {
		t.Errorf("expected Location /v1/profile, got %s", location)
	}

	p := decodeProfile(t, resp)
	if p.ID == "" || p.UserID != "alice" {
		t.Errorf("unexpected identity %q/%q", p.ID, p.UserID)
	}
	if p.Nickname != "john-doe" || p.Name != "John Doe" {
		t.Errorf("unexpected profile %+v", p)
	}
	if len(p.SocialLinks) != 1 || p.SocialLinks[0].ID == "" {
		t.Errorf("expected one link with an ID, got %+v", p.SocialLinks)
	}
	if p.YearsOfExperience == nil || *p.YearsOfExperience != 7 {
		t.Errorf("expected 7 years, got %v", p.YearsOfExperience)
	}
}

func TestCreateProfileValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		location string
	}{
		{"short nickname", `{"nickname":"ab","name":"John","jobTitle":"Dev"}`, "body.nickname"},
		{"reserved nickname", `{"nickname":"admin","name":"John","jobTitle":"Dev"}`, "body.nickname"},
		{"blank name", `{"name":"   ","jobTitle":"Dev"}`, "body.name"},
		{"bad link url", `{"name":"John","jobTitle":"Dev","socialLinks":[{"service":"x","url":"ftp://x"}]}`, "body.socialLinks[0].url"},
		{"missing job title", `{"name":"John"}`, ""},
		{"years out of range", `{"name":"John","jobTitle":"Dev","yearsOfExperience":101}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(profilesvc.NewMockService(), nil)

			resp := do(t, router, http.MethodPost, "/profile", "alice", tt.body)

			if resp.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
			}
			if tt.location == "" {
				return
			}
			problem := decodeProblem(t, resp)
			if len(problem.Errors) != 1 || problem.Errors[0].Location != tt.location {
				t.Fatalf("expected error at %s, got %+v", tt.location, problem.Errors)
			}
		})
	}
}

func TestCreateProfileConflict(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)

	if resp := do(t, router, http.MethodPost, "/profile", "alice", createBody); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	resp := do(t, router, http.MethodPost, "/profile", "alice", `{"name":"Again","jobTitle":"Dev"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
	if detail := decodeProblem(t, resp).Detail; detail != "profile already exists" {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestCreateProfileDuplicateNickname(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)

	if resp := do(t, router, http.MethodPost, "/profile", "alice", createBody); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	resp := do(t, router, http.MethodPost, "/profile", "bob", `{"nickname":"John-Doe","name":"Bob","jobTitle":"Dev"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
	if detail := decodeProblem(t, resp).Detail; detail != "this nickname is already in use" {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestCreateProfileUnauthorized(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)

	resp := do(t, router, http.MethodPost, "/profile", "", createBody)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if wwwAuth := resp.Header().Get("WWW-Authenticate"); wwwAuth != "Bearer" {
		t.Errorf("expected WWW-Authenticate: Bearer, got %s", wwwAuth)
	}
}

func TestGetProfile(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)

	if resp := do(t, router, http.MethodGet, "/profile", "alice", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before create, got %d", resp.Code)
	}
	do(t, router, http.MethodPost, "/profile", "alice", createBody)

	resp := do(t, router, http.MethodGet, "/profile", "alice", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if p := decodeProfile(t, resp); p.Nickname != "john-doe" {
		t.Errorf("expected john-doe, got %s", p.Nickname)
	}
}

func TestUpdateProfile(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)
	created := decodeProfile(t, do(t, router, http.MethodPost, "/profile", "alice", createBody))

	body := fmt.Sprintf(`{"jobTitle":"Staff Engineer","clearYearsOfExperience":true,`+
		`"socialLinks":[{"id":%q,"service":"GitHub","url":"https://github.com/johndoe"},{"service":"Blog","url":"https://john.dev"}]}`,
		created.SocialLinks[0].ID)
	resp := do(t, router, http.MethodPatch, "/profile", "alice", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	p := decodeProfile(t, resp)
	if p.JobTitle != "Staff Engineer" || p.Name != "John Doe" {
		t.Errorf("unexpected fields %+v", p)
	}
	if p.YearsOfExperience != nil {
		t.Errorf("expected years cleared, got %d", *p.YearsOfExperience)
	}
	if len(p.SocialLinks) != 2 || p.SocialLinks[0].ID != created.SocialLinks[0].ID || p.SocialLinks[1].ID == "" {
		t.Errorf("unexpected links %+v", p.SocialLinks)
	}
	if !p.CreatedAt.Equal(created.CreatedAt.Time) {
		t.Errorf("createdAt changed from %v to %v", created.CreatedAt, p.CreatedAt)
	}
}

func TestUpdateProfileErrors(t *testing.T) {
	tests := []struct {
		name   string
		uid    string
		body   string
		status int
	}{
		{"no fields", "alice", `{}`, http.StatusUnprocessableEntity},
		{"invalid nickname", "alice", `{"nickname":"-bad-"}`, http.StatusUnprocessableEntity},
		{"taken nickname", "alice", `{"nickname":"JANE"}`, http.StatusConflict},
		{"missing profile", "carol", `{"name":"Carol"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(profilesvc.NewMockService(), nil)
			do(t, router, http.MethodPost, "/profile", "alice", createBody)
			do(t, router, http.MethodPost, "/profile", "bob", `{"nickname":"jane","name":"Jane","jobTitle":"Dev"}`)

			resp := do(t, router, http.MethodPatch, "/profile", tt.uid, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestUpdateNicknameRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemory(ratelimit.PerMinute(1))
	router := newTestRouter(profilesvc.NewMockService(), limiter)
	do(t, router, http.MethodPost, "/profile", "alice", createBody)

	if resp := do(t, router, http.MethodPatch, "/profile", "alice", `{"nickname":"john-two"}`); resp.Code != http.StatusOK {
		t.Fatalf("expected first change to pass, got %d: %s", resp.Code, resp.Body.String())
	}

	// Unchanged nickname and other fields are not limited.
	if resp := do(t, router, http.MethodPatch, "/profile", "alice", `{"nickname":"john-two","bio":"hi"}`); resp.Code != http.StatusOK {
		t.Fatalf("expected unchanged nickname to pass, got %d: %s", resp.Code, resp.Body.String())
	}

	resp := do(t, router, http.MethodPatch, "/profile", "alice", `{"nickname":"john-three"}`)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get(ratelimit.HeaderRetry) == "" {
		t.Error("expected Retry-After header")
	}
	if resp.Header().Get(ratelimit.HeaderLimit) != "1" {
		t.Errorf("expected limit header 1, got %q", resp.Header().Get(ratelimit.HeaderLimit))
	}
}

func TestDeleteProfile(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)
	do(t, router, http.MethodPost, "/profile", "alice", createBody)

	if resp := do(t, router, http.MethodDelete, "/profile", "alice", ""); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := do(t, router, http.MethodDelete, "/profile", "alice", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	// The nickname is free again.
	resp := do(t, router, http.MethodPost, "/profile", "bob", `{"nickname":"john-doe","name":"Bob","jobTitle":"Dev"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func putImage(t *testing.T, router http.Handler, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/profile/image", bytes.NewReader(data))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer dev:alice")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestProfileImage(t *testing.T) {
	svc := profilesvc.NewMockService()
	router := newTestRouter(svc, nil)
	do(t, router, http.MethodPost, "/profile", "alice", createBody)

	resp := putImage(t, router, "image/png", []byte("\x89PNG\r\n\x1a\nfake"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	first := decodeProfile(t, resp).ImageURL
	if first == "" || !svc.Images.Has(first) {
		t.Fatalf("expected stored image, got %q", first)
	}

	second := decodeProfile(t, putImage(t, router, "image/png", []byte("\x89PNG\r\n\x1a\nnext"))).ImageURL
	if second == first || svc.Images.Has(first) {
		t.Fatalf("expected old image %q to be released", first)
	}

	resp = do(t, router, http.MethodDelete, "/profile/image", "alice", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if p := decodeProfile(t, resp); p.ImageURL != "" {
		t.Errorf("expected image cleared, got %q", p.ImageURL)
	}
	if svc.Images.Has(second) {
		t.Error("expected image to be released")
	}
}

func TestProfileImageErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported type", image.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{"too large", image.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"empty", image.ErrEmpty, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := profilesvc.NewMockService()
			router := newTestRouter(svc, nil)
			do(t, router, http.MethodPost, "/profile", "alice", createBody)
			svc.Images.UploadErr = tt.err

			resp := putImage(t, router, "image/png", []byte("data"))
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestProfileImageBodyLimit(t *testing.T) {
	router := newTestRouter(profilesvc.NewMockService(), nil)
	do(t, router, http.MethodPost, "/profile", "alice", createBody)

	resp := putImage(t, router, "image/png", make([]byte, image.MaxSize+1))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}

func TestStorageUnavailable(t *testing.T) {
	svc := profilesvc.NewMockService()
	svc.FailWith(profilesvc.ErrMockUnavailable)
	router := newTestRouter(svc, nil)

	resp := do(t, router, http.MethodGet, "/profile", "alice", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", resp.Code, resp.Body.String())
	}
	if detail := decodeProblem(t, resp).Detail; detail != "profile storage is temporarily unavailable" {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &profilesvc.ValidationError{Field: "name", Message: "is required"}, http.StatusUnprocessableEntity},
		{"duplicate", profilesvc.ErrDuplicate, http.StatusConflict},
		{"already exists", profilesvc.ErrAlreadyExists, http.StatusConflict},
		{"not found", profilesvc.ErrNotFound, http.StatusNotFound},
		{"quota", profilesvc.ErrQuotaExceeded, http.StatusInsufficientStorage},
		{"unavailable", profilesvc.ErrMockUnavailable, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("lookup: %w", &retry.TimeoutError{}), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var se huma.StatusError
			if !errors.As(MapServiceError(tt.err), &se) {
				t.Fatal("expected a huma status error")
			}
			if se.GetStatus() != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, se.GetStatus())
			}
		})
	}
}

func TestMapServiceErrorLocation(t *testing.T) {
	verr := &profilesvc.ValidationError{Field: "nickname", Message: "is reserved"}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"body", MapServiceError(verr), "body.nickname"},
		{"path", MapServiceErrorIn("path", verr), "path.nickname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var model *huma.ErrorModel
			if !errors.As(tt.err, &model) {
				t.Fatalf("expected *huma.ErrorModel, got %T", tt.err)
			}
			if len(model.Errors) != 1 || model.Errors[0].Location != tt.want {
				t.Fatalf("expected location %s, got %+v", tt.want, model.Errors)
			}
		})
	}
}
