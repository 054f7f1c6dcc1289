package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withProjectID(t *testing.T, id string) {
	t.Helper()
	orig := cachedProjectID
	cachedProjectID = id
	projectIDOnce = sync.Once{}
	projectIDOnce.Do(func() {})
	t.Cleanup(func() { cachedProjectID = orig })
}

func TestAccessLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			handler := AccessLogger()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
			req = req.WithContext(WithLogger(req.Context(), zap.New(core)))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			entries := recorded.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Fatalf("expected %s, got %s", tt.level, entries[0].Level)
			}
			fields := entries[0].ContextMap()
			if fields["path"] != "/v1/profiles" {
				t.Fatalf("unexpected path: %v", fields["path"])
			}
			if fields["status"] != int64(tt.status) {
				t.Fatalf("unexpected status: %v", fields["status"])
			}
			if _, ok := fields["duration"]; !ok {
				t.Fatal("expected duration field")
			}
		})
	}
}

func TestAccessLoggerImplicitOK(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	handler := AccessLogger()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = req.WithContext(WithLogger(req.Context(), zap.New(core)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := recorded.All()[0].ContextMap()["status"]; got != int64(http.StatusOK) {
		t.Fatalf("expected implicit 200, got %v", got)
	}
}

func TestRequestLoggerUsesTraceparent(t *testing.T) {
	withProjectID(t, "test-project")

	var traceID *string
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", sampleTraceparent)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	want := "projects/test-project/traces/3d23d071b5bfd6579171efce907685cb"
	if traceID == nil || *traceID != want {
		t.Fatalf("expected %s, got %v", want, traceID)
	}
}

func TestRequestLoggerFallsBackToRequestID(t *testing.T) {
	withProjectID(t, "")

	var traceID *string
	inner := RequestLogger()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
	}))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, "req-42")
		inner.ServeHTTP(w, r.WithContext(ctx))
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if traceID == nil || *traceID != "req-42" {
		t.Fatalf("expected request ID fallback, got %v", traceID)
	}
}
