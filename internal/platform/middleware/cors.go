package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// exposedHeaders lists response headers browsers may read cross-origin.
var exposedHeaders = []string{
	"Link",
	"Location",
	"Retry-After",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"X-Request-Id",
}

// CORS allows the given origins, or every origin when none are configured.
func CORS(origins ...string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: exposedHeaders,
		MaxAge:         300,
	})
}
