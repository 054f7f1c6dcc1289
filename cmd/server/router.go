package main

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/engineer-profiles/internal/availability"
	"github.com/janisto/engineer-profiles/internal/http/health"
	"github.com/janisto/engineer-profiles/internal/http/v1/nicknames"
	"github.com/janisto/engineer-profiles/internal/http/v1/routes"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	appmiddleware "github.com/janisto/engineer-profiles/internal/platform/middleware"
	"github.com/janisto/engineer-profiles/internal/platform/respond"
	"github.com/janisto/engineer-profiles/internal/service/image"
)

const (
	apiPrefix = "/v1"
	docsPath  = "/api-docs"
	// maxRequestBytes leaves room for an image upload plus headers.
	maxRequestBytes = image.MaxSize + 1<<20
)

// routerDeps is everything the HTTP surface needs from the backends.
type routerDeps struct {
	routes.Deps
	Lookup      availability.Lookup
	Debounce    time.Duration
	CORSOrigins []string
	// Images serves locally stored images when set.
	Images http.Handler
	Checks []health.Check
}

func newRouter(d routerDeps) (chi.Router, huma.API) {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(apiPrefix+docsPath, image.PathPrefix),
		appmiddleware.Vary(),
		appmiddleware.CORS(d.CORSOrigins...),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		// Without a trusted proxy, clients can spoof their IP address and dodge rate limits.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxRequestBytes),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/health", health.Handler(d.Checks...))
	if d.Images != nil {
		router.Handle(image.PathPrefix+"*", d.Images)
	}

	var api huma.API
	router.Route(apiPrefix, func(r chi.Router) {
		watchOpts := []nicknames.WatcherOption{nicknames.WithOrigins(d.CORSOrigins...)}
		if d.Limiters != nil {
			watchOpts = append(watchOpts, nicknames.WithLimiter(d.Limiters(nicknames.WatchScope, routes.WatchRule)))
		}
		r.Method(http.MethodGet, nicknames.WatchPath, nicknames.NewWatcher(d.Lookup, d.Debounce, watchOpts...))

		api = humachi.New(r, apiConfig())
		routes.Register(api, d.Deps)
	})
	return router, api
}

func apiConfig() huma.Config {
	cfg := huma.DefaultConfig("Engineer Profiles API", Version)
	cfg.DocsPath = docsPath
	cfg.Servers = []*huma.Server{{URL: apiPrefix}}
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}
	cfg.OnAddOperation = append(cfg.OnAddOperation, addCBORContent)
	return cfg
}

// addCBORContent mirrors every JSON request and response schema as CBOR.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}
