package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/janisto/engineer-profiles/internal/config"
	"github.com/janisto/engineer-profiles/internal/http/health"
	"github.com/janisto/engineer-profiles/internal/http/v1/routes"
	"github.com/janisto/engineer-profiles/internal/platform/auth"
	"github.com/janisto/engineer-profiles/internal/platform/firebase"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/postgres"
	"github.com/janisto/engineer-profiles/internal/platform/ratelimit"
	"github.com/janisto/engineer-profiles/internal/service/image"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

// app holds the wired backends. close releases them in reverse order.
type app struct {
	deps    routerDeps
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp opens the backends named by cfg.
func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var fb *firebase.Clients
	if cfg.NeedsFirebase() {
		fb, err = firebase.InitializeClients(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
	}

	repo, err := a.openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	images, err := a.openImages(ctx, cfg, fb)
	if err != nil {
		return nil, err
	}

	var verifier auth.Verifier = auth.DevVerifier{}
	if cfg.AuthBackend == config.BackendFirebase {
		verifier = auth.NewFirebaseVerifier(fb.Auth)
	} else {
		applog.LogWarn(ctx, "dev authentication enabled, tokens are not verified")
	}

	a.deps.Deps = routes.Deps{
		Verifier: verifier,
		Profiles: profilesvc.NewManager(repo, images),
		Limiters: a.openLimiters(ctx, cfg),
	}
	a.deps.Lookup = repo
	a.deps.Debounce = cfg.NicknameDebounce
	a.deps.CORSOrigins = cfg.CORSOrigins
	return a, nil
}

func (a *app) openRepository(ctx context.Context, cfg config.Config) (profilesvc.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.deps.Checks = append(a.deps.Checks, health.Check{Name: "postgres", Ping: pool.Ping})

		store := profilesvc.NewPostgresStore(pool, profilesvc.DefaultRemoteConfig())
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return store, nil
	default:
		slot, err := profilesvc.NewFileSlot(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		applog.LogInfo(ctx, "using local profile store", zap.String("dir", cfg.DataDir))
		return profilesvc.NewLocalStore(slot, profilesvc.WithQuota(cfg.StorageQuotaBytes)), nil
	}
}

func (a *app) openImages(ctx context.Context, cfg config.Config, fb *firebase.Clients) (profilesvc.ImageStore, error) {
	switch cfg.ImageBackend {
	case config.BackendFirebase:
		bucket, err := fb.Storage.DefaultBucket()
		if err != nil {
			return nil, fmt.Errorf("image bucket: %w", err)
		}
		return image.NewFirebaseStore(bucket, cfg.Firebase.StorageBucket, image.DefaultPublicHost), nil
	default:
		store, err := image.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		applog.LogInfo(ctx, "using local image store", zap.String("dir", store.Dir()))
		a.deps.Images = store.Handler()
		return store, nil
	}
}

// openLimiters shares counters through Redis when configured. A Redis that
// is down at startup is logged; the limiters then fail open per request.
func (a *app) openLimiters(ctx context.Context, cfg config.Config) routes.LimiterFactory {
	if cfg.RedisAddr == "" {
		return func(_ string, rule ratelimit.Rule) ratelimit.Limiter {
			return ratelimit.NewMemory(rule)
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.deps.Checks = append(a.deps.Checks, health.Check{
		Name: "redis",
		Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	if err := client.Ping(ctx).Err(); err != nil {
		applog.LogWarn(ctx, "redis unreachable, rate limits will fail open", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return func(scope string, rule ratelimit.Rule) ratelimit.Limiter {
		return ratelimit.NewRedis(client, "ratelimit:"+scope, rule)
	}
}
