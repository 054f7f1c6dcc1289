// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/janisto/engineer-profiles/internal/availability"
	"github.com/janisto/engineer-profiles/internal/platform/firebase"
	"github.com/janisto/engineer-profiles/internal/platform/postgres"
)

// Backend names accepted by STORAGE_BACKEND, IMAGE_BACKEND and AUTH_BACKEND.
const (
	BackendLocal    = "local"
	BackendPostgres = "postgres"
	BackendFirebase = "firebase"
	BackendDev      = "dev"
)

// DefaultStorageQuota matches the usual browser local storage allowance.
const DefaultStorageQuota = 5 << 20

// Config is the complete server configuration.
type Config struct {
	Port string

	StorageBackend    string
	DataDir           string
	StorageQuotaBytes int
	Postgres          postgres.Config

	// RedisAddr enables Redis-backed rate limiting; empty keeps limits in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ImageBackend  string
	UploadDir     string
	PublicBaseURL string

	AuthBackend string
	Firebase    firebase.Config

	NicknameDebounce time.Duration
	CORSOrigins      []string
}

// Load reads an optional .env file and then the environment. Every invalid
// value is reported, not just the first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Port:              p.str("PORT", "8080"),
		StorageBackend:    p.oneOf("STORAGE_BACKEND", BackendLocal, BackendLocal, BackendPostgres),
		DataDir:           p.str("DATA_DIR", "./data"),
		StorageQuotaBytes: p.int("STORAGE_QUOTA_BYTES", DefaultStorageQuota),
		Postgres: postgres.Config{
			URL:      p.str("DATABASE_URL", ""),
			MaxConns: int32(p.int("DB_MAX_CONNS", 10)),
			MinConns: int32(p.int("DB_MIN_CONNS", 0)),
		},
		RedisAddr:     p.str("REDIS_ADDR", ""),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),
		ImageBackend:  p.oneOf("IMAGE_BACKEND", BackendLocal, BackendLocal, BackendFirebase),
		UploadDir:     p.str("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: strings.TrimRight(p.str("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		AuthBackend:   p.oneOf("AUTH_BACKEND", BackendFirebase, BackendFirebase, BackendDev),
		Firebase: firebase.Config{
			ProjectID:                    p.str("FIREBASE_PROJECT_ID", ""),
			GoogleApplicationCredentials: p.str("GOOGLE_APPLICATION_CREDENTIALS", ""),
			StorageBucket:                p.str("STORAGE_BUCKET", ""),
		},
		NicknameDebounce: p.duration("NICKNAME_DEBOUNCE", availability.DefaultDelay),
		CORSOrigins:      p.list("CORS_ORIGINS"),
	}

	if cfg.StorageBackend == BackendPostgres && cfg.Postgres.URL == "" {
		p.fail("DATABASE_URL", "is required when STORAGE_BACKEND=postgres")
	}
	if cfg.ImageBackend == BackendFirebase && cfg.Firebase.StorageBucket == "" {
		p.fail("STORAGE_BUCKET", "is required when IMAGE_BACKEND=firebase")
	}
	if cfg.StorageQuotaBytes < 0 {
		p.fail("STORAGE_QUOTA_BYTES", "must not be negative")
	}
	if cfg.Postgres.MinConns > cfg.Postgres.MaxConns {
		p.fail("DB_MIN_CONNS", "must not exceed DB_MAX_CONNS")
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NeedsFirebase reports whether any backend uses the Firebase Admin SDK.
func (c Config) NeedsFirebase() bool {
	return c.AuthBackend == BackendFirebase || c.ImageBackend == BackendFirebase
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) fail(key, format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("config: %s %s", key, fmt.Sprintf(format, args...)))
}

func (p *parser) str(key, fallback string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (p *parser) int(key string, fallback int) int {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, "must be an integer, got %q", v)
		return fallback
	}
	return n
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.fail(key, "must be a non-negative duration, got %q", v)
		return fallback
	}
	return d
}

func (p *parser) oneOf(key, fallback string, allowed ...string) string {
	v := strings.ToLower(p.str(key, fallback))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(key, "must be one of %s, got %q", strings.Join(allowed, "|"), v)
	return fallback
}

func (p *parser) list(key string) []string {
	var out []string
	for _, part := range strings.Split(p.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
