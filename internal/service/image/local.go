package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/respond"
)

// PathPrefix is where the HTTP server exposes locally stored images.
const PathPrefix = "/images/"

// LocalStore keeps images under a directory served at PathPrefix.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore stores files in dir. publicBaseURL is the externally visible
// server origin, e.g. "http://localhost:8080".
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("image dir: %w", err)
	}
	base := strings.TrimRight(publicBaseURL, "/") + strings.TrimSuffix(PathPrefix, "/")
	return &LocalStore{dir: dir, baseURL: base}, nil
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Upload(ctx context.Context, ownerID, contentType string, body io.Reader) (string, error) {
	u, err := prepare(ownerID, contentType, body)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(u.name))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, u.data, 0o640); err != nil {
		return "", err
	}
	applog.LogDebug(ctx, "image stored", zap.String("object", u.name), zap.Int("bytes", len(u.data)))
	return s.baseURL + "/" + u.name, nil
}

// Delete removes the file behind url. Unknown or foreign URLs are ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name := objectName(s.baseURL, url)
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Handler serves stored images under PathPrefix. Object names are random,
// so responses are cached for good. Directory listings are refused.
func (s *LocalStore) Handler() http.Handler {
	files := http.StripPrefix(PathPrefix, http.FileServer(http.Dir(s.dir)))
	notFound := respond.NotFoundHandler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			notFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}

var _ Service = (*LocalStore)(nil)
