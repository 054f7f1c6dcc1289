package image

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
)

// DefaultPublicHost serves objects of public Cloud Storage buckets.
const DefaultPublicHost = "https://storage.googleapis.com"

// FirebaseStore keeps images in a Cloud Storage bucket obtained from the
// Firebase Admin SDK.
type FirebaseStore struct {
	bucket  *storage.BucketHandle
	baseURL string
}

// NewFirebaseStore writes to bucket, whose objects are reachable under
// publicHost/bucketName.
func NewFirebaseStore(bucket *storage.BucketHandle, bucketName, publicHost string) *FirebaseStore {
	if publicHost == "" {
		publicHost = DefaultPublicHost
	}
	return &FirebaseStore{bucket: bucket, baseURL: publicHost + "/" + bucketName}
}

func (s *FirebaseStore) Upload(ctx context.Context, ownerID, contentType string, body io.Reader) (string, error) {
	u, err := prepare(ownerID, contentType, body)
	if err != nil {
		return "", err
	}

	w := s.bucket.Object(u.name).NewWriter(ctx)
	w.ContentType = u.contentType
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := io.Copy(w, u.reader()); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	applog.LogDebug(ctx, "image uploaded", zap.String("object", u.name), zap.Int("bytes", len(u.data)))
	return s.baseURL + "/" + u.name, nil
}

// Delete removes the object behind url. Foreign URLs and objects that are
// already gone are ignored.
func (s *FirebaseStore) Delete(ctx context.Context, url string) error {
	name := objectName(s.baseURL, url)
	if name == "" {
		return nil
	}
	err := s.bucket.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

var _ Service = (*FirebaseStore)(nil)
