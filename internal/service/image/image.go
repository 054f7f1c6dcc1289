// Package image stores profile images. Uploads are sniffed and size-checked
// before they reach a backend.
package image

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MaxSize is the largest accepted upload in bytes.
const MaxSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("image must be png, jpeg, webp or gif")
	ErrTooLarge        = errors.New("image must be at most 5 MiB")
	ErrEmpty           = errors.New("image is empty")
)

// IsRejected reports whether err refuses the upload itself rather than
// reporting a backend failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrTooLarge) || errors.Is(err, ErrEmpty)
}

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Service uploads and deletes images. profile.ImageStore is satisfied by it.
type Service interface {
	Upload(ctx context.Context, ownerID, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// upload is a validated image ready to store.
type upload struct {
	name        string
	contentType string
	data        []byte
}

// prepare reads at most MaxSize+1 bytes from body and checks that both the
// declared and the sniffed content type are allowed and agree.
func prepare(ownerID, contentType string, body io.Reader) (*upload, error) {
	declared := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if _, ok := extensions[declared]; !ok {
		return nil, ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	if sniffed := http.DetectContentType(data); sniffed != declared {
		return nil, ErrUnsupportedType
	}

	return &upload{
		name:        ownerID + "/" + uuid.NewString() + "." + extensions[declared],
		contentType: declared,
		data:        data,
	}, nil
}

func (u *upload) reader() io.Reader {
	return bytes.NewReader(u.data)
}

// objectName returns the stored object name for url when url lives under
// base, or "" for foreign URLs.
func objectName(base, url string) string {
	prefix := strings.TrimRight(base, "/") + "/"
	name, ok := strings.CutPrefix(url, prefix)
	if !ok || name == "" || strings.Contains(name, "..") {
		return ""
	}
	return name
}
