package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidCursor indicates the cursor could not be decoded or belongs to another listing.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is an opaque listing position: the kind of resource and the last ID seen.
type Cursor struct {
	Kind  string
	Value string
}

// Encode returns a URL-safe base64 representation.
func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(c.Kind + ":" + c.Value))
}

// DecodeCursor parses s and checks that it was issued for kind.
// An empty string decodes to the zero cursor for kind.
func DecodeCursor(s, kind string) (Cursor, error) {
	if s == "" {
		return Cursor{Kind: kind}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	k, v, ok := strings.Cut(string(b), ":")
	if !ok || k != kind {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Kind: k, Value: v}, nil
}
