package auth

import (
	"context"
	"strings"
)

// MockVerifier returns a fixed user or error, for tests.
type MockVerifier struct {
	User  *User
	Error error
}

func (m *MockVerifier) Verify(context.Context, string) (*User, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.User, nil
}

// TestUser returns the user most handler tests authenticate as.
func TestUser() *User {
	return &User{UID: "test-user-123", Email: "test@example.com", EmailVerified: true}
}

// DevVerifier accepts any token of the form "dev:<uid>" and treats <uid> as
// the caller. It exists for local runs without a Firebase project and must
// never be enabled in production.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, token string) (*User, error) {
	uid, ok := strings.CutPrefix(token, "dev:")
	if !ok || strings.TrimSpace(uid) == "" {
		return nil, ErrInvalidToken
	}
	return &User{UID: uid}, nil
}

var (
	_ Verifier = (*MockVerifier)(nil)
	_ Verifier = DevVerifier{}
)
