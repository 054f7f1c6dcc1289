package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/retry"
)

// Service errors. Storage backends wrap these in *StoreError.
var (
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("profile already exists")
	ErrDuplicate     = errors.New("this nickname is already in use")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrUnavailable   = errors.New("profile storage is temporarily unavailable")
	ErrUnknown       = errors.New("profile storage failed")
)

// ValidationError reports one invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StoreErrorKind classifies normalized backend failures.
type StoreErrorKind string

const (
	StoreErrorKindDuplicate     StoreErrorKind = "duplicate"
	StoreErrorKindNotFound      StoreErrorKind = "not_found"
	StoreErrorKindQuotaExceeded StoreErrorKind = "quota_exceeded"
	StoreErrorKindUnavailable   StoreErrorKind = "unavailable"
	StoreErrorKindUnknown       StoreErrorKind = "unknown"
)

var kindSentinels = map[StoreErrorKind]error{
	StoreErrorKindDuplicate:     ErrDuplicate,
	StoreErrorKindNotFound:      ErrNotFound,
	StoreErrorKindQuotaExceeded: ErrQuotaExceeded,
	StoreErrorKindUnavailable:   ErrUnavailable,
	StoreErrorKindUnknown:       ErrUnknown,
}

// StoreError is a backend failure normalized into the service taxonomy. It
// matches the sentinel for its Kind and the original cause via errors.Is/As.
type StoreError struct {
	Kind  StoreErrorKind
	Op    string
	cause error
}

func newStoreError(kind StoreErrorKind, op string, cause error) *StoreError {
	return &StoreError{Kind: kind, Op: op, cause: cause}
}

func (e *StoreError) Error() string {
	if e == nil {
		return "profile storage error"
	}
	if e.cause == nil {
		return fmt.Sprintf("profile store %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("profile store %s: %s: %v", e.Op, e.Kind, e.cause)
}

func (e *StoreError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := []error{kindSentinels[e.Kind]}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrUnavailable), errors.Is(err, retry.ErrTimeout):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal_error"
	}
}

// logStoreError records a normalized backend failure once. Expected outcomes
// (duplicates, missing ids) are logged below error level.
func logStoreError(ctx context.Context, backend string, err *StoreError) {
	level := zapcore.ErrorLevel
	switch err.Kind {
	case StoreErrorKindDuplicate:
		level = zapcore.WarnLevel
	case StoreErrorKindNotFound:
		level = zapcore.InfoLevel
	}
	fields := []zap.Field{
		zap.String("backend", backend),
		zap.String("op", err.Op),
		zap.String("kind", string(err.Kind)),
	}
	if err.cause != nil {
		fields = append(fields, zap.Error(err.cause))
	}
	applog.LoggerFromContext(ctx).Log(level, "profile store error", fields...)
}
