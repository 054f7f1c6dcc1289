package logging

import (
	"context"

	"go.uber.org/zap"
)

// Audit results recorded in the "audit.result" field.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEvent describes a state-changing action taken on behalf of a user.
type AuditEvent struct {
	Action       string // create, update, delete, upload_image, ...
	Actor        string // authenticated user ID
	ResourceType string
	ResourceID   string
	// Err marks the event as a failure. Only its category is logged.
	Err      error
	Category func(error) string
	Details  map[string]any
}

// Audit writes a structured audit entry through the request-scoped logger.
func Audit(ctx context.Context, ev AuditEvent) {
	result := AuditSuccess
	details := ev.Details
	if ev.Err != nil {
		result = AuditFailure
		category := "internal_error"
		if ev.Category != nil {
			category = ev.Category(ev.Err)
		}
		merged := make(map[string]any, len(details)+1)
		for k, v := range details {
			merged[k] = v
		}
		merged["error"] = category
		details = merged
	}

	LoggerFromContext(ctx).Info("Audit event",
		zap.String("audit.action", ev.Action),
		zap.String("audit.user_id", ev.Actor),
		zap.String("audit.resource_type", ev.ResourceType),
		zap.String("audit.resource_id", ev.ResourceID),
		zap.String("audit.result", result),
		zap.Any("audit.details", details),
	)
}
