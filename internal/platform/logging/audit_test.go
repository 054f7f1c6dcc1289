package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestAuditSuccess(t *testing.T) {
	ctx, recorded := observedContext(zapcore.InfoLevel)

	Audit(ctx, AuditEvent{
		Action:       "create",
		Actor:        "user-123",
		ResourceType: "profile",
		ResourceID:   "p-1",
		Details:      map[string]any{"nickname": "jdoe"},
	})

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "Audit event" {
		t.Fatalf("unexpected message %q", entries[0].Message)
	}
	fields := entries[0].ContextMap()
	want := map[string]string{
		"audit.action":        "create",
		"audit.user_id":       "user-123",
		"audit.resource_type": "profile",
		"audit.resource_id":   "p-1",
		"audit.result":        AuditSuccess,
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s: expected %q, got %v", k, v, fields[k])
		}
	}
	details, ok := fields["audit.details"].(map[string]any)
	if !ok || details["nickname"] != "jdoe" {
		t.Fatalf("unexpected details: %#v", fields["audit.details"])
	}
}

func TestAuditFailureRecordsCategoryOnly(t *testing.T) {
	ctx, recorded := observedContext(zapcore.InfoLevel)
	details := map[string]any{"nickname": "jdoe"}

	Audit(ctx, AuditEvent{
		Action:       "update",
		Actor:        "user-123",
		ResourceType: "profile",
		ResourceID:   "p-1",
		Err:          errors.New("pq: duplicate key value violates unique constraint"),
		Category:     func(error) string { return "duplicate" },
		Details:      details,
	})

	fields := recorded.All()[0].ContextMap()
	if fields["audit.result"] != AuditFailure {
		t.Fatalf("expected failure, got %v", fields["audit.result"])
	}
	got := fields["audit.details"].(map[string]any)
	if got["error"] != "duplicate" {
		t.Fatalf("expected error category, got %v", got["error"])
	}
	if _, mutated := details["error"]; mutated {
		t.Fatal("caller details map must not be mutated")
	}
}

func TestAuditFailureDefaultCategory(t *testing.T) {
	ctx, recorded := observedContext(zapcore.InfoLevel)
	Audit(ctx, AuditEvent{Action: "delete", Err: errors.New("boom")})

	got := recorded.All()[0].ContextMap()["audit.details"].(map[string]any)
	if got["error"] != "internal_error" {
		t.Fatalf("expected internal_error, got %v", got["error"])
	}
}
