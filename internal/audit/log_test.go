package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"tableside.org/internal/identity"
	"tableside.org/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	obs.Logger().SetOutput(&buf)
	t.Cleanup(func() { obs.Logger().SetOutput(os.Stdout) })
	return &buf
}

func TestLogEventEnrichesFromContext(t *testing.T) {
	buf := captureLog(t)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = identity.ContextWithUser(ctx, "user-7", identity.RoleAdmin)

	if err := LogEvent(ctx, "permission.create", map[string]any{"name": "View Widgets"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal audit line: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "permission.create" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("request id missing: %v", entry)
	}
	if entry["actor_id"] != "user-7" {
		t.Fatalf("actor missing: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["name"] != "View Widgets" {
		t.Fatalf("fields not recorded: %v", entry)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	captureLog(t)
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}

func TestLogEventWithoutContextEnrichment(t *testing.T) {
	buf := captureLog(t)
	if err := LogEvent(context.Background(), "sweep.run", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal audit line: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("unexpected request id: %v", entry)
	}
	if _, ok := entry["actor_id"]; ok {
		t.Fatalf("unexpected actor: %v", entry)
	}
}
