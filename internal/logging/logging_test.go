package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept", "user_id", "user-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["user_id"] != "user-1" {
		t.Fatalf("unexpected entry %#v", entry)
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}

	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected stored logger")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("expected nil logger to leave context untouched")
	}
}

func TestOrDefault(t *testing.T) {
	t.Parallel()

	custom := New(nil, slog.LevelInfo)
	if OrDefault(custom) != custom {
		t.Fatalf("expected custom logger to be returned")
	}
	if OrDefault(nil) != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestComponent(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, buf *bytes.Buffer) map[string]any {
		t.Helper()
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("decode entry %q: %v", buf.String(), err)
		}
		return entry
	}

	t.Run("uses base when the context has no logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		base := New(&buf, slog.LevelInfo)
		Component(context.Background(), base, "service", "AttendanceService", "ClockIn", "user_id", "user-1").Info("clocked in")

		entry := decode(t, &buf)
		if entry["service"] != "AttendanceService" || entry["operation"] != "ClockIn" || entry["user_id"] != "user-1" {
			t.Fatalf("unexpected entry %#v", entry)
		}
	})

	t.Run("prefers the request logger", func(t *testing.T) {
		t.Parallel()

		var baseBuf, reqBuf bytes.Buffer
		base := New(&baseBuf, slog.LevelInfo)
		ctx := ContextWithLogger(context.Background(), New(&reqBuf, slog.LevelInfo).With("request_id", "req-1"))

		Component(ctx, base, "handler", "AuthHandler", "").Info("login")

		if baseBuf.Len() != 0 {
			t.Fatalf("expected base logger to stay silent, got %q", baseBuf.String())
		}
		entry := decode(t, &reqBuf)
		if entry["handler"] != "AuthHandler" || entry["request_id"] != "req-1" {
			t.Fatalf("unexpected entry %#v", entry)
		}
		if _, ok := entry["operation"]; ok {
			t.Fatalf("expected empty operation to be omitted, got %#v", entry)
		}
	})
}
