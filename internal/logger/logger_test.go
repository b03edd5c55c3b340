package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/joestump/joe-forum/internal/logger"
)

func TestNew_StampsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	viewer := func(ctx context.Context) (slog.Attr, bool) {
		return slog.Int64("uid", 42), true
	}
	log, err := logger.New(&buf, "info", "json", logger.RequestID, viewer, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	log.With("component", "test").InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id = %v", rec["request_id"])
	}
	if rec["uid"] != float64(42) {
		t.Errorf("uid = %v", rec["uid"])
	}
	if rec["component"] != "test" {
		t.Errorf("component = %v", rec["component"])
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	log.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn not logged")
	}
}

func TestNew_RejectsBadInput(t *testing.T) {
	if _, err := logger.New(&bytes.Buffer{}, "loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := logger.New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRequestID_Missing(t *testing.T) {
	if _, ok := logger.RequestID(context.Background()); ok {
		t.Error("expected no attr without a request id")
	}
}
