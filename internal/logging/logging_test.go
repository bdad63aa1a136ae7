package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestSlogJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Writer: &buf})

	log.With(String("component", "cli")).Debug(context.Background(), "evaluated", Float64("snr_db", 12.5))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal slog record %q: %v", buf.String(), err)
	}
	if rec["msg"] != "evaluated" {
		t.Fatalf("msg = %v, want evaluated", rec["msg"])
	}
	if rec["component"] != "cli" {
		t.Fatalf("component = %v, want cli", rec["component"])
	}
	if rec["snr_db"] != 12.5 {
		t.Fatalf("snr_db = %v, want 12.5", rec["snr_db"])
	}
}

func TestLevelFiltering(t *testing.T) {
	for _, backend := range []string{BackendSlog, BackendLogrus} {
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: "warn", Backend: backend, Writer: &buf})

			log.Info(context.Background(), "quiet")
			if buf.Len() != 0 {
				t.Fatalf("info record written at warn level: %q", buf.String())
			}
			log.Warn(context.Background(), "loud")
			if !strings.Contains(buf.String(), "loud") {
				t.Fatalf("warn record missing: %q", buf.String())
			}
		})
	}
}

func TestLogrusJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Backend: BackendLogrus, Writer: &buf})

	log.With(String("request_id", "abc")).Error(context.Background(), "failed", Int("code", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal logrus record %q: %v", buf.String(), err)
	}
	if rec["msg"] != "failed" || rec["level"] != "error" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["request_id"] != "abc" {
		t.Fatalf("request_id = %v, want abc", rec["request_id"])
	}
	if rec["code"] != float64(3) {
		t.Fatalf("code = %v, want 3", rec["code"])
	}
}

func TestRequestIDHelpers(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRequestID returned empty id")
	}
	if got := RequestIDFromContext(ctx); got != id {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, id)
	}

	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatalf("EnsureRequestID replaced an existing id: %q -> %q", id, id2)
	}

	if got := RequestIDFromContext(ContextWithRequestID(context.Background(), "given")); got != "given" {
		t.Fatalf("RequestIDFromContext = %q, want given", got)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	stored := New(Config{Writer: &buf})

	if got := FromContext(ContextWithLogger(context.Background(), stored), nil); got != stored {
		t.Fatalf("FromContext did not return the stored logger")
	}
	if _, ok := FromContext(context.Background(), nil).(noopLogger); !ok {
		t.Fatalf("FromContext without logger or fallback should be Noop")
	}
	if got := FromContext(context.Background(), stored); got != stored {
		t.Fatalf("FromContext did not return the fallback")
	}
}
