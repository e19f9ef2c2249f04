package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestNewDevMode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "error")

	logger.Debug("test debug")
	logger.Info("test info")

	output := buf.String()
	if !strings.Contains(output, "test debug") {
		t.Error("expected debug message visible in dev mode")
	}
	if strings.HasPrefix(output, "{") {
		t.Error("dev mode should not log JSON")
	}
}

func TestNewProdMode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "visit_id", "abc")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(output, `"msg":"shown"`) || !strings.Contains(output, `"visit_id":"abc"`) {
		t.Errorf("expected JSON record, got %q", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	buf := captureDefault(t)

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/api/visits", nil)
	rec := httptest.NewRecorder()
	RequestLogger(inner).ServeHTTP(rec, req)

	output := buf.String()
	if !strings.Contains(output, "GET") || !strings.Contains(output, "/api/visits") {
		t.Errorf("expected method and path in log, got %q", output)
	}
	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header id = %q, want %q", got, seen)
	}
	if !strings.Contains(output, "bytes=2") {
		t.Errorf("expected byte count in log, got %q", output)
	}
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	captureDefault(t)

	req := httptest.NewRequest("GET", "/api/visits", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	RequestLogger(http.NotFoundHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "trace-123" {
		t.Errorf("request id = %q, want trace-123", got)
	}
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	buf := captureDefault(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	RequestLogger(inner).ServeHTTP(rec, req)

	if buf.Len() > 0 {
		t.Error("expected no log for /health path")
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	buf := captureDefault(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/missing", nil)
	rec := httptest.NewRecorder()
	RequestLogger(inner).ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), "status=404") || !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected 404 at warn level, got %q", buf.String())
	}
}
