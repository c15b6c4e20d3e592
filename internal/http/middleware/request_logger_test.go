package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStructuredRequestLoggerLogsOneLine(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })

	h := StructuredRequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/passport/auth", nil))

	out := buf.String()
	if !strings.Contains(out, "http request") {
		t.Fatalf("expected log line, got %q", out)
	}
	if !strings.Contains(out, "status=418") {
		t.Fatalf("expected status in log line, got %q", out)
	}
	if !strings.Contains(out, "path=/passport/auth") {
		t.Fatalf("expected path in log line, got %q", out)
	}
}
