package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
)

func TestLoggerFromContextAddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "INFO")
	t.Cleanup(func() { Init(os.Stdout, "INFO") })

	ctx := WithUser(WithRequestID(context.Background(), "req-1"), "alice")
	LoggerFromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-1" || entry["user"] != "alice" {
		t.Fatalf("missing context fields: %v", entry)
	}

	buf.Reset()
	LoggerFromContext(context.Background()).Debug("filtered")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at INFO level: %q", buf.String())
	}
}
