package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

func toArgs(ctx context.Context) []any {
	attrs := logger.AttrsFromCtx(ctx)
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}

// lastJSONLine разбирает последнюю непустую строку вывода.
func lastJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("expected JSON line, got %q, err=%v", buf.String(), err)
	}
	return m
}
