package tests

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/cwrk-planet/lobby-service/pkg/logger"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestAttrsFromCtx_PropagatesTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service:          "lobby",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		SampleInitial:    100000,
		SampleThereafter: 100000,
		Output:           &buf,
	})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	slog.InfoContext(ctx, "with trace", toArgs(ctx)...)
	span.End()
	_ = logger.Sync()

	m := lastJSONLine(t, &buf)
	if m["trace_id"] == nil || m["span_id"] == nil {
		t.Fatalf("trace_id/span_id missing in log: %v", m)
	}
	if m["msg"] != "with trace" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
}

func TestAttrsFromCtx_NoSpan(t *testing.T) {
	if attrs := logger.AttrsFromCtx(context.Background()); attrs != nil {
		t.Fatalf("expected no attrs, got %v", attrs)
	}
}

func TestFromContext_UsesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logger.WithContext(context.Background(), base.With("req_id", "r-1"))

	logger.FromContext(ctx).Info("scoped")

	if got := buf.String(); !bytes.Contains([]byte(got), []byte("req_id=r-1")) {
		t.Fatalf("request logger not used: %s", got)
	}
}
