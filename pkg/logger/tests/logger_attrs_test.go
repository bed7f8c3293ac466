package tests

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

func TestInit_JSONBackend_DomainAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service:    "lobby",
		Env:        "staging",
		Backend:    logger.BackendJSON,
		InstanceID: "i-1",
		Output:     &buf,
	})

	slog.Info("match provisioned",
		logger.RoomCode("AB12CD34"), logger.UserID(7), logger.Stage("codes"),
		logger.Err(errors.New("boom")), logger.Err(nil))

	m := lastJSONLine(t, &buf)
	if m["env"] != "stage" || m["instance_id"] != "i-1" {
		t.Fatalf("common attrs: %v", m)
	}
	if m["room_code"] != "AB12CD34" || m["stage"] != "codes" || m["err"] != "boom" {
		t.Fatalf("domain attrs: %v", m)
	}
	if m["user_id"] != float64(7) {
		t.Fatalf("user_id: %v", m["user_id"])
	}
}

func TestWith_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = logger.With(ctx, logger.RoomCode("ZZ"))

	logger.FromContext(ctx).Info("scoped")

	if !bytes.Contains(buf.Bytes(), []byte("room_code=ZZ")) {
		t.Fatalf("attr not carried: %s", buf.String())
	}
}
