package tests

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

func TestInit_ProdZap_JSONWithLobbyAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service:       "lobby",
		Version:       "1.2.3",
		InstanceID:    "pod-a",
		Env:           logger.EnvProd,
		Backend:       logger.BackendZap,
		SampleInitial: -1,
		Output:        &buf,
	})
	slog.Info("room joined", logger.RoomCode("AB12CD34"), logger.UserID(42))
	slog.Debug("filtered out")
	if err := logger.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if strings.Contains(buf.String(), "filtered out") {
		t.Fatalf("debug leaked at info level: %s", buf.String())
	}
	m := lastJSONLine(t, &buf)
	if m["msg"] != "room joined" || m["level"] != "INFO" {
		t.Fatalf("msg/level: %v %v", m["msg"], m["level"])
	}
	if m["service"] != "lobby" || m["version"] != "1.2.3" || m["instance_id"] != "pod-a" {
		t.Fatalf("common attrs missing: %v", m)
	}
	if m["room_code"] != "AB12CD34" || m["user_id"] != float64(42) {
		t.Fatalf("domain attrs missing: %v", m)
	}
}

func TestInit_ZapSamplingDropsBurst(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		SampleInitial:    2,
		SampleThereafter: 1000,
		Output:           &buf,
	})
	for i := 0; i < 50; i++ {
		slog.Info("burst")
	}
	_ = logger.Sync()

	if n := strings.Count(buf.String(), `"burst"`); n >= 50 {
		t.Fatalf("sampling did not drop anything: %d lines", n)
	}
}
