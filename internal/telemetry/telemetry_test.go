package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/rooms", 200, time.Millisecond)
	m.LobbyOp("join", "ok")
	m.WorkflowStarted()
	m.WorkflowFinished("ok", "", time.Second)
}

func TestMetrics_CountsAndReRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.LobbyOp("join", "ok")
	m.LobbyOp("join", "ok")

	again := NewMetrics(reg)
	again.LobbyOp("join", "ok")

	require.Equal(t, 3.0, testutil.ToFloat64(m.lobbyOps.WithLabelValues("join", "ok")))

	m.WorkflowStarted()
	require.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
	m.WorkflowFinished("ok", "", time.Second)
	require.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
