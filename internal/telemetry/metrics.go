package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Metrics; nil *Metrics - валидный no-op.
type Metrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	lobbyOps       *prometheus.CounterVec
	provisioning   *prometheus.HistogramVec
	inflight       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lobby",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lobby",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		lobbyOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lobby",
			Subsystem: "rooms",
			Name:      "operations_total",
			Help:      "Room lifecycle operations by outcome",
		}, []string{"op", "result"}),
		provisioning: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lobby",
			Subsystem: "provisioning",
			Name:      "workflow_duration_seconds",
			Help:      "Duration of match provisioning workflows",
			Buckets:   histogramBuckets,
		}, []string{"result", "stage"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lobby",
			Subsystem: "provisioning",
			Name:      "workflows_inflight",
			Help:      "Provisioning workflows currently running",
		}),
	}

	m.requestTotal = register(reg, m.requestTotal)
	m.requestLatency = register(reg, m.requestLatency)
	m.lobbyOps = register(reg, m.lobbyOps)
	m.provisioning = register(reg, m.provisioning)
	m.inflight = register(reg, m.inflight)
	return m
}

// register возвращает уже зарегистрированный коллектор при повторной регистрации.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(d.Seconds())
}

func (m *Metrics) LobbyOp(op, result string) {
	if m == nil {
		return
	}
	m.lobbyOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) WorkflowStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) WorkflowFinished(result, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.provisioning.WithLabelValues(result, stage).Observe(d.Seconds())
}
