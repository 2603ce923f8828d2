package metrics

import (
	"net/http"

	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var connectionStates = []models.ConnectionState{
	models.ConnectionDisconnected,
	models.ConnectionConnecting,
	models.ConnectionConnected,
	models.ConnectionError,
}

// Metrics holds Prometheus collectors for the timer engine. It satisfies
// gsi.Metrics and alerts.Sink so it can be handed straight to both.
type Metrics struct {
	registry        *prometheus.Registry
	alertsTotal     *prometheus.CounterVec
	pollsTotal      *prometheus.CounterVec
	connectionState *prometheus.GaugeVec
	activeTimers    prometheus.Gauge
	requestsTotal   prometheus.Counter
	errorsTotal     prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	alertsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gametimer_alerts_total",
		Help: "Timer alerts fired, by kind",
	}, []string{"kind"})
	pollsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gametimer_gsi_polls_total",
		Help: "Game state polls, by outcome",
	}, []string{"outcome"})
	connectionState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gametimer_gsi_connection_state",
		Help: "1 for the current game state feed connection state, 0 otherwise",
	}, []string{"state"})
	activeTimers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gametimer_active_timers",
		Help: "Number of running timer instances",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gametimer_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gametimer_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		alertsTotal,
		pollsTotal,
		connectionState,
		activeTimers,
		requestsTotal,
		errorsTotal,
	)

	return &Metrics{
		registry:        registry,
		alertsTotal:     alertsTotal,
		pollsTotal:      pollsTotal,
		connectionState: connectionState,
		activeTimers:    activeTimers,
		requestsTotal:   requestsTotal,
		errorsTotal:     errorsTotal,
	}
}

// Notify counts a fired alert.
func (m *Metrics) Notify(alert models.Alert) {
	m.alertsTotal.WithLabelValues(string(alert.Kind)).Inc()
}

func (m *Metrics) RecordPoll(outcome string) {
	m.pollsTotal.WithLabelValues(outcome).Inc()
}

// SetConnectionState marks state as the only active connection state.
func (m *Metrics) SetConnectionState(state models.ConnectionState) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.connectionState.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) SetActiveTimers(n int) {
	m.activeTimers.Set(float64(n))
}

func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Registry exposes the underlying registry so callers can gather from it directly.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
