// Package metrics exposes Prometheus collectors for the crawl console.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	streamEventsTotal          *prometheus.CounterVec
	streamMalformedTotal       prometheus.Counter
	streamReconnectsTotal      prometheus.Counter
	streamState                prometheus.Gauge
	commandsTotal              *prometheus.CounterVec
	exportsTotal               *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	httpInFlight               prometheus.Gauge

	once sync.Once
)

// Command results recorded by ObserveCommand.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times; every Observe helper calls
// it first.
func Init() {
	once.Do(func() {
		streamEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlconsole_stream_events_total",
				Help: "Stream events applied to the job store, labeled by event type.",
			},
			[]string{"type"},
		)

		streamMalformedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlconsole_stream_malformed_total",
				Help: "Stream payloads dropped because they could not be decoded.",
			},
		)

		streamReconnectsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlconsole_stream_reconnects_total",
				Help: "Times the push channel dropped and a reconnect was scheduled.",
			},
		)

		streamState = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawlconsole_stream_state",
				Help: "Push channel state: 0 connecting, 1 live, 2 disconnected.",
			},
		)

		commandsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlconsole_commands_total",
				Help: "Job commands sent to the crawl backend, labeled by action and result.",
			},
			[]string{"action", "result"},
		)

		exportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlconsole_report_exports_total",
				Help: "Report exports, labeled by blob backend and result.",
			},
			[]string{"backend", "result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		httpInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawlconsole_http_in_flight_requests",
				Help: "HTTP requests currently being served.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveStreamEvent counts one applied stream event.
func ObserveStreamEvent(eventType string) {
	Init()
	streamEventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveStreamMalformed counts one dropped payload.
func ObserveStreamMalformed() {
	Init()
	streamMalformedTotal.Inc()
}

// ObserveStreamReconnect counts one scheduled reconnect.
func ObserveStreamReconnect() {
	Init()
	streamReconnectsTotal.Inc()
}

// SetStreamState records the current connection state.
func SetStreamState(state int) {
	Init()
	streamState.Set(float64(state))
}

// ObserveCommand counts a job command by action and outcome.
func ObserveCommand(action string, err error) {
	Init()
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	commandsTotal.WithLabelValues(action, result).Inc()
}

// ObserveExport counts a report export by backend and outcome.
func ObserveExport(backend string, err error) {
	Init()
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	exportsTotal.WithLabelValues(backend, result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
