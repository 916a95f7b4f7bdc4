package metrics

import (
	"context"
	"strconv"

	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnmatchedRoute labels HTTP requests no route matched, keeping the number
// of series bounded.
const UnmatchedRoute = "unmatched"

// Metrics holds the collectors fed from engine and server events.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec
	QueryDuration       *prometheus.HistogramVec
	HandlerCallsTotal   *prometheus.CounterVec
	HandlerDuration     *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Counts queries by outcome; code is "OK" on success.
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sineql_queries_total",
				Help: "Total number of queries executed",
			},
			[]string{"code"},
		),
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sineql_query_duration_seconds",
				Help:    "Duration of queries in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"code"},
		),
		// Skipped calls are requests whose filter the handler declared
		// unsupported.
		HandlerCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sineql_handler_calls_total",
				Help: "Total number of handler calls by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		HandlerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sineql_handler_duration_seconds",
				Help:    "Duration of handler calls in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"type"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sineql_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sineql_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register feeds m from the events published on bus.
func (m *Metrics) Register(bus *eventbus.Bus) (unregister func()) {
	unsubs := []func(){
		eventbus.Subscribe(bus, func(_ context.Context, e events.QueryFinish) {
			code := e.Code
			if code == "" {
				code = "OK"
			}
			m.QueriesTotal.WithLabelValues(code).Inc()
			m.QueryDuration.WithLabelValues(code).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(bus, func(_ context.Context, e events.HandlerFinish) {
			outcome := "ok"
			switch {
			case e.Skipped:
				outcome = "skipped"
			case e.Err != nil:
				outcome = "error"
			}
			m.HandlerCallsTotal.WithLabelValues(e.Type, outcome).Inc()
			if !e.Skipped {
				m.HandlerDuration.WithLabelValues(e.Type).Observe(e.Duration.Seconds())
			}
		}),
		eventbus.Subscribe(bus, func(_ context.Context, e events.HTTPFinish) {
			route := e.Route
			if route == "" {
				route = UnmatchedRoute
			}
			m.HTTPRequestsTotal.WithLabelValues(e.Request.Method, route, strconv.Itoa(e.Status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(e.Request.Method, route).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
