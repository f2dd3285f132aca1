package metrics

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"khaos-quiz-service/internal/domain"
	"khaos-quiz-service/internal/generator"
)

// Metrics holds the service collectors, registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		completions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_ai_completions_total",
				Help: "Total number of AI completion calls",
			},
			[]string{"status"}, // status: success/failure
		),
		completionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_ai_completion_duration_seconds",
				Help:    "Time spent waiting on the AI provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentCompleter records the outcome and latency of every completion.
func (m *Metrics) InstrumentCompleter(next generator.Completer) generator.Completer {
	return &instrumentedCompleter{next: next, m: m}
}

type instrumentedCompleter struct {
	next generator.Completer
	m    *Metrics
}

func (c *instrumentedCompleter) Complete(ctx context.Context, messages []domain.Message, maxTokens int) (domain.Message, error) {
	start := time.Now()
	reply, err := c.next.Complete(ctx, messages, maxTokens)
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.m.completions.WithLabelValues(status).Inc()
	c.m.completionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return reply, err
}

// Middleware counts requests by chi route pattern and status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack is required for websocket upgrades behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
