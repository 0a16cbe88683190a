package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so several relays (and tests) can coexist in one process.
// All methods are safe on a nil receiver.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	apiInflight     prometheus.Gauge
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	relayOutcomes   *prometheus.CounterVec
	ttsCache        *prometheus.CounterVec
	handoffs        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lovabuddy_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lovabuddy_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "lovabuddy_http_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		upstreamCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lovabuddy_upstream_calls_total",
			Help: "Model API calls by operation, model and status.",
		}, []string{"op", "model", "status"}),
		upstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lovabuddy_upstream_call_duration_seconds",
			Help:    "Model API call latency.",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"op", "model"}),
		relayOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lovabuddy_relay_outcomes_total",
			Help: "Relay operation results by operation and outcome code.",
		}, []string{"op", "outcome"}),
		ttsCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lovabuddy_tts_cache_total",
			Help: "Speech cache lookups by backend and result.",
		}, []string{"backend", "result"}),
		handoffs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lovabuddy_handoffs_total",
			Help: "Prompt hand-offs by kind and event.",
		}, []string{"kind", "event"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveUpstream(op, model, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(op, model, status).Inc()
	m.upstreamLatency.WithLabelValues(op, model).Observe(d.Seconds())
}

func (m *Metrics) RelayOutcome(op, outcome string) {
	if m != nil {
		m.relayOutcomes.WithLabelValues(op, outcome).Inc()
	}
}

func (m *Metrics) TTSCache(backend string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ttsCache.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) Handoff(kind, event string) {
	if m != nil {
		m.handoffs.WithLabelValues(kind, event).Inc()
	}
}
