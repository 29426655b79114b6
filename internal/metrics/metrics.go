package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mesh"

// Outcome labels shared by the request and render metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeTransport   = "transport"
	OutcomeParse       = "parse"
	OutcomeApplication = "application"
	OutcomeRejected    = "rejected"
	OutcomeFallback    = "fallback"
	OutcomeError       = "error"
)

// Collector owns the frontend's prometheus collectors. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	renders         *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	breakerChanges  *prometheus.CounterVec
	cookieStoreSize prometheus.Gauge
}

// New registers the collectors on reg. A nil reg creates a private registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cms_requests_total",
				Help:      "CMS requests by method, status and outcome",
			},
			[]string{"method", "status", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cms_request_duration_seconds",
				Help:      "Duration of CMS requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Rendered responses by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		renderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Duration of node, view and error renders in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		breakerChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
		cookieStoreSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_cookie_store_entries",
				Help:      "Number of credential pairs holding a CMS session cookie",
			},
		),
	}
}

// ObserveRequest records one CMS call.
func (c *Collector) ObserveRequest(method string, status int, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, strconv.Itoa(status), outcome).Inc()
	c.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRender records one render of kind node, view, fragment or error.
func (c *Collector) ObserveRender(kind, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.renders.WithLabelValues(kind, outcome).Inc()
	c.renderDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// BreakerTransition records a circuit breaker state change. States use the
// gauge encoding documented on circuit_breaker_state.
func (c *Collector) BreakerTransition(name, from, to string) {
	if c == nil {
		return
	}
	c.breakerState.WithLabelValues(name).Set(stateValue(to))
	c.breakerChanges.WithLabelValues(name, from, to).Inc()
}

// SetCookieStoreSize records the number of cached CMS session cookies.
func (c *Collector) SetCookieStoreSize(size int) {
	if c == nil {
		return
	}
	c.cookieStoreSize.Set(float64(size))
}

// Handler exposes the collectors in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func stateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
