package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
	"github.com/danrleybayoshi/horoscopo/internal/router"
)

// promMetrics holds the Prometheus side of a Collector. Each Collector owns
// its registry so tests and multiple instances do not collide.
type promMetrics struct {
	registry *prometheus.Registry

	lookups         *prometheus.CounterVec
	lookupDuration  *prometheus.HistogramVec
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	rewrites        *prometheus.CounterVec
	active          prometheus.Gauge
}

func newPromMetrics(c *Collector) *promMetrics {
	m := &promMetrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horoscopo_lookups_total",
				Help: "Horoscope lookups by result and serving provider.",
			},
			[]string{"result", "provider"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "horoscopo_lookup_duration_seconds",
				Help:    "Wall time of a full failover walk.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
			},
			[]string{"result"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horoscopo_provider_attempts_total",
				Help: "Provider attempts by outcome, including skipped providers.",
			},
			[]string{"provider", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "horoscopo_provider_attempt_duration_seconds",
				Help:    "Latency of single provider requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		rewrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "horoscopo_rewrites_total",
				Help: "Rewrite requests by result.",
			},
			[]string{"result"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "horoscopo_active_requests",
			Help: "API requests currently being processed.",
		}),
	}

	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "horoscopo_uptime_seconds",
			Help: "Seconds since the service started.",
		},
		func() float64 { return time.Since(c.startTime).Seconds() },
	)

	m.registry.MustRegister(
		m.lookups,
		m.lookupDuration,
		m.attempts,
		m.attemptDuration,
		m.rewrites,
		m.active,
		uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *promMetrics) observeAttempt(a horoscope.Attempt) {
	m.attempts.WithLabelValues(a.Provider, a.Outcome.String()).Inc()
	if a.Outcome != horoscope.OutcomeSkipped {
		m.attemptDuration.WithLabelValues(a.Provider).Observe(a.Latency.Seconds())
	}
}

func (m *promMetrics) observeLookup(provider, result string, latency time.Duration) {
	m.lookups.WithLabelValues(result, provider).Inc()
	m.lookupDuration.WithLabelValues(result).Observe(latency.Seconds())
}

// WatchProviders exports per-provider state read from rtr at scrape time.
func (c *Collector) WatchProviders(rtr *router.Router) error {
	return c.prom.registry.Register(&providerCollector{router: rtr})
}

// Handler returns the /metrics handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.prom.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.prom.registry
}

var (
	providerDisabledDesc = prometheus.NewDesc(
		"horoscopo_provider_disabled",
		"1 when the provider has been disabled after a credential or quota rejection.",
		[]string{"provider"}, nil,
	)
	providerCredentialDesc = prometheus.NewDesc(
		"horoscopo_provider_has_credential",
		"1 when the provider has a non-blank credential.",
		[]string{"provider"}, nil,
	)
	providersAvailableDesc = prometheus.NewDesc(
		"horoscopo_providers_available",
		"Providers that are neither disabled nor missing a credential.",
		nil, nil,
	)
)

// providerCollector reports router state. The disabled flag lives on the
// providers, so it is read rather than tracked.
type providerCollector struct {
	router *router.Router
}

func (p *providerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- providerDisabledDesc
	ch <- providerCredentialDesc
	ch <- providersAvailableDesc
}

func (p *providerCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range p.router.Statuses() {
		ch <- prometheus.MustNewConstMetric(providerDisabledDesc, prometheus.GaugeValue, boolFloat(s.Disabled), s.Name)
		ch <- prometheus.MustNewConstMetric(providerCredentialDesc, prometheus.GaugeValue, boolFloat(s.HasCredential), s.Name)
	}
	ch <- prometheus.MustNewConstMetric(providersAvailableDesc, prometheus.GaugeValue, float64(p.router.Available()))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
