package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Navigation kinds used as metric labels.
const (
	kindListing = "listing"
	kindDetail  = "detail"
	kindPolicy  = "policy"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry             *prometheus.Registry
	NavigationsTotal     *prometheus.CounterVec
	NavigationDuration   *prometheus.HistogramVec
	LinksDiscoveredTotal prometheus.Counter
	StabilizationPolls   prometheus.Counter
	RecordsTotal         prometheus.Counter
	RetriesTotal         prometheus.Counter
	PolicyCacheHits      prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	navigations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_navigations_total",
			Help: "Total page navigations issued by the scraper.",
		},
		[]string{"kind", "outcome"},
	)
	navigationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_navigation_duration_seconds",
			Help:    "Page navigation latency.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)
	links := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_links_discovered_total",
			Help: "Total app links collected from listing pages.",
		},
	)
	polls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_stabilization_polls_total",
			Help: "Total listing link polls while waiting for placeholders to resolve.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Total number of app records sent to the pipeline.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of links re-attempted on the retry pass.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_policy_cache_hits_total",
			Help: "Privacy policy snapshots served from the cache.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(navigations, navigationDuration, links, polls, records, retries, cacheHits, errorsTotal)

	return &Metrics{
		Registry:             registry,
		NavigationsTotal:     navigations,
		NavigationDuration:   navigationDuration,
		LinksDiscoveredTotal: links,
		StabilizationPolls:   polls,
		RecordsTotal:         records,
		RetriesTotal:         retries,
		PolicyCacheHits:      cacheHits,
		ErrorsTotal:          errorsTotal,
	}
}

// ObserveNavigation records one navigation and its latency.
func (m *Metrics) ObserveNavigation(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.NavigationsTotal.WithLabelValues(kind, outcome).Inc()
	m.NavigationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// AddLinks increments the discovered links counter.
func (m *Metrics) AddLinks(n int) {
	if m == nil {
		return
	}
	m.LinksDiscoveredTotal.Add(float64(n))
}

// IncPoll increments the stabilization poll counter.
func (m *Metrics) IncPoll() {
	if m == nil {
		return
	}
	m.StabilizationPolls.Inc()
}

// IncRecords increments the records counter.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

// AddRetries increments the retries counter.
func (m *Metrics) AddRetries(n int) {
	if m == nil {
		return
	}
	m.RetriesTotal.Add(float64(n))
}

// IncPolicyCacheHit increments the policy cache hit counter.
func (m *Metrics) IncPolicyCacheHit() {
	if m == nil {
		return
	}
	m.PolicyCacheHits.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
