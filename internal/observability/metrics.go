package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "biomap"

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	// City load metrics.
	CityLoads           *prometheus.CounterVec // labels: outcome={success,empty_input,not_found,transport_error,superseded}
	CityLoadDuration    prometheus.Histogram
	ObservationsFetched prometheus.Histogram
	TruncatedLoads      prometheus.Counter

	// Filter and render metrics.
	FilterPasses        prometheus.Counter
	ObservationsVisible prometheus.Histogram
	ActiveSessions      prometheus.Gauge

	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: api={nominatim,inaturalist}, outcome={success,error,empty}
	UpstreamDuration *prometheus.HistogramVec // labels: api={nominatim,inaturalist}

	// Snapshot sink metrics.
	SnapshotsPublished prometheus.Counter
	SnapshotErrors     prometheus.Counter
	SnapshotEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CityLoads,
		m.CityLoadDuration,
		m.ObservationsFetched,
		m.TruncatedLoads,
		m.FilterPasses,
		m.ObservationsVisible,
		m.ActiveSessions,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.SnapshotsPublished,
		m.SnapshotErrors,
		m.SnapshotEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CityLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "city_loads_total",
			Help:      "City load actions by outcome.",
		}, []string{"outcome"}),
		CityLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "city_load_duration_seconds",
			Help:      "Duration of a complete geocode, fetch, and render cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ObservationsFetched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "observations_fetched",
			Help:      "Number of observations returned per city load.",
			Buckets:   []float64{0, 1, 10, 25, 50, 100, 150, 200},
		}),
		TruncatedLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_loads_total",
			Help:      "City loads where the API reported more observations than one page holds.",
		}),
		FilterPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_passes_total",
			Help:      "Filter and render passes, including those triggered by a city load.",
		}),
		ObservationsVisible: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "observations_visible",
			Help:      "Number of observations passing the filter per render pass.",
			Buckets:   []float64{0, 1, 10, 25, 50, 100, 150, 200},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Browser sessions holding an observation list in memory.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by api and outcome.",
		}, []string{"api", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"api"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "City snapshots written to the Kafka sink topic.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "City snapshots that failed to publish.",
		}),
		SnapshotEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_enabled",
			Help:      "1 when the Kafka snapshot sink is enabled, 0 otherwise.",
		}),
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(api, outcome string, seconds float64) {
	m.UpstreamRequests.WithLabelValues(api, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(api).Observe(seconds)
}
