// internal/platform/metrics/prometheus.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the notifier's Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal          *prometheus.CounterVec
	ListingsFetched      prometheus.Gauge
	KnownListings        prometheus.Gauge
	NewListingsTotal     prometheus.Counter
	NotificationsTotal   *prometheus.CounterVec
	PersistFailuresTotal prometheus.Counter
	CycleDuration        prometheus.Histogram
}

// New registers every collector on a private registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scrape cycles by final phase.",
		}, []string{"phase"}),
		ListingsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_fetched",
			Help:      "Listings matching the filters in the last successful fetch.",
		}),
		KnownListings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "known_listings",
			Help:      "Listings in the Known-Set at the start of the last cycle.",
		}),
		NewListingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_listings_total",
			Help:      "Listings detected as new.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by delivery mode (rich, text, none).",
		}, []string{"mode"}),
		PersistFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "State writes that failed.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a scrape cycle.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.ListingsFetched,
		m.KnownListings,
		m.NewListingsTotal,
		m.NotificationsTotal,
		m.PersistFailuresTotal,
		m.CycleDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
