package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
)

// Refresh results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the Prometheus collectors of the service on a private
// registry, so several instances can coexist in tests.
//
// All metrics are prefixed with "opportunities_".
//
//   - opportunities_refresh_total{result}
//   - opportunities_refresh_duration_seconds
//   - opportunities_snapshot_records{bucket}
//   - opportunities_snapshot_built_timestamp_seconds
//   - opportunities_records_dropped_total
//   - opportunities_queries_total{mode}
//   - opportunities_cache_reads_total{outcome}
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	SnapshotRecords *prometheus.GaugeVec
	SnapshotBuiltAt prometheus.Gauge
	DroppedTotal    prometheus.Counter
	QueriesTotal    *prometheus.CounterVec
	CacheReadsTotal *prometheus.CounterVec
}

// New creates and registers the collectors plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opportunities_refresh_total",
				Help: "Snapshot refreshes by result",
			},
			[]string{"result"},
		),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "opportunities_refresh_duration_seconds",
			Help:    "Duration of snapshot refreshes in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		SnapshotRecords: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "opportunities_snapshot_records",
				Help: "Records per bucket in the current snapshot",
			},
			[]string{"bucket"}, // "general", "closing_soon", "featured"
		),
		SnapshotBuiltAt: f.NewGauge(prometheus.GaugeOpts{
			Name: "opportunities_snapshot_built_timestamp_seconds",
			Help: "Unix time the current snapshot was built",
		}),
		DroppedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "opportunities_records_dropped_total",
			Help: "Records dropped because they could not be normalized",
		}),
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opportunities_queries_total",
				Help: "Queries by mode",
			},
			[]string{"mode"},
		),
		CacheReadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opportunities_cache_reads_total",
				Help: "Snapshot store reads by outcome",
			},
			[]string{"outcome"}, // "hit", "miss", "error"
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSnapshot records the shape of a freshly published snapshot.
func (m *Metrics) ObserveSnapshot(snap *domain.Snapshot) {
	m.SnapshotRecords.WithLabelValues("general").Set(float64(len(snap.General)))
	m.SnapshotRecords.WithLabelValues("closing_soon").Set(float64(len(snap.ClosingSoon)))
	m.SnapshotRecords.WithLabelValues("featured").Set(float64(len(snap.Featured)))
	m.SnapshotBuiltAt.Set(float64(snap.BuiltAt.Unix()))
	m.DroppedTotal.Add(float64(snap.Stats.Dropped))
}
