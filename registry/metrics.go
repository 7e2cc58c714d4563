package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/materium/registry/metric"
)

const metricsService = "registry_engine"

// Metrics holds the engine's Prometheus instruments. All engine code paths
// tolerate a nil *Metrics so metrics stay optional.
type Metrics struct {
	syncPasses     *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	projectionSize prometheus.Gauge
	recordsSkipped *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	indexRepairs   prometheus.Counter
}

// NewMetrics creates and registers the engine metrics with the registry.
func NewMetrics(registry *metric.Registry) (*Metrics, error) {
	m := &Metrics{
		syncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_sync_passes_total",
			Help: "Synchronization passes by outcome",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "registry_sync_duration_seconds",
			Help:    "Time spent building the local projection",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		projectionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "registry_projection_records",
			Help: "Records in the current local projection",
		}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_records_skipped_total",
			Help: "Records skipped during sync by reason",
		}, []string{"reason"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_submissions_total",
			Help: "Record submissions by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_transitions_total",
			Help: "Status transitions by outcome",
		}, []string{"outcome"}),
		indexRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "registry_index_repairs_total",
			Help: "Orphan records re-attached to the index by retry",
		}),
	}

	if err := registry.RegisterCounterVec(metricsService, "registry_sync_passes_total", m.syncPasses); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(metricsService, "registry_sync_duration_seconds", m.syncDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(metricsService, "registry_projection_records", m.projectionSize); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(metricsService, "registry_records_skipped_total", m.recordsSkipped); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(metricsService, "registry_submissions_total", m.submissions); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(metricsService, "registry_transitions_total", m.transitions); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(metricsService, "registry_index_repairs_total", m.indexRepairs); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordSyncPass(outcome string, seconds float64, size int) {
	if m == nil {
		return
	}
	m.syncPasses.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.syncDuration.Observe(seconds)
		m.projectionSize.Set(float64(size))
	}
}

func (m *Metrics) recordSkip(reason string) {
	if m == nil {
		return
	}
	m.recordsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordTransition(outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordIndexRepair() {
	if m == nil {
		return
	}
	m.indexRepairs.Inc()
}
