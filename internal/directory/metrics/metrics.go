package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the record directory.
// Tracks mutation counts, load rejections and persistence cost.
type Metrics struct {
	RecordsCreated  prometheus.Counter
	RecordsUpdated  prometheus.Counter
	RecordsDeleted  prometheus.Counter
	RecordsSkipped  prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
	Records         prometheus.Gauge
}

// New creates the directory metrics and registers them with reg.
// A nil reg creates unregistered collectors, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "persondir_records_created_total",
			Help: "Total number of records created",
		}),
		RecordsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "persondir_records_updated_total",
			Help: "Total number of records updated",
		}),
		RecordsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "persondir_records_deleted_total",
			Help: "Total number of records deleted",
		}),
		RecordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "persondir_records_skipped_on_load_total",
			Help: "Records rejected by validation while loading the persisted source",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "persondir_persist_failures_total",
			Help: "Writes to the persistence sink that failed after a mutation",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "persondir_persist_duration_seconds",
			Help:    "Duration of full-snapshot writes to the persistence sink",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Records: factory.NewGauge(prometheus.GaugeOpts{
			Name: "persondir_records",
			Help: "Number of records currently held in memory",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.RecordsCreated.Inc()
}

func (m *Metrics) IncrementUpdated() {
	m.RecordsUpdated.Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.RecordsDeleted.Inc()
}

func (m *Metrics) IncrementSkipped() {
	m.RecordsSkipped.Inc()
}

func (m *Metrics) IncrementPersistFailures() {
	m.PersistFailures.Inc()
}

// ObservePersist records the duration of a sink write.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePersist(start time.Time) {
	m.PersistDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetRecords(n int) {
	m.Records.Set(float64(n))
}
