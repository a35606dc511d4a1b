package scan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for scan_computations_total.
const (
	resultOK       = "ok"
	resultInvalid  = "invalid"
	resultFailed   = "failed"
	resultCanceled = "canceled"
)

// Metrics holds the Prometheus collectors of an engine. A nil *Metrics records nothing.
type Metrics struct {
	computations  *prometheus.CounterVec
	duration      prometheus.Histogram
	levelDuration *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
	inputLength   prometheus.Histogram
}

// NewMetrics registers the scan collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		computations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_computations_total",
			Help: "Total prefix sum computations by result",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_computation_duration_seconds",
			Help:    "Wall-clock duration of a full computation",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}),
		levelDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scan_level_duration_seconds",
			Help:    "Duration of one level including its barrier",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		}, []string{"phase"}),
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_tasks_total",
			Help: "Worker tasks executed by phase",
		}, []string{"phase"}),
		inputLength: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_input_length",
			Help:    "Length of accepted inputs",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}
}

func (m *Metrics) observeComputation(result string, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(result).Inc()
	if result == resultInvalid {
		return
	}
	m.inputLength.Observe(float64(n))
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeLevel(phase Phase, tasks int, d time.Duration) {
	if m == nil {
		return
	}
	m.levelDuration.WithLabelValues(phase.String()).Observe(d.Seconds())
	m.tasks.WithLabelValues(phase.String()).Add(float64(tasks))
}
