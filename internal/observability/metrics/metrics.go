// Package metrics exposes prometheus instrumentation for the ingestion
// pipeline and the scheduled billing jobs.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels stamped on every metric.
type Config struct {
	ServiceName string
	Environment string
}

// Jobs captures scheduled-job health signals.
type Jobs struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	skips     *prometheus.CounterVec
	lockWaits *prometheus.HistogramVec
}

// Ingestion captures queue-drain throughput signals.
type Ingestion struct {
	entries       *prometheus.CounterVec
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
	consolidated  prometheus.Counter
}

var (
	once      sync.Once
	jobs      *Jobs
	ingestion *Ingestion
)

// WithConfig initialises the metric singletons with config labels.
func WithConfig(cfg Config) {
	once.Do(func() {
		jobs, ingestion = register(prometheus.DefaultRegisterer, cfg)
	})
}

// JobMetrics returns the scheduled-job metrics singleton.
func JobMetrics() *Jobs {
	WithConfig(Config{})
	return jobs
}

// IngestionMetrics returns the ingestion metrics singleton.
func IngestionMetrics() *Ingestion {
	WithConfig(Config{})
	return ingestion
}

// ResetForTest resets the singletons so tests can swap registries.
func ResetForTest() {
	once = sync.Once{}
	jobs = nil
	ingestion = nil
}

func register(registerer prometheus.Registerer, cfg Config) (*Jobs, *Ingestion) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "overflight"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	j := &Jobs{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "overflight_job_runs_total",
			Help:        "Scheduled job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "overflight_job_duration_seconds",
			Help:        "Scheduled job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800},
			ConstLabels: constLabels,
		}, []string{"job"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "overflight_job_errors_total",
			Help:        "Scheduled job failures by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "overflight_job_skips_total",
			Help:        "Scheduled job skips by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		lockWaits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "overflight_job_lock_wait_seconds",
			Help:        "Time spent acquiring the cross-instance job lock.",
			Buckets:     []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"job"}),
	}

	i := &Ingestion{
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "overflight_ingestion_entries_total",
			Help:        "Queue entries processed by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "overflight_ingestion_batches_total",
			Help:        "Drain cycles executed.",
			ConstLabels: constLabels,
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "overflight_ingestion_batch_duration_seconds",
			Help:        "Drain cycle latency including external calls.",
			Buckets:     []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "overflight_ingestion_queue_depth",
			Help:        "Backlog size observed at the start of a drain cycle.",
			ConstLabels: constLabels,
		}),
		consolidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "overflight_invoices_consolidated_total",
			Help:        "Individual invoices folded into consolidated invoices.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		j.runs, j.duration, j.errors, j.skips, j.lockWaits,
		i.entries, i.batches, i.batchDuration, i.queueDepth, i.consolidated,
	)

	return j, i
}

func (j *Jobs) IncRun(job string) {
	if j == nil {
		return
	}
	j.runs.WithLabelValues(job).Inc()
}

func (j *Jobs) ObserveDuration(job string, d time.Duration) {
	if j == nil {
		return
	}
	j.duration.WithLabelValues(job).Observe(d.Seconds())
}

func (j *Jobs) IncError(job string) {
	if j == nil {
		return
	}
	j.errors.WithLabelValues(job).Inc()
}

func (j *Jobs) IncSkip(job, reason string) {
	if j == nil {
		return
	}
	j.skips.WithLabelValues(job, reason).Inc()
}

func (j *Jobs) ObserveLockWait(job string, d time.Duration) {
	if j == nil {
		return
	}
	j.lockWaits.WithLabelValues(job).Observe(d.Seconds())
}

func (i *Ingestion) IncEntry(outcome string) {
	if i == nil {
		return
	}
	i.entries.WithLabelValues(outcome).Inc()
}

func (i *Ingestion) IncBatch() {
	if i == nil {
		return
	}
	i.batches.Inc()
}

func (i *Ingestion) ObserveBatchDuration(d time.Duration) {
	if i == nil {
		return
	}
	i.batchDuration.Observe(d.Seconds())
}

func (i *Ingestion) SetQueueDepth(depth int64) {
	if i == nil {
		return
	}
	i.queueDepth.Set(float64(depth))
}

func (i *Ingestion) AddConsolidated(n int) {
	if i == nil {
		return
	}
	i.consolidated.Add(float64(n))
}

// SkipReasonLockNotAcquired marks a job skipped because another instance
// holds the lock.
const SkipReasonLockNotAcquired = "lock_not_acquired"
