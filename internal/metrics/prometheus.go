package metrics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runoshun/par/internal/domain"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	logger *slog.Logger

	// Job metrics
	jobsQueuedTotal    prometheus.Counter
	jobsRunning        prometheus.Gauge
	jobsFinishedTotal  *prometheus.CounterVec
	jobsSkippedTotal   *prometheus.CounterVec
	jobsTruncatedTotal prometheus.Counter
	jobDuration        *prometheus.HistogramVec

	// Run metrics
	runDuration      prometheus.Gauge
	runSuccessRatio  prometheus.Gauge
	runLastCompleted prometheus.Gauge
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// Metrics that fail to register keep working but are not exported.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &PrometheusSink{logger: logger}
	s.initJobMetrics(reg)
	s.initRunMetrics(reg)
	return s
}

func (s *PrometheusSink) initJobMetrics(reg prometheus.Registerer) {
	s.jobsQueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "par_jobs_queued_total",
		Help: "Total number of jobs queued.",
	})
	s.jobsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "par_jobs_running",
		Help: "Number of jobs currently running.",
	})
	s.jobsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "par_jobs_finished_total",
		Help: "Total number of finished jobs by status.",
	}, []string{"status"})
	s.jobsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "par_jobs_skipped_total",
		Help: "Total number of jobs that never started, by reason.",
	}, []string{"reason"})
	s.jobsTruncatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "par_jobs_output_truncated_total",
		Help: "Total number of jobs whose captured output was truncated.",
	})
	s.jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "par_job_duration_seconds",
		Help:    "Job wall-clock duration in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"status"})

	s.register(reg, s.jobsQueuedTotal, "par_jobs_queued_total")
	s.register(reg, s.jobsRunning, "par_jobs_running")
	s.register(reg, s.jobsFinishedTotal, "par_jobs_finished_total")
	s.register(reg, s.jobsSkippedTotal, "par_jobs_skipped_total")
	s.register(reg, s.jobsTruncatedTotal, "par_jobs_output_truncated_total")
	s.register(reg, s.jobDuration, "par_job_duration_seconds")
}

func (s *PrometheusSink) initRunMetrics(reg prometheus.Registerer) {
	s.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "par_run_duration_seconds",
		Help: "Wall-clock duration of the last run in seconds.",
	})
	s.runSuccessRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "par_run_success_ratio",
		Help: "Fraction of successful jobs in the last run (0-1).",
	})
	s.runLastCompleted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "par_run_last_completed_timestamp_seconds",
		Help: "Unix time the last run completed.",
	})

	s.register(reg, s.runDuration, "par_run_duration_seconds")
	s.register(reg, s.runSuccessRatio, "par_run_success_ratio")
	s.register(reg, s.runLastCompleted, "par_run_last_completed_timestamp_seconds")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.Warn("metrics: failed to register collector", "name", name, "error", err)
	}
}

func (s *PrometheusSink) JobQueued() {
	s.jobsQueuedTotal.Inc()
}

func (s *PrometheusSink) JobStarted() {
	s.jobsRunning.Inc()
}

func (s *PrometheusSink) JobFinished(status domain.JobStatus, duration time.Duration, truncated bool) {
	s.jobsRunning.Dec()
	s.jobsFinishedTotal.WithLabelValues(string(status)).Inc()
	s.jobDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
	if truncated {
		s.jobsTruncatedTotal.Inc()
	}
}

func (s *PrometheusSink) JobSkipped(reason string) {
	s.jobsSkippedTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) RunCompleted(sum *domain.Summary) {
	s.runDuration.Set(sum.WallTime().Seconds())
	s.runSuccessRatio.Set(sum.SuccessRate() / 100)
	end := sum.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	s.runLastCompleted.Set(float64(end.Unix()))
}

// WriteTextfile writes every metric in g to path in the Prometheus text
// format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
