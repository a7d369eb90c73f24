package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	pipelineInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fincore",
			Subsystem: "pipeline",
			Name:      "runs_inflight",
			Help:      "Current number of pipeline runs that have not settled.",
		},
	)

	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincore",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of settled pipeline runs.",
		},
		[]string{"pipeline", "state"},
	)

	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fincore",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs from submission to settlement.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"pipeline"},
	)

	scheduledRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincore",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job dispatches.",
		},
		[]string{"job", "success"},
	)

	scheduledDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fincore",
			Subsystem: "scheduler",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of scheduled job executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job"},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincore",
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Total number of ledger entries appended.",
		},
		[]string{"kind"},
	)

	ledgerRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fincore",
			Subsystem: "ledger",
			Name:      "insufficient_funds_total",
			Help:      "Total number of withdrawals rejected for insufficient funds.",
		},
	)

	journalRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincore",
			Subsystem: "journal",
			Name:      "records_total",
			Help:      "Total number of journal records written.",
		},
		[]string{"state"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincore",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published on topics.",
		},
		[]string{"topic"},
	)
)

func init() {
	Registry.MustRegister(
		pipelineInFlight,
		pipelineRuns,
		pipelineDuration,
		scheduledRuns,
		scheduledDuration,
		ledgerEntries,
		ledgerRejections,
		journalRecords,
		eventsPublished,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// PipelineRunStarted marks a submission as in flight.
func PipelineRunStarted() {
	pipelineInFlight.Inc()
}

// RecordPipelineRun records a settled pipeline run.
func RecordPipelineRun(pipeline, state string, duration time.Duration) {
	if pipeline == "" {
		pipeline = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	pipelineInFlight.Dec()
	pipelineRuns.WithLabelValues(pipeline, state).Inc()
	pipelineDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordScheduledJob records a scheduled job dispatch.
func RecordScheduledJob(job string, duration time.Duration, success bool) {
	if job == "" {
		job = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	result := "false"
	if success {
		result = "true"
	}
	scheduledRuns.WithLabelValues(job, result).Inc()
	scheduledDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordLedgerEntry records an appended ledger entry by kind.
func RecordLedgerEntry(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	ledgerEntries.WithLabelValues(kind).Inc()
}

// RecordInsufficientFunds records a rejected withdrawal.
func RecordInsufficientFunds() {
	ledgerRejections.Inc()
}

// RecordJournalRecord records a journal write by terminal state.
func RecordJournalRecord(state string) {
	if state == "" {
		state = "unknown"
	}
	journalRecords.WithLabelValues(state).Inc()
}

// RecordEventPublished records a topic publish.
func RecordEventPublished(topic string) {
	if topic == "" {
		topic = "unknown"
	}
	eventsPublished.WithLabelValues(topic).Inc()
}
