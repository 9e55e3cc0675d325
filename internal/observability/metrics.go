package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce               sync.Once
	httpDurationHistogram      *prometheus.HistogramVec
	payoutRequestCounter       *prometheus.CounterVec
	reviewTransitionCounter    *prometheus.CounterVec
	outcomeReportCounter       *prometheus.CounterVec
	integrityViolationCounter  *prometheus.CounterVec
	notificationDroppedCounter *prometheus.CounterVec
	workerRunCounter           *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		payoutRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_request_outcomes_total",
			Help: "Payout request creation attempts by outcome",
		}, []string{"outcome"})

		reviewTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_review_transitions_total",
			Help: "Approve/reject transitions applied by reviewers",
		}, []string{"action"})

		outcomeReportCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_outcome_reports_total",
			Help: "Processor outcome reports by result, including replays",
		}, []string{"result"})

		integrityViolationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_integrity_violations_total",
			Help: "Ledger invariant violations found by the integrity worker",
		}, []string{"kind"})

		notificationDroppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_events_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full",
		}, []string{"event_type"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			payoutRequestCounter,
			reviewTransitionCounter,
			outcomeReportCounter,
			integrityViolationCounter,
			notificationDroppedCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementPayoutRequestOutcome(outcome string) {
	if payoutRequestCounter == nil {
		return
	}
	payoutRequestCounter.WithLabelValues(outcome).Inc()
}

func IncrementReviewTransition(action string) {
	if reviewTransitionCounter == nil {
		return
	}
	reviewTransitionCounter.WithLabelValues(action).Inc()
}

func IncrementOutcomeReport(result string) {
	if outcomeReportCounter == nil {
		return
	}
	outcomeReportCounter.WithLabelValues(result).Inc()
}

func IncrementIntegrityViolation(kind string) {
	if integrityViolationCounter == nil {
		return
	}
	integrityViolationCounter.WithLabelValues(kind).Inc()
}

func IncrementNotificationDropped(eventType string) {
	if notificationDroppedCounter == nil {
		return
	}
	notificationDroppedCounter.WithLabelValues(eventType).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
