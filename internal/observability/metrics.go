package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bodymetrics"

var (
	historyRecordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "records",
		Help:      "Number of measurement records currently held in memory.",
	})
	lastAppendedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "last_record_appended_timestamp_seconds",
		Help:      "Unix timestamp of the most recent measurement record appended.",
	})
	storeLoadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "load_failures_total",
		Help:      "Number of times the persisted history could not be loaded and an empty history was used.",
	})
	// Exported so tests in other packages can read them through testutil.
	AnalyticsComputations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analytics",
		Name:      "computations_total",
		Help:      "Number of analytics computations by operation and outcome.",
	}, []string{"operation", "outcome"})
	analyticsDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analytics",
		Name:      "duration_seconds",
		Help:      "Time spent computing analytics reports.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	}, []string{"operation"})
	TimestampParseErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analytics",
		Name:      "timestamp_parse_errors_total",
		Help:      "Number of trend computations rejected because a record timestamp was malformed.",
	})
)

// Analytics outcomes.
const (
	OutcomeReport = "report"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
)

func init() {
	prometheus.MustRegister(historyRecordsGauge, lastAppendedGauge, storeLoadFailures, AnalyticsComputations, analyticsDuration, TimestampParseErrors)
}

// SetHistorySize updates the in-memory record gauge.
func SetHistorySize(n int) {
	historyRecordsGauge.Set(float64(n))
}

// RecordAppended updates the append watermark gauge.
func RecordAppended(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastAppendedGauge.Set(float64(ts.Unix()))
}

// RecordStoreLoadFailure counts a history load that fell back to empty.
func RecordStoreLoadFailure() {
	storeLoadFailures.Inc()
}

// ObserveAnalytics records the outcome and latency of an analytics computation.
func ObserveAnalytics(operation, outcome string, elapsed time.Duration) {
	AnalyticsComputations.WithLabelValues(operation, outcome).Inc()
	analyticsDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if outcome == OutcomeError {
		TimestampParseErrors.Inc()
	}
}
