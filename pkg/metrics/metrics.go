package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	SymbolsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_symbols_processed_total",
		Help: "Total number of symbols processed by outcome",
	}, []string{"status"})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_validation_failures_total",
		Help: "Total number of failed validation checks",
	}, []string{"check"})

	RowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etl_rows_written_total",
		Help: "Total number of price rows written to the destination table",
	})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etl_fetch_duration_seconds",
		Help:    "Duration of market data fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	SaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "etl_save_duration_seconds",
		Help:    "Duration of destination table replaces",
		Buckets: prometheus.DefBuckets,
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etl_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run",
	})
)

func RecordSymbol(status string) {
	SymbolsProcessed.WithLabelValues(status).Inc()
}

func RecordValidationFailure(check string) {
	ValidationFailures.WithLabelValues(check).Inc()
}

func RecordRowsWritten(n int) {
	RowsWritten.Add(float64(n))
}

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordDatabaseQuery(queryType, status string) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
}

// Push sends every registered collector to a Pushgateway. Batch jobs exit
// before a scrape would happen, so the run pushes once at the end.
func Push(ctx context.Context, gatewayURL, job string) error {
	LastRunTimestamp.SetToCurrentTime()
	return push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
