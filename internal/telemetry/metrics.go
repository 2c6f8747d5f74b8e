package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCollected     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "jobs_collected_total", Help: "Jobs returned by source adapters"}, []string{"source"})
	SourceFailures    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "source_failures_total", Help: "Adapter runs that failed or timed out"}, []string{"source"})
	JobsInserted      = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_inserted_total", Help: "New records written to the store"})
	DuplicateUpserts  = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_duplicate_upserts_total", Help: "Upserts that found the record already present"})
	JobsDeleted       = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_deleted_total", Help: "Records removed by retention sweeps"})
	DeleteFailures    = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_delete_failures_total", Help: "Keys that failed to delete during a sweep"})
	SweepFailures     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "retention_sweep_failures_total", Help: "Scheduled retention runs that errored"}, []string{"task"})
	StoreSizeGauge    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "store_records", Help: "Records currently in the store"})
	CollectionRuns    = prometheus.NewCounter(prometheus.CounterOpts{Name: "collection_runs_total", Help: "Collection passes started"})
	RateLimitRejects  = prometheus.NewCounter(prometheus.CounterOpts{Name: "source_rate_limit_waits_total", Help: "Adapter requests delayed by the rate limiter"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCollected,
			SourceFailures,
			JobsInserted,
			DuplicateUpserts,
			JobsDeleted,
			DeleteFailures,
			SweepFailures,
			StoreSizeGauge,
			CollectionRuns,
			RateLimitRejects,
		)
	})
	return promhttp.Handler()
}
