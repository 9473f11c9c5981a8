// Package metrics exposes the per-page-load aggregate spec.md §6
// describes as "the core emits one aggregate report on completion" as
// Prometheus collectors, following the metrics shape
// kailas-cloud-vecdex registers under its prometheus/client_golang
// dependency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups the counters and histogram a Scheduler reports
// into on termination. A nil *Collectors is valid and a no-op, so
// callers that don't want Prometheus wiring can omit it entirely.
type Collectors struct {
	Completed *prometheus.CounterVec
	Duration  prometheus.Histogram
}

// NewCollectors builds and registers a fresh set of collectors against
// reg. Passing prometheus.NewRegistry() keeps tests isolated from the
// global default registry.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resourcefetch_subresources_completed_total",
			Help: "Sub-resource fetches completed, partitioned by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resourcefetch_page_load_seconds",
			Help:    "Wall-clock time from scheduler construction to termination.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.Completed, c.Duration)
	return c
}

// ObserveTermination records one page load's aggregate report.
func (c *Collectors) ObserveTermination(ok, ko int, elapsedSeconds float64) {
	if c == nil {
		return
	}
	c.Completed.WithLabelValues("ok").Add(float64(ok))
	c.Completed.WithLabelValues("ko").Add(float64(ko))
	c.Duration.Observe(elapsedSeconds)
}
