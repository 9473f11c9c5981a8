// Package debugsrv exposes the aggregate report spec.md §1 calls "one
// aggregate report on completion" as a scrape-able /metrics endpoint,
// the way kailas-cloud-vecdex/cmd/vecdex/main.go mounts promhttp.Handler
// behind a chi router alongside a /healthz liveness check. This module
// has no request/response API of its own to serve — it is a library —
// so this is the entire surface: an optional sidecar a load-generator
// process can run to let its own operators scrape per-process
// sub-resource fetch counts.
package debugsrv

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds an http.Handler serving Prometheus metrics from reg at
// /metrics and a trivial liveness probe at /healthz.
func New(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
