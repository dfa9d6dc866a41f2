package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers every endpoint on router. Diagram endpoints send
// their stored gzip bytes themselves, so only the JSON listings go through
// the compressor.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Get("/healthz", h.Health)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5, "application/json"))
			r.Get("/schemas", h.Schemas)
			r.Get("/schemas/{schema}/tables", h.Tables)
			r.Get("/schemas/{schema}/tables/{table}/columns", h.Columns)
		})
		r.Get("/schemas/{schema}/diagram", h.SchemaDiagram)
		r.Get("/related", h.Related)
		r.Get("/route", h.Route)
		if h.notifier != nil {
			r.Get("/events", h.Events)
		}
	})
}
