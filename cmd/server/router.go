package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rdmrecords/internal/platform/metrics"
	"rdmrecords/internal/platform/middleware"
	"rdmrecords/internal/records/handler"
	dErrors "rdmrecords/pkg/domain-errors"
	"rdmrecords/pkg/platform/httputil"
)

func newRouter(a *app) http.Handler {
	httpMetrics := metrics.NewWithRegisterer(a.registerer)
	validator := middleware.NewHS256Validator(a.cfg.Server.JWTSigningKey, a.cfg.Server.JWTIssuer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.Recovery(a.logger))
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.ready(r.Context()); err != nil {
			a.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "backends unavailable"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	records := handler.New(a.service, a.logger)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, a.logger))
		records.Register(r)
	})
	return r
}
