package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agentstation/quotesync/internal/server/handlers"
	"github.com/agentstation/quotesync/internal/server/middleware"
	"github.com/agentstation/quotesync/internal/server/response"
)

// setupRouter builds the chi router with middleware and routes.
func (s *Server) setupRouter() http.Handler {
	h := handlers.New(handlers.Deps{
		Client:         s.client,
		Cache:          s.cache,
		Broker:         s.broker,
		WSHub:          s.wsHub,
		SSEBroadcaster: s.sseBroadcaster,
		Metrics:        s.metrics,
		Upgrader:       s.upgrader,
		Logger:         s.logger,
		StartTime:      s.startTime,
	})

	r := chi.NewRouter()
	s.applyMiddleware(r)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.Fail(
			"METHOD_NOT_ALLOWED",
			"Method not allowed",
			"Method "+r.Method+" is not supported for this endpoint",
		))
	})

	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/health", h.HandleHealth)
	if s.config.MetricsEnabled {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route(s.config.PathPrefix, func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/ready", h.HandleReady)
		r.Get("/stats", h.HandleStats)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.HandleListRecords)
			r.Post("/", h.HandleCreateRecord)
			r.Get("/current", h.HandleCurrent)
			r.Post("/next", h.HandleNext)
			r.Get("/{key}", h.HandleGetRecord)
			r.Delete("/{key}", h.HandleDeleteRecord)
		})

		r.Get("/categories", h.HandleCategories)
		r.Get("/filter", h.HandleGetFilter)
		r.Put("/filter", h.HandleSetFilter)

		r.Post("/import", h.HandleImport)
		r.Get("/export", h.HandleExport)

		r.Post("/sync", h.HandleSync)
		r.Get("/sync/status", h.HandleSyncStatus)
		r.Post("/undo", h.HandleUndo)

		r.Get("/conflicts", h.HandleConflicts)
		r.Post("/conflicts/{key}/resolve", h.HandleResolve)

		r.Get("/updates/ws", h.HandleWebSocket)
		r.Get("/updates/stream", h.HandleSSE)
	})

	return r
}

// applyMiddleware installs the middleware chain, outermost first.
func (s *Server) applyMiddleware(r chi.Router) {
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(s.logger))
	if s.config.MetricsEnabled {
		r.Use(s.metrics.Middleware)
	}
	if s.config.CORSEnabled {
		cfg := middleware.DefaultCORSConfig()
		if len(s.config.CORSOrigins) > 0 {
			cfg.AllowedOrigins = s.config.CORSOrigins
			cfg.AllowAll = false
		}
		r.Use(middleware.CORS(cfg))
	}
}
