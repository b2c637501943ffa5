package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/oshokin/arming-scheduler/internal/logger"
)

// NewRouter builds the HTTP API router.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/panel_status", h.GetPanelStatus)
		r.Post("/panel_status", h.SetPanelStatus)

		r.Get("/buildings", h.ListBuildings)
		r.Route("/buildings/{id}", func(r chi.Router) {
			r.Get("/time", h.GetBuildingTime)
			r.Post("/time", h.SetBuildingTime)
			r.Post("/reevaluate", h.Reevaluate)
			r.Get("/history", h.History)
		})

		r.Get("/devices", h.ListDevices)
		r.Post("/devices/action", h.DeviceAction)

		r.Post("/proevents/ignore/bulk", h.IgnoreBulk)
	})

	return r
}

// requestLogger attaches a request-scoped logger to the context and logs
// every completed request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		ctx := logger.WithKV(logger.WithName(r.Context(), "http"),
			"request_id", middleware.GetReqID(r.Context()),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.InfoKV(ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(started),
		)
	})
}
