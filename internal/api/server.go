package api

import (
	"net/http"
	"time"

	corpusapi "github.com/futig/doc-chat/internal/api/corpus"
	"github.com/futig/doc-chat/internal/api/docs"
	"github.com/futig/doc-chat/internal/api/middleware"
	pageapi "github.com/futig/doc-chat/internal/api/page"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(pageHandler *pageapi.Handler, corpusHandler *corpusapi.Handler, limiter *middleware.RateLimiter, logger *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	// Uploads run the whole extract and import pipeline inside the request
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	docs.RegisterRoutes(r)

	pageapi.RegisterRoutes(r, pageHandler, limiter.Handler)
	corpusapi.RegisterRoutes(r, corpusHandler, limiter.Handler)

	return r
}
