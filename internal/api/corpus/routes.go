package corpus

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all corpus API routes.
// Full corpus resource names must be URL-encoded in the delete routes; the files
// route also accepts them unencoded. limit guards the routes that call the model.
func RegisterRoutes(r chi.Router, h *Handler, limit func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.With(limit).Post("/query", h.Query)
		r.With(limit).Post("/query/export", h.Export)
		r.Get("/files/*", h.ListFiles)
		r.Delete("/corpus/{corpus_name}/document", h.DeleteDocument)
		r.Delete("/corpus/{corpus_name}", h.DeleteCorpus)
	})
}
