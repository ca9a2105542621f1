package page

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the HTML pages and the bucket/upload endpoints they call.
// limit guards the upload, which runs the whole import pipeline.
func RegisterRoutes(r chi.Router, h *Handler, limit func(http.Handler) http.Handler) {
	r.Get("/", h.Index)
	r.Get("/chat", h.Chat)

	r.Get("/buckets", h.ListBuckets)
	r.Get("/buckets/permissions", h.Permissions)
	r.Post("/bucket/create", h.CreateBucket)

	r.Get("/upload", h.UploadForm)
	r.With(limit).Post("/upload", h.Upload)
	r.Get("/upload/status/{upload_id}", h.UploadStatus)
}
