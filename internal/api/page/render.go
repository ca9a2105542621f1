package page

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

type pageData struct {
	Title string
	Error string

	ProjectID      string
	Buckets        []string
	SelectedBucket string

	CorpusName string
	BucketName string
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

// render executes the page into a buffer first so a template failure can still
// become a 500
func (h *Handler) render(ctx context.Context, w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		ctxzap.Error(ctx, "Failed to render page", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
