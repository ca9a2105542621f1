package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/logger"
	"github.com/futig/doc-chat/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// Handler serves the JSON API used by the chat page
type Handler struct {
	usecase CorpusUsecase
	debug   bool
	logger  *zap.Logger
}

// NewHandler creates a corpus API handler. With debug set, internal error messages
// are returned to the client.
func NewHandler(usecase CorpusUsecase, debug bool, logger *zap.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		debug:   debug,
		logger:  logger,
	}
}

// Query handles POST /api/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Query")

	var req entity.QueryRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("corpus_name", req.CorpusName))
	ctxzap.Debug(ctx, "querying corpus", zap.Int("top_k", req.TopK))

	res, err := h.usecase.Query(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "query answered", zap.Int("citations", len(res.Citations)))
	response.Success(w, res)
}

// Export handles POST /api/query/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Export")

	var req entity.ExportRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx = logger.AddFields(ctx,
		zap.String("corpus_name", req.CorpusName),
		zap.String("format", string(req.Format)),
	)

	file, err := h.usecase.Export(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Attachment(w, file.Filename, file.ContentType, file.Content)
}

// ListFiles handles GET /api/files/{corpus_name}?project_id=
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListFiles")

	corpusName, err := corpusParam(r, "*")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid corpus name", err)
		return
	}
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "project_id is required", nil)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("corpus_name", corpusName), zap.String("project_id", projectID))

	files, err := h.usecase.ListFiles(ctx, corpusName, projectID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if files == nil {
		files = []*entity.RagFile{}
	}

	ctxzap.Debug(ctx, "files listed", zap.Int("count", len(files)))
	response.Success(w, &entity.ListFilesResponse{Files: files})
}

// DeleteDocument handles DELETE /api/corpus/{corpus_name}/document?project_id=&document_id=
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "DeleteDocument")

	corpusName, err := corpusParam(r, "corpus_name")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid corpus name", err)
		return
	}

	q := r.URL.Query()
	req := entity.DeleteDocumentRequest{
		CorpusName: corpusName,
		ProjectID:  q.Get("project_id"),
		DocumentID: q.Get("document_id"),
	}
	if req.ProjectID == "" || req.DocumentID == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "Missing required parameters", nil)
		return
	}

	ctx = logger.AddFields(ctx,
		zap.String("corpus_name", corpusName),
		zap.String("document_id", req.DocumentID),
	)

	if err := h.usecase.DeleteDocument(ctx, &req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "document deleted")
	response.Success(w, entity.SuccessResponse{Success: true})
}

// DeleteCorpus handles DELETE /api/corpus/{corpus_name}?project_id=
func (h *Handler) DeleteCorpus(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "DeleteCorpus")

	corpusName, err := corpusParam(r, "corpus_name")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid corpus name", err)
		return
	}
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "project_id is required", nil)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("corpus_name", corpusName))

	if err := h.usecase.DeleteCorpus(ctx, corpusName, projectID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "corpus deleted")
	response.Success(w, entity.SuccessResponse{Success: true})
}

// corpusParam decodes a path parameter that may carry an escaped resource name
func corpusParam(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: corpus_name", entity.ErrInvalidParameter)
	}
	if name == "" {
		return "", fmt.Errorf("%w: corpus_name", entity.ErrMissingField)
	}
	return name, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: body", entity.ErrMissingField)
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}
	return nil
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else if err != nil {
		ctxzap.Warn(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message)
	}

	if err != nil && (status < http.StatusInternalServerError || h.debug) {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrMissingField) || errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, entity.ErrNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
