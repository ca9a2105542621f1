package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/logger"
	"github.com/futig/doc-chat/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	multipartOverhead = 1 << 20
	maxFieldSize      = 4 << 10
)

// Handler serves the HTML pages along with the bucket and upload endpoints
type Handler struct {
	uploads       UploadUsecase
	buckets       BucketUsecase
	templates     *template.Template
	maxUploadSize int64
	debug         bool
	logger        *zap.Logger
}

func NewHandler(uploads UploadUsecase, buckets BucketUsecase, maxUploadSize int64, debug bool, logger *zap.Logger) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Handler{
		uploads:       uploads,
		buckets:       buckets,
		templates:     tmpl,
		maxUploadSize: maxUploadSize,
		debug:         debug,
		logger:        logger,
	}, nil
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(r.Context(), w, http.StatusOK, "index.html", pageData{Title: "Home"})
}

// Chat handles GET /chat?corpus_name=&project_id=
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	q := r.URL.Query()
	corpusName := q.Get("corpus_name")
	if corpusName == "" {
		ctxzap.Debug(ctx, "no corpus selected, redirecting home")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	projectID := q.Get("project_id")
	if projectID == "" {
		projectID = h.buckets.ProjectID()
	}

	h.render(ctx, w, http.StatusOK, "chat.html", pageData{
		Title:      "Chat",
		ProjectID:  projectID,
		CorpusName: corpusName,
		BucketName: h.buckets.LastBucket(ctx, clientID(w, r)),
	})
}

// ListBuckets handles GET /buckets
func (h *Handler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListBuckets")
	response.Success(w, h.buckets.List(ctx))
}

// Permissions handles GET /buckets/permissions
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Permissions")
	response.Success(w, h.buckets.Permissions(ctx))
}

// CreateBucket handles POST /bucket/create
func (h *Handler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateBucket")

	var req entity.CreateBucketRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		ctxzap.Warn(ctx, "invalid create bucket body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx = logger.AddFields(ctx, zap.String("bucket", req.BucketName))

	res, err := h.buckets.Create(ctx, req.BucketName)
	if err != nil {
		ctxzap.Warn(ctx, "bucket name rejected", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "Bucket name is required")
		return
	}
	if !res.Success {
		response.ErrorWithDetails(w, http.StatusBadRequest, res.Message, res.Details)
		return
	}

	response.Success(w, entity.MessageResponse{Message: res.Message})
}

// UploadForm handles GET /upload
func (h *Handler) UploadForm(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadForm")
	h.renderUploadForm(ctx, w, http.StatusOK, clientID(w, r), "", "")
}

// Upload handles POST /upload. Browsers get a redirect to the chat page or the form
// again with the error; clients sending Accept: application/json get JSON.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Upload")
	wantsJSON := acceptsJSON(r)
	client := clientID(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		h.uploadFailed(ctx, w, client, wantsJSON, "", fmt.Errorf("%w: %v", entity.ErrInvalidFile, err))
		return
	}

	fields := make(map[string]string)
	part, err := h.nextFilePart(mr, fields)
	bucket := strings.TrimSpace(fields["bucket_name"])
	if err != nil {
		h.uploadFailed(ctx, w, client, wantsJSON, bucket, err)
		return
	}
	defer part.Close()

	if part.FileName() == "" {
		h.uploadFailed(ctx, w, client, wantsJSON, bucket, fmt.Errorf("%w: no selected file", entity.ErrMissingField))
		return
	}
	if bucket == "" {
		h.uploadFailed(ctx, w, client, wantsJSON, bucket, fmt.Errorf("%w: bucket name is required", entity.ErrMissingField))
		return
	}

	h.buckets.Remember(ctx, client, bucket)

	uploadID := fields["upload_id"]
	if _, err := uuid.Parse(uploadID); err != nil {
		uploadID = uuid.NewString()
	}

	// The part is streamed straight into Process, which checks the name before
	// anything is written.
	res, err := h.uploads.Process(ctx, &entity.UploadRequest{
		UploadID:   uploadID,
		Filename:   part.FileName(),
		Content:    part,
		BucketName: bucket,
		ProjectID:  h.buckets.ProjectID(),
	})
	if err != nil {
		h.uploadFailed(ctx, w, client, wantsJSON, bucket, h.bodyError(err))
		return
	}

	redirect := chatURL(res.Corpus.String(), res.ProjectID)
	if wantsJSON {
		response.Success(w, entity.UploadResponse{
			Status:     entity.UploadStatusSuccess,
			UploadID:   res.UploadID,
			CorpusName: res.Corpus.String(),
			ProjectID:  res.ProjectID,
			Redirect:   redirect,
			Message:    "Successfully processed document: " + res.Filename,
		})
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// nextFilePart reads the form fields preceding the "file" part into fields and
// returns that part unread. Fields sent after the file are not seen.
func (h *Handler) nextFilePart(mr *multipart.Reader, fields map[string]string) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no file part", entity.ErrMissingField)
		}
		if err != nil {
			return nil, h.bodyError(fmt.Errorf("%w: %w", entity.ErrInvalidFile, err))
		}

		if part.FormName() == "file" {
			return part, nil
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
		part.Close()
		if err != nil {
			return nil, h.bodyError(fmt.Errorf("%w: %w", entity.ErrInvalidFile, err))
		}
		if len(value) > maxFieldSize {
			return nil, fmt.Errorf("%w: field %s is too long", entity.ErrInvalidParameter, part.FormName())
		}
		if part.FormName() != "" {
			fields[part.FormName()] = string(value)
		}
	}
}

// bodyError reports a request body cut off by the size limit as a too large file
func (h *Handler) bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: max %d bytes", entity.ErrFileTooLarge, h.maxUploadSize)
	}
	return err
}

// UploadStatus handles GET /upload/status/{upload_id}
func (h *Handler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadStatus")
	uploadID := chi.URLParam(r, "upload_id")

	st, err := h.uploads.Status(ctx, uploadID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "upload not found")
			return
		}
		ctxzap.Error(ctx, "failed to read upload status", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response.Success(w, st)
}

func (h *Handler) uploadFailed(ctx context.Context, w http.ResponseWriter, client string, wantsJSON bool, bucket string, err error) {
	msg := h.uploadMessage(err)
	ctxzap.Warn(ctx, "upload rejected", zap.String("reason", msg), zap.Error(err))

	if wantsJSON {
		response.JSON(w, http.StatusBadRequest, entity.UploadResponse{
			Status:  entity.UploadStatusError,
			Message: msg,
		})
		return
	}

	h.renderUploadForm(ctx, w, http.StatusBadRequest, client, bucket, msg)
}

// uploadMessage turns an upload error into what the user sees. Validation problems
// are always explained; anything else only in debug mode.
func (h *Handler) uploadMessage(err error) string {
	switch {
	case errors.Is(err, entity.ErrNoExtractableContent):
		return "No text content found in document"
	case errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrInvalidFile),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrUnsupportedFormat):
		return capitalize(err.Error())
	case h.debug:
		return "Error: " + err.Error()
	default:
		return "Failed to process document"
	}
}

func (h *Handler) renderUploadForm(ctx context.Context, w http.ResponseWriter, status int, client, bucket, errMsg string) {
	if bucket == "" {
		bucket = h.buckets.LastBucket(ctx, client)
	}

	h.render(ctx, w, status, "upload.html", pageData{
		Title:          "Upload",
		Error:          errMsg,
		ProjectID:      h.buckets.ProjectID(),
		Buckets:        h.buckets.List(ctx),
		SelectedBucket: bucket,
	})
}

func chatURL(corpusName, projectID string) string {
	q := url.Values{}
	q.Set("corpus_name", corpusName)
	q.Set("project_id", projectID)
	return "/chat?" + q.Encode()
}

func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
