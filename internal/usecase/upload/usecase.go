package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/logger"
	"github.com/futig/doc-chat/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var stepProgress = map[entity.UploadStep]int{
	entity.UploadStepSaving:         10,
	entity.UploadStepExtracting:     30,
	entity.UploadStepCreatingCorpus: 60,
	entity.UploadStepImporting:      80,
	entity.UploadStepCompleted:      100,
}

// UploadUsecase turns one uploaded document into a freshly created RAG corpus
type UploadUsecase struct {
	uploadCfg config.FileUploadConfig
	ragCfg    config.RAGConfig
	validator *validator.Validator
	extractor Extractor
	rag       RagConnector
	status    StatusStore
	logger    *zap.Logger
}

func NewUsecase(
	uploadCfg config.FileUploadConfig,
	ragCfg config.RAGConfig,
	validator *validator.Validator,
	extractor Extractor,
	rag RagConnector,
	status StatusStore,
	logger *zap.Logger,
) *UploadUsecase {
	return &UploadUsecase{
		uploadCfg: uploadCfg,
		ragCfg:    ragCfg,
		validator: validator,
		extractor: extractor,
		rag:       rag,
		status:    status,
		logger:    logger,
	}
}

// Process validates, stores, extracts and imports a single document. The temp
// copy of the file is removed on every path once the outcome is known.
// A corpus created before a failed import is left in place.
func (uc *UploadUsecase) Process(ctx context.Context, req *entity.UploadRequest) (*entity.UploadResult, error) {
	if req.BucketName == "" {
		return nil, fmt.Errorf("%w: bucket_name", entity.ErrMissingField)
	}
	if err := uc.validator.ValidateUpload(req.Filename, req.Size); err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	if req.UploadID == "" {
		req.UploadID = uuid.NewString()
	}

	ctx = logger.AddFields(ctx,
		zap.String("upload_id", req.UploadID),
		zap.String("filename", req.Filename),
		zap.String("bucket", req.BucketName),
	)

	result, err := uc.process(ctx, req)
	if err != nil {
		uc.setStatus(ctx, req.UploadID, entity.UploadStatus{
			Status:  entity.UploadStatusError,
			Step:    uc.lastStep(ctx, req.UploadID),
			Message: err.Error(),
		})
		ctxzap.Error(ctx, "Upload failed", zap.Error(err))
		return nil, err
	}

	uc.setStep(ctx, req.UploadID, entity.UploadStepCompleted, entity.UploadStatusSuccess)
	ctxzap.Info(ctx, "Upload processed",
		zap.String("corpus", result.Corpus.String()),
		zap.Int("chunks", result.ChunkCount),
	)
	return result, nil
}

func (uc *UploadUsecase) process(ctx context.Context, req *entity.UploadRequest) (*entity.UploadResult, error) {
	filename := validator.StorageFilename(req.Filename)

	uc.setStep(ctx, req.UploadID, entity.UploadStepSaving, entity.UploadStatusProcessing)

	path, err := uc.persist(filename, req.Content)
	if path != "" {
		defer uc.removeFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	uc.setStep(ctx, req.UploadID, entity.UploadStepExtracting, entity.UploadStatusProcessing)

	chunks, err := uc.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, entity.ErrNoExtractableContent
	}

	ragCfg := uc.ragConfig(req.ProjectID, req.BucketName, filename)

	uc.setStep(ctx, req.UploadID, entity.UploadStepCreatingCorpus, entity.UploadStatusProcessing)

	corpus, err := uc.rag.CreateCorpus(ctx, ragCfg)
	if err != nil {
		return nil, err
	}

	uc.setStep(ctx, req.UploadID, entity.UploadStepImporting, entity.UploadStatusProcessing)

	if err := uc.rag.ImportChunks(ctx, ragCfg, corpus, chunks, ragCfg.ChunkSize); err != nil {
		ctxzap.Warn(ctx, "Import failed, corpus left without documents", zap.String("corpus", corpus.String()))
		return nil, err
	}

	return &entity.UploadResult{
		UploadID:   req.UploadID,
		Filename:   filename,
		Corpus:     corpus,
		ProjectID:  req.ProjectID,
		ChunkCount: len(chunks),
	}, nil
}

// Status returns the progress of an upload
func (uc *UploadUsecase) Status(ctx context.Context, uploadID string) (*entity.UploadStatus, error) {
	return uc.status.GetUploadStatus(ctx, uploadID)
}

// persist writes content under the upload dir. The path gets a server generated
// prefix: the upload id comes from the client and only keys the status entry.
// The returned path is set as soon as the file exists, even when writing it failed.
func (uc *UploadUsecase) persist(filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(uc.uploadCfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(uc.uploadCfg.Dir, uuid.NewString()+"_"+filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(content, uc.uploadCfg.MaxUploadSize+1))
	if err != nil {
		return path, fmt.Errorf("save upload: %w", err)
	}
	if written > uc.uploadCfg.MaxUploadSize {
		return path, fmt.Errorf("%w: more than %d bytes", entity.ErrFileTooLarge, uc.uploadCfg.MaxUploadSize)
	}

	return path, nil
}

func (uc *UploadUsecase) removeFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		ctxzap.Warn(ctx, "Failed to remove uploaded file", zap.String("path", path), zap.Error(err))
	}
}

func (uc *UploadUsecase) ragConfig(projectID, bucket, filename string) entity.RagConfig {
	return entity.RagConfig{
		ProjectID:      projectID,
		BucketName:     bucket,
		Location:       uc.ragCfg.Location,
		DisplayName:    "corpus_" + filename,
		EmbeddingModel: uc.ragCfg.EmbeddingModel,
		ChunkSize:      uc.ragCfg.ChunkSize,
		ChunkOverlap:   uc.ragCfg.ChunkOverlap,
	}
}

func (uc *UploadUsecase) setStep(ctx context.Context, uploadID string, step entity.UploadStep, status string) {
	uc.setStatus(ctx, uploadID, entity.UploadStatus{
		Status:   status,
		Step:     step,
		Progress: stepProgress[step],
	})
}

func (uc *UploadUsecase) setStatus(ctx context.Context, uploadID string, status entity.UploadStatus) {
	if status.Status == entity.UploadStatusError {
		status.Progress = stepProgress[status.Step]
	}
	if err := uc.status.SetUploadStatus(ctx, uploadID, status); err != nil {
		ctxzap.Warn(ctx, "Failed to record upload status", zap.Error(err))
	}
}

func (uc *UploadUsecase) lastStep(ctx context.Context, uploadID string) entity.UploadStep {
	st, err := uc.status.GetUploadStatus(ctx, uploadID)
	if err != nil || st.Step == "" {
		return entity.UploadStepSaving
	}
	return st.Step
}
