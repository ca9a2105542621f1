package corpus

import (
	"context"
	"fmt"
	"path"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/formatter"
	"github.com/futig/doc-chat/internal/pkg/logger"
	"github.com/futig/doc-chat/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CorpusUsecase answers questions against a corpus and manages its files
type CorpusUsecase struct {
	ragCfg     config.RAGConfig
	rag        RagConnector
	formatters *formatter.Factory
	logger     *zap.Logger
}

func NewUsecase(ragCfg config.RAGConfig, rag RagConnector, formatters *formatter.Factory, logger *zap.Logger) *CorpusUsecase {
	return &CorpusUsecase{
		ragCfg:     ragCfg,
		rag:        rag,
		formatters: formatters,
		logger:     logger,
	}
}

// Query validates the request and asks the corpus. Invalid requests never reach the backend.
func (uc *CorpusUsecase) Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResult, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK == 0 {
		topK = uc.ragCfg.TopK
	}

	cfg := uc.config(req.ProjectID)
	corpus := entity.NormalizeCorpusHandle(req.CorpusName, req.ProjectID, cfg.Location)
	ctx = logger.AddFields(ctx, zap.String("project_id", req.ProjectID))

	return uc.rag.Query(ctx, cfg, corpus, req.Query, topK, uc.ragCfg.GenerationModel)
}

// Export answers the question and renders the answer with its sources as a document
func (uc *CorpusUsecase) Export(ctx context.Context, req *entity.ExportRequest) (*entity.ExportedFile, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := req.Format.Validate(); err != nil {
		return nil, err
	}

	f, err := uc.formatters.Create(req.Format)
	if err != nil {
		return nil, err
	}

	answer, err := uc.Query(ctx, &req.QueryRequest)
	if err != nil {
		return nil, err
	}

	corpus := entity.NormalizeCorpusHandle(req.CorpusName, req.ProjectID, uc.ragCfg.Location)
	content, err := f.Format(&entity.AnswerDocument{
		Question: req.Query,
		Corpus:   corpus.String(),
		Answer:   *answer,
	})
	if err != nil {
		ctxzap.Error(ctx, "Failed to render answer", zap.String("format", string(req.Format)), zap.Error(err))
		return nil, fmt.Errorf("render %s: %w", req.Format, err)
	}

	ctxzap.Info(ctx, "Answer exported", zap.String("format", string(req.Format)), zap.Int("bytes", len(content)))

	return &entity.ExportedFile{
		Filename:    "answer_" + path.Base(corpus.String()) + f.FileExtension(),
		ContentType: f.ContentType(),
		Content:     content,
	}, nil
}

func (uc *CorpusUsecase) ListFiles(ctx context.Context, corpusName, projectID string) ([]*entity.RagFile, error) {
	if corpusName == "" {
		return nil, fmt.Errorf("%w: corpus_name", entity.ErrMissingField)
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project_id", entity.ErrMissingField)
	}

	cfg := uc.config(projectID)
	return uc.rag.ListFiles(ctx, cfg, entity.NormalizeCorpusHandle(corpusName, projectID, cfg.Location))
}

func (uc *CorpusUsecase) DeleteDocument(ctx context.Context, req *entity.DeleteDocumentRequest) error {
	if err := validator.ValidateStruct(req); err != nil {
		return err
	}

	cfg := uc.config(req.ProjectID)
	corpus := entity.NormalizeCorpusHandle(req.CorpusName, req.ProjectID, cfg.Location)
	return uc.rag.DeleteFiles(ctx, cfg, corpus, []string{req.DocumentID})
}

func (uc *CorpusUsecase) DeleteCorpus(ctx context.Context, corpusName, projectID string) error {
	if corpusName == "" {
		return fmt.Errorf("%w: corpus_name", entity.ErrMissingField)
	}
	if projectID == "" {
		return fmt.Errorf("%w: project_id", entity.ErrMissingField)
	}

	cfg := uc.config(projectID)
	return uc.rag.DeleteCorpus(ctx, cfg, entity.NormalizeCorpusHandle(corpusName, projectID, cfg.Location))
}

func (uc *CorpusUsecase) config(projectID string) entity.RagConfig {
	return entity.RagConfig{
		ProjectID:      projectID,
		Location:       uc.ragCfg.Location,
		DisplayName:    uc.ragCfg.DisplayName,
		EmbeddingModel: uc.ragCfg.EmbeddingModel,
		ChunkSize:      uc.ragCfg.ChunkSize,
		ChunkOverlap:   uc.ragCfg.ChunkOverlap,
	}
}
