package upload

import (
	"context"

	"github.com/futig/doc-chat/internal/entity"
)

type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

type RagConnector interface {
	CreateCorpus(ctx context.Context, cfg entity.RagConfig) (entity.CorpusHandle, error)
	ImportChunks(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, chunks []string, chunkSize int) error
}

type StatusStore interface {
	SetUploadStatus(ctx context.Context, uploadID string, status entity.UploadStatus) error
	GetUploadStatus(ctx context.Context, uploadID string) (*entity.UploadStatus, error)
}
