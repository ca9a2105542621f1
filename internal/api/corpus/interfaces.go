package corpus

import (
	"context"

	"github.com/futig/doc-chat/internal/entity"
)

type CorpusUsecase interface {
	Query(ctx context.Context, req *entity.QueryRequest) (*entity.QueryResult, error)
	Export(ctx context.Context, req *entity.ExportRequest) (*entity.ExportedFile, error)
	ListFiles(ctx context.Context, corpusName, projectID string) ([]*entity.RagFile, error)
	DeleteDocument(ctx context.Context, req *entity.DeleteDocumentRequest) error
	DeleteCorpus(ctx context.Context, corpusName, projectID string) error
}
