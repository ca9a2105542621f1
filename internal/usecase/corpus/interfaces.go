package corpus

import (
	"context"

	"github.com/futig/doc-chat/internal/entity"
)

type RagConnector interface {
	Query(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, text string, topK int, model string) (*entity.QueryResult, error)
	ListFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) ([]*entity.RagFile, error)
	DeleteFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, fileIDs []string) error
	DeleteCorpus(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) error
}
