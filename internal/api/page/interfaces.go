package page

import (
	"context"

	"github.com/futig/doc-chat/internal/entity"
)

type UploadUsecase interface {
	Process(ctx context.Context, req *entity.UploadRequest) (*entity.UploadResult, error)
	Status(ctx context.Context, uploadID string) (*entity.UploadStatus, error)
}

type BucketUsecase interface {
	ProjectID() string
	List(ctx context.Context) []string
	Create(ctx context.Context, name string) (entity.BucketCreateResult, error)
	Permissions(ctx context.Context) map[string]bool
	Remember(ctx context.Context, clientID, bucket string)
	LastBucket(ctx context.Context, clientID string) string
}
