package bucket

import (
	"context"

	"github.com/futig/doc-chat/internal/entity"
)

type Storage interface {
	ListBuckets(ctx context.Context, projectID string) []string
	CreateBucket(ctx context.Context, projectID, name, location string) entity.BucketCreateResult
	CheckPermissions(ctx context.Context, projectID string) map[string]bool
}

// ProjectResolver tells which project the deployment runs in
type ProjectResolver interface {
	ProjectID() string
}

type LastBucketStore interface {
	SetLastBucket(ctx context.Context, clientID, bucket string) error
	GetLastBucket(ctx context.Context, clientID string) string
}
