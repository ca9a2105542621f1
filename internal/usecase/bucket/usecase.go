package bucket

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// BucketUsecase lists and creates buckets in the deployment project and remembers
// which bucket each browser used last
type BucketUsecase struct {
	storage  Storage
	project  ProjectResolver
	state    LastBucketStore
	location string
	logger   *zap.Logger
}

func NewUsecase(storageCfg config.StorageConfig, storage Storage, project ProjectResolver, state LastBucketStore, logger *zap.Logger) *BucketUsecase {
	return &BucketUsecase{
		storage:  storage,
		project:  project,
		state:    state,
		location: storageCfg.BucketLocation,
		logger:   logger,
	}
}

// ProjectID is empty when no credentials are available
func (uc *BucketUsecase) ProjectID() string {
	return uc.project.ProjectID()
}

// List never fails: storage errors degrade to an empty list
func (uc *BucketUsecase) List(ctx context.Context) []string {
	buckets := uc.storage.ListBuckets(ctx, uc.ProjectID())
	if buckets == nil {
		return []string{}
	}
	return buckets
}

func (uc *BucketUsecase) Create(ctx context.Context, name string) (entity.BucketCreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.BucketCreateResult{}, fmt.Errorf("%w: bucket_name", entity.ErrMissingField)
	}

	res := uc.storage.CreateBucket(ctx, uc.ProjectID(), name, uc.location)
	if res.Success {
		ctxzap.Info(ctx, "Bucket created", zap.String("bucket", name))
	} else {
		ctxzap.Warn(ctx, "Bucket not created", zap.String("bucket", name), zap.String("reason", res.Message))
	}
	return res, nil
}

func (uc *BucketUsecase) Permissions(ctx context.Context) map[string]bool {
	return uc.storage.CheckPermissions(ctx, uc.ProjectID())
}

// Remember stores the bucket as the client's last choice. Failures only cost the
// client a preselected bucket next time.
func (uc *BucketUsecase) Remember(ctx context.Context, clientID, bucket string) {
	if err := uc.state.SetLastBucket(ctx, clientID, bucket); err != nil {
		ctxzap.Debug(ctx, "Last bucket not remembered", zap.Error(err))
	}
}

func (uc *BucketUsecase) LastBucket(ctx context.Context, clientID string) string {
	if clientID == "" {
		return ""
	}
	return uc.state.GetLastBucket(ctx, clientID)
}
