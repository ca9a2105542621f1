package gcs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector keeps buckets and objects in memory
type MockConnector struct {
	mu      sync.Mutex
	buckets map[string]map[string]string
	logger  *zap.Logger
}

func NewMockConnector(logger *zap.Logger, buckets ...string) *MockConnector {
	m := &MockConnector{
		buckets: make(map[string]map[string]string),
		logger:  logger,
	}
	for _, b := range buckets {
		m.buckets[b] = make(map[string]string)
	}
	return m
}

func (m *MockConnector) ListBuckets(ctx context.Context, projectID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.buckets))
	for name := range m.buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	ctxzap.Info(ctx, "[MOCK] listing buckets", zap.String("project_id", projectID), zap.Int("count", len(names)))
	return names
}

func (m *MockConnector) CreateBucket(ctx context.Context, projectID, name, location string) entity.BucketCreateResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctxzap.Info(ctx, "[MOCK] creating bucket", zap.String("bucket", name), zap.String("location", location))

	if _, ok := m.buckets[name]; ok {
		return entity.BucketCreateResult{Success: false, Message: fmt.Sprintf("Bucket %s already exists", name)}
	}
	m.buckets[name] = make(map[string]string)
	return entity.BucketCreateResult{Success: true, Message: fmt.Sprintf("Bucket %s created", name)}
}

func (m *MockConnector) UploadText(ctx context.Context, bucket, object, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string]string)
		m.buckets[bucket] = objects
	}
	objects[object] = content

	ctxzap.Debug(ctx, "[MOCK] object uploaded", zap.String("bucket", bucket), zap.String("object", object))
	return ObjectURI(bucket, object), nil
}

func (m *MockConnector) DeleteObject(ctx context.Context, bucket, object string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets[bucket], object)
	ctxzap.Debug(ctx, "[MOCK] object deleted", zap.String("bucket", bucket), zap.String("object", object))
	return nil
}

func (m *MockConnector) CheckPermissions(ctx context.Context, projectID string) map[string]bool {
	ctxzap.Info(ctx, "[MOCK] checking storage permissions", zap.String("project_id", projectID))
	return map[string]bool{
		entity.PermissionListBuckets:   true,
		entity.PermissionCreateBuckets: true,
		entity.PermissionManageObjects: true,
	}
}

// Objects returns the object names currently stored in bucket
func (m *MockConnector) Objects(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.buckets[bucket]))
	for name := range m.buckets[bucket] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
