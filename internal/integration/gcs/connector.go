package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/avast/retry-go/v4"
	"github.com/futig/doc-chat/internal/entity"
	pkgRetry "github.com/futig/doc-chat/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Bucket probed for IAM access when checking whether buckets can be created
const permissionProbeBucket = "temp-permission-check"

// IdentityProvider tells which service account the deployment runs as
type IdentityProvider interface {
	ServiceAccount() string
}

type Connector struct {
	client   *storage.Client
	identity IdentityProvider
	retry    pkgRetry.RetryConfig
	logger   *zap.Logger
}

func NewConnector(
	ctx context.Context,
	httpClient *http.Client,
	identity IdentityProvider,
	retryCfg pkgRetry.RetryConfig,
	logger *zap.Logger,
) (*Connector, error) {
	client, err := storage.NewClient(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Connector{
		client:   client,
		identity: identity,
		retry:    retryCfg,
		logger:   logger,
	}, nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}

// ListBuckets returns bucket names of the project. Failures are logged and yield an empty list.
func (c *Connector) ListBuckets(ctx context.Context, projectID string) []string {
	buckets := []string{}
	if projectID == "" {
		ctxzap.Warn(ctx, "No project id, skipping bucket listing")
		return buckets
	}

	it := c.client.Buckets(ctx, projectID)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			ctxzap.Error(ctx, "Failed to list buckets", zap.String("project_id", projectID), zap.Error(err))
			return []string{}
		}
		buckets = append(buckets, attrs.Name)
	}

	ctxzap.Debug(ctx, "Buckets listed", zap.Int("count", len(buckets)))
	return buckets
}

// CreateBucket creates a bucket unless it already exists. The outcome is always
// reported through the result, never as an error.
func (c *Connector) CreateBucket(ctx context.Context, projectID, name, location string) entity.BucketCreateResult {
	bucket := c.client.Bucket(name)

	_, err := bucket.Attrs(ctx)
	switch {
	case err == nil:
		return entity.BucketCreateResult{
			Success: false,
			Message: fmt.Sprintf("Bucket %s already exists", name),
		}
	case errors.Is(err, storage.ErrBucketNotExist):
	case IsPermissionDenied(err):
		return c.permissionDenied(ctx, projectID, err)
	default:
		ctxzap.Error(ctx, "Failed to check bucket", zap.String("bucket", name), zap.Error(err))
		return entity.BucketCreateResult{Success: false, Message: err.Error()}
	}

	if err := bucket.Create(ctx, projectID, &storage.BucketAttrs{Location: location}); err != nil {
		if IsPermissionDenied(err) {
			return c.permissionDenied(ctx, projectID, err)
		}
		ctxzap.Error(ctx, "Failed to create bucket", zap.String("bucket", name), zap.Error(err))
		return entity.BucketCreateResult{Success: false, Message: err.Error()}
	}

	ctxzap.Info(ctx, "Bucket created", zap.String("bucket", name), zap.String("location", location))
	return entity.BucketCreateResult{
		Success: true,
		Message: fmt.Sprintf("Bucket %s created", name),
	}
}

func (c *Connector) permissionDenied(ctx context.Context, projectID string, err error) entity.BucketCreateResult {
	ctxzap.Warn(ctx, "Permission denied creating bucket", zap.Error(err))
	return PermissionDeniedResult(projectID, c.identity.ServiceAccount())
}

// UploadText writes content as a text object and returns its gs:// URI
func (c *Connector) UploadText(ctx context.Context, bucket, object, content string) (string, error) {
	obj := c.client.Bucket(bucket).Object(object)

	err := c.retry.Do(ctx, func() error {
		w := obj.NewWriter(ctx)
		w.ContentType = "text/plain; charset=utf-8"
		if _, err := io.WriteString(w, content); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	}, retry.RetryIf(isRetryable))
	if err != nil {
		return "", fmt.Errorf("upload gs://%s/%s: %w", bucket, object, wrapPermission(err))
	}

	return ObjectURI(bucket, object), nil
}

// DeleteObject removes an object. A missing object is not an error.
func (c *Connector) DeleteObject(ctx context.Context, bucket, object string) error {
	obj := c.client.Bucket(bucket).Object(object)

	err := c.retry.Do(ctx, func() error {
		err := obj.Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return err
	}, retry.RetryIf(isRetryable))
	if err != nil {
		return fmt.Errorf("delete gs://%s/%s: %w", bucket, object, wrapPermission(err))
	}
	return nil
}

// CheckPermissions probes what the service account may do with storage in the project
func (c *Connector) CheckPermissions(ctx context.Context, projectID string) map[string]bool {
	perms := map[string]bool{
		entity.PermissionListBuckets:   true,
		entity.PermissionCreateBuckets: true,
		entity.PermissionManageObjects: true,
	}

	it := c.client.Buckets(ctx, projectID)
	it.PageInfo().MaxSize = 1
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		ctxzap.Debug(ctx, "Bucket listing probe failed", zap.Error(err))
		perms[entity.PermissionListBuckets] = false
	}

	// Only a permission error means creation is impossible, anything else is inconclusive
	if _, err := c.client.Bucket(permissionProbeBucket).IAM().Policy(ctx); IsPermissionDenied(err) {
		perms[entity.PermissionCreateBuckets] = false
	}

	return perms
}

// ObjectURI formats the gs:// URI of an object
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// IsPermissionDenied reports whether err is a 403 from the JSON API or PermissionDenied from gRPC
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, entity.ErrPermissionDenied) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return true
	}

	if s, ok := status.FromError(err); ok && s.Code() == codes.PermissionDenied {
		return true
	}
	return false
}

// PermissionDeniedResult explains which roles the service account lacks and how to grant them
func PermissionDeniedResult(projectID, serviceAccount string) entity.BucketCreateResult {
	details := fmt.Sprintf(`The service account %s needs the following permissions:
- roles/storage.admin OR
- storage.buckets.create AND storage.buckets.get

You can grant these permissions using gcloud:
gcloud projects add-iam-policy-binding %s \
    --member="serviceAccount:%s" \
    --role="roles/storage.admin"
`, serviceAccount, projectID, serviceAccount)

	return entity.BucketCreateResult{
		Success: false,
		Message: "Permission denied. Required permissions:",
		Details: details,
	}
}

func isRetryable(err error) bool {
	if IsPermissionDenied(err) || errors.Is(err, storage.ErrBucketNotExist) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

func wrapPermission(err error) error {
	if IsPermissionDenied(err) && !errors.Is(err, entity.ErrPermissionDenied) {
		return fmt.Errorf("%w: %v", entity.ErrPermissionDenied, err)
	}
	return err
}
