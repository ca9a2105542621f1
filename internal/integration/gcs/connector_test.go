package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsPermissionDenied(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "json api 403", err: &googleapi.Error{Code: http.StatusForbidden}, want: true},
		{name: "wrapped json api 403", err: fmt.Errorf("create: %w", &googleapi.Error{Code: http.StatusForbidden}), want: true},
		{name: "json api 404", err: &googleapi.Error{Code: http.StatusNotFound}, want: false},
		{name: "grpc permission denied", err: status.Error(codes.PermissionDenied, "nope"), want: true},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "later"), want: false},
		{name: "sentinel", err: fmt.Errorf("%w: bucket", entity.ErrPermissionDenied), want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermissionDenied(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&googleapi.Error{Code: http.StatusServiceUnavailable}))
	assert.True(t, isRetryable(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.False(t, isRetryable(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isRetryable(&googleapi.Error{Code: http.StatusBadRequest}))
	assert.False(t, isRetryable(context.Canceled))
}

func TestPermissionDeniedResult(t *testing.T) {
	res := PermissionDeniedResult("my-project", "svc@my-project.iam.gserviceaccount.com")

	assert.False(t, res.Success)
	assert.Equal(t, "Permission denied. Required permissions:", res.Message)
	assert.Contains(t, res.Details, "roles/storage.admin")
	assert.Contains(t, res.Details, "storage.buckets.create AND storage.buckets.get")
	assert.Contains(t, res.Details, "gcloud projects add-iam-policy-binding my-project")
	assert.Contains(t, res.Details, `--member="serviceAccount:svc@my-project.iam.gserviceaccount.com"`)
}

func TestWrapPermission(t *testing.T) {
	err := wrapPermission(&googleapi.Error{Code: http.StatusForbidden})
	assert.ErrorIs(t, err, entity.ErrPermissionDenied)

	plain := errors.New("boom")
	assert.Same(t, plain, wrapPermission(plain))
}

func TestObjectURI(t *testing.T) {
	assert.Equal(t, "gs://docs/rag-documents/a.txt", ObjectURI("docs", "rag-documents/a.txt"))
}

func TestMockConnector(t *testing.T) {
	ctx := context.Background()
	m := NewMockConnector(zap.NewNop(), "existing")

	res := m.CreateBucket(ctx, "p", "existing", "us-central1")
	assert.False(t, res.Success)
	assert.Equal(t, "Bucket existing already exists", res.Message)

	res = m.CreateBucket(ctx, "p", "fresh", "us-central1")
	assert.True(t, res.Success)
	assert.Equal(t, []string{"existing", "fresh"}, m.ListBuckets(ctx, "p"))

	uri, err := m.UploadText(ctx, "fresh", "rag-documents/1.txt", "hello")
	require.NoError(t, err)
	assert.Equal(t, "gs://fresh/rag-documents/1.txt", uri)
	assert.Equal(t, []string{"rag-documents/1.txt"}, m.Objects("fresh"))

	require.NoError(t, m.DeleteObject(ctx, "fresh", "rag-documents/1.txt"))
	require.NoError(t, m.DeleteObject(ctx, "fresh", "rag-documents/1.txt"))
	assert.Empty(t, m.Objects("fresh"))
}
