package logger

import (
	"context"
	"testing"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithAction(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ctxzap.ToContext(context.Background(), zap.New(core))

	ctx = WithAction(ctx, "Upload", zap.String("bucket", "docs"))
	ctxzap.Info(ctx, "hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "Upload", fields["action"])
	assert.Equal(t, "docs", fields["bucket"])
}

func TestDetached(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	parent, cancel := context.WithCancel(ctxzap.ToContext(context.Background(), zap.New(core)))
	parent = AddFields(parent, zap.String("upload_id", "u1"))
	cancel()

	ctx, stop := Detached(parent, time.Minute)
	defer stop()

	assert.NoError(t, ctx.Err())
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)

	ctxzap.Info(ctx, "cleanup")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "u1", logs.All()[0].ContextMap()["upload_id"])
}
