package vertex

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/auth"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

const cleanupTimeout = 2 * time.Minute

// BlobStore is where chunks are staged before the bulk import
type BlobStore interface {
	UploadText(ctx context.Context, bucket, object, content string) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

type Connector struct {
	data       ragDataAPI
	models     modelProvider
	blobs      BlobStore
	blobPrefix string
	newID      func() string
	logger     *zap.Logger
}

// NewConnector creates a connector backed by the Vertex AI RAG and Gemini APIs.
// Regional clients are opened lazily on first use.
func NewConnector(
	httpClient *http.Client,
	creds *auth.Credentials,
	blobs BlobStore,
	blobPrefix string,
	logger *zap.Logger,
) *Connector {
	var opts []option.ClientOption
	if creds != nil {
		opts = append(opts, option.WithAuthCredentials(creds))
	}

	return newConnector(
		newRAGDataClient(opts...),
		newGenaiClients(httpClient, creds),
		blobs,
		blobPrefix,
		logger,
	)
}

func newConnector(data ragDataAPI, models modelProvider, blobs BlobStore, blobPrefix string, logger *zap.Logger) *Connector {
	return &Connector{
		data:       data,
		models:     models,
		blobs:      blobs,
		blobPrefix: strings.Trim(blobPrefix, "/"),
		newID:      uuid.NewString,
		logger:     logger,
	}
}

// Close releases the regional gRPC connections
func (c *Connector) Close() error {
	if closer, ok := c.data.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// CreateCorpus creates an empty corpus. Every call creates a new one.
func (c *Connector) CreateCorpus(ctx context.Context, cfg entity.RagConfig) (entity.CorpusHandle, error) {
	ctx = logger.AddFields(ctx, zap.String("display_name", cfg.DisplayName))
	ctxzap.Info(ctx, "Creating RAG corpus", zap.String("embedding_model", cfg.EmbeddingModel))

	corpus, err := c.data.CreateCorpus(ctx, cfg)
	if err != nil {
		ctxzap.Error(ctx, "Failed to create corpus", zap.Error(err))
		return "", fmt.Errorf("create corpus: %w", err)
	}

	ctxzap.Info(ctx, "RAG corpus created", zap.String("corpus", corpus.String()))
	return corpus, nil
}

// ImportChunks stages every non-blank chunk as its own text object and imports
// them into the corpus in one call. When staging or the import fails, objects
// written by this call are deleted and the failure is returned as *entity.ImportError.
func (c *Connector) ImportChunks(
	ctx context.Context,
	cfg entity.RagConfig,
	corpus entity.CorpusHandle,
	chunks []string,
	chunkSize int,
) error {
	ctx = logger.AddFields(ctx,
		zap.String("corpus", corpus.String()),
		zap.String("bucket", cfg.BucketName),
	)

	if chunkSize <= 0 {
		chunkSize = cfg.ChunkSize
	}

	var (
		objects []string
		uris    []string
	)
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		object := path.Join(c.blobPrefix, c.newID()+".txt")
		uri, err := c.blobs.UploadText(ctx, cfg.BucketName, object, chunk)
		if err != nil {
			ctxzap.Error(ctx, "Failed to stage chunk", zap.String("object", object), zap.Error(err))
			return c.compensate(ctx, cfg, objects, fmt.Errorf("stage chunk: %w", err))
		}
		objects = append(objects, object)
		uris = append(uris, uri)
	}

	if len(uris) == 0 {
		return entity.ErrNothingToImport
	}

	ctxzap.Info(ctx, "Importing chunks",
		zap.Int("files", len(uris)),
		zap.Int("chunk_size", chunkSize),
		zap.Int("chunk_overlap", cfg.ChunkOverlap),
	)

	stats, err := c.data.ImportFiles(ctx, cfg, corpus, uris, chunkSize)
	if err == nil && stats.Imported == 0 && stats.Failed > 0 {
		err = fmt.Errorf("%w: all %d files failed to import", entity.ErrNothingToImport, stats.Failed)
	}
	if err != nil {
		ctxzap.Error(ctx, "Failed to import chunks", zap.Error(err))
		return c.compensate(ctx, cfg, objects, fmt.Errorf("import files: %w", err))
	}

	ctxzap.Info(ctx, "Chunks imported",
		zap.Int64("imported", stats.Imported),
		zap.Int64("failed", stats.Failed),
	)
	return nil
}

// compensate deletes staged objects after a failed import. Cleanup failures are
// logged and carried alongside the primary error.
func (c *Connector) compensate(ctx context.Context, cfg entity.RagConfig, objects []string, primary error) error {
	importErr := &entity.ImportError{Err: primary}

	// The request may already be cancelled, the staged objects still have to go
	ctx, cancel := logger.Detached(ctx, cleanupTimeout)
	defer cancel()

	for _, object := range objects {
		if err := c.blobs.DeleteObject(ctx, cfg.BucketName, object); err != nil {
			ctxzap.Warn(ctx, "Failed to delete staged chunk", zap.String("object", object), zap.Error(err))
			importErr.CleanupErrors = append(importErr.CleanupErrors, err)
		}
	}

	if len(objects) > 0 {
		ctxzap.Info(ctx, "Staged chunks cleaned up",
			zap.Int("objects", len(objects)),
			zap.Int("cleanup_failures", len(importErr.CleanupErrors)),
		)
	}
	return importErr
}

// Query answers text with Gemini grounded on the corpus through a retrieval tool
func (c *Connector) Query(
	ctx context.Context,
	cfg entity.RagConfig,
	corpus entity.CorpusHandle,
	text string,
	topK int,
	model string,
) (*entity.QueryResult, error) {
	ctx = logger.AddFields(ctx, zap.String("corpus", corpus.String()), zap.String("model", model))
	ctxzap.Debug(ctx, "Querying corpus", zap.Int("top_k", topK))

	models, err := c.models.Models(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		ctxzap.Error(ctx, "Failed to get generation client", zap.Error(err))
		return nil, err
	}

	resp, err := models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{retrievalTool(corpus, topK)},
		},
	)
	if err != nil {
		ctxzap.Error(ctx, "Query failed", zap.Error(err))
		return nil, err
	}

	result := &entity.QueryResult{
		Text:      resp.Text(),
		Citations: citations(resp),
	}

	ctxzap.Info(ctx, "Query answered",
		zap.Int("answer_length", len(result.Text)),
		zap.Int("citations", len(result.Citations)),
	)
	return result, nil
}

func (c *Connector) ListFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) ([]*entity.RagFile, error) {
	files, err := c.data.ListFiles(ctx, cfg, corpus)
	if err != nil {
		ctxzap.Error(ctx, "Failed to list corpus files", zap.String("corpus", corpus.String()), zap.Error(err))
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// DeleteFiles removes files one by one and stops at the first failure
func (c *Connector) DeleteFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, fileIDs []string) error {
	for _, id := range fileIDs {
		name := corpus.FileName(id)
		if err := c.data.DeleteFile(ctx, cfg, name); err != nil {
			ctxzap.Error(ctx, "Failed to delete corpus file", zap.String("file", name), zap.Error(err))
			return fmt.Errorf("delete file %s: %w", id, err)
		}
		ctxzap.Info(ctx, "Corpus file deleted", zap.String("file", name))
	}
	return nil
}

func (c *Connector) DeleteCorpus(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) error {
	if err := c.data.DeleteCorpus(ctx, cfg, corpus); err != nil {
		ctxzap.Error(ctx, "Failed to delete corpus", zap.String("corpus", corpus.String()), zap.Error(err))
		return fmt.Errorf("delete corpus: %w", err)
	}
	ctxzap.Info(ctx, "Corpus deleted", zap.String("corpus", corpus.String()))
	return nil
}

