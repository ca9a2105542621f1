package vertex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	aiplatform "cloud.google.com/go/aiplatform/apiv1beta1"
	"cloud.google.com/go/aiplatform/apiv1beta1/aiplatformpb"
	"github.com/futig/doc-chat/internal/entity"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ImportStats summarizes a finished bulk import
type ImportStats struct {
	Imported int64
	Failed   int64
}

// ragDataAPI is the part of the Vertex RAG data service the connector relies on
type ragDataAPI interface {
	CreateCorpus(ctx context.Context, cfg entity.RagConfig) (entity.CorpusHandle, error)
	ImportFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, uris []string, chunkSize int) (ImportStats, error)
	ListFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) ([]*entity.RagFile, error)
	DeleteFile(ctx context.Context, cfg entity.RagConfig, name string) error
	DeleteCorpus(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) error
}

// ragDataClient talks to the regional VertexRagDataService endpoints.
// One gRPC client is opened per location and reused.
type ragDataClient struct {
	opts []option.ClientOption

	mu      sync.Mutex
	clients map[string]*aiplatform.VertexRagDataClient
}

func newRAGDataClient(opts ...option.ClientOption) *ragDataClient {
	return &ragDataClient{
		opts:    opts,
		clients: make(map[string]*aiplatform.VertexRagDataClient),
	}
}

func (r *ragDataClient) client(ctx context.Context, location string) (*aiplatform.VertexRagDataClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[location]; ok {
		return c, nil
	}

	opts := append([]option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)),
	}, r.opts...)

	c, err := aiplatform.NewVertexRagDataClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rag data client for %s: %w", location, err)
	}
	r.clients[location] = c
	return c, nil
}

func (r *ragDataClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for location, c := range r.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", location, err))
		}
		delete(r.clients, location)
	}
	return errors.Join(errs...)
}

func (r *ragDataClient) CreateCorpus(ctx context.Context, cfg entity.RagConfig) (entity.CorpusHandle, error) {
	c, err := r.client(ctx, cfg.Location)
	if err != nil {
		return "", err
	}

	req := &aiplatformpb.CreateRagCorpusRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s", cfg.ProjectID, cfg.Location),
		RagCorpus: &aiplatformpb.RagCorpus{
			DisplayName: cfg.DisplayName,
			RagVectorDbConfig: &aiplatformpb.RagVectorDbConfig{
				VectorDb: &aiplatformpb.RagVectorDbConfig_RagManagedDb_{
					RagManagedDb: &aiplatformpb.RagVectorDbConfig_RagManagedDb{},
				},
				RagEmbeddingModelConfig: &aiplatformpb.RagEmbeddingModelConfig{
					ModelConfig: &aiplatformpb.RagEmbeddingModelConfig_VertexPredictionEndpoint_{
						VertexPredictionEndpoint: &aiplatformpb.RagEmbeddingModelConfig_VertexPredictionEndpoint{
							Endpoint: embeddingEndpoint(cfg),
						},
					},
				},
			},
		},
	}

	op, err := c.CreateRagCorpus(ctx, req)
	if err != nil {
		return "", err
	}

	corpus, err := op.Wait(ctx)
	if err != nil {
		return "", err
	}
	return entity.CorpusHandle(corpus.GetName()), nil
}

func (r *ragDataClient) ImportFiles(
	ctx context.Context,
	cfg entity.RagConfig,
	corpus entity.CorpusHandle,
	uris []string,
	chunkSize int,
) (ImportStats, error) {
	c, err := r.client(ctx, cfg.Location)
	if err != nil {
		return ImportStats{}, err
	}

	req := &aiplatformpb.ImportRagFilesRequest{
		Parent: corpus.String(),
		ImportRagFilesConfig: &aiplatformpb.ImportRagFilesConfig{
			ImportSource: &aiplatformpb.ImportRagFilesConfig_GcsSource{
				GcsSource: &aiplatformpb.GcsSource{Uris: uris},
			},
			RagFileChunkingConfig: &aiplatformpb.RagFileChunkingConfig{
				ChunkSize:    int32(chunkSize),
				ChunkOverlap: int32(cfg.ChunkOverlap),
			},
		},
	}

	op, err := c.ImportRagFiles(ctx, req)
	if err != nil {
		return ImportStats{}, err
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return ImportStats{}, err
	}

	return ImportStats{
		Imported: resp.GetImportedRagFilesCount(),
		Failed:   resp.GetFailedRagFilesCount(),
	}, nil
}

func (r *ragDataClient) ListFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) ([]*entity.RagFile, error) {
	c, err := r.client(ctx, cfg.Location)
	if err != nil {
		return nil, err
	}

	it := c.ListRagFiles(ctx, &aiplatformpb.ListRagFilesRequest{Parent: corpus.String()})

	files := []*entity.RagFile{}
	for {
		pb, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		files = append(files, toRagFile(pb))
	}
	return files, nil
}

func (r *ragDataClient) DeleteFile(ctx context.Context, cfg entity.RagConfig, name string) error {
	c, err := r.client(ctx, cfg.Location)
	if err != nil {
		return err
	}

	op, err := c.DeleteRagFile(ctx, &aiplatformpb.DeleteRagFileRequest{Name: name})
	if err != nil {
		return err
	}
	return op.Wait(ctx)
}

func (r *ragDataClient) DeleteCorpus(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) error {
	c, err := r.client(ctx, cfg.Location)
	if err != nil {
		return err
	}

	op, err := c.DeleteRagCorpus(ctx, &aiplatformpb.DeleteRagCorpusRequest{
		Name:  corpus.String(),
		Force: true,
	})
	if err != nil {
		return err
	}
	return op.Wait(ctx)
}

func embeddingEndpoint(cfg entity.RagConfig) string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.ProjectID, cfg.Location, cfg.EmbeddingModel)
}

func toRagFile(pb *aiplatformpb.RagFile) *entity.RagFile {
	f := &entity.RagFile{
		Name:        pb.GetName(),
		DisplayName: pb.GetDisplayName(),
		Description: pb.GetDescription(),
		SizeBytes:   pb.GetSizeBytes(),
	}

	if state := pb.GetFileStatus().GetState(); state != aiplatformpb.FileStatus_STATE_UNSPECIFIED {
		f.State = state.String()
	}
	if pb.GetCreateTime() != nil {
		t := pb.GetCreateTime().AsTime()
		f.CreateTime = &t
	}
	if pb.GetUpdateTime() != nil {
		t := pb.GetUpdateTime().AsTime()
		f.UpdateTime = &t
	}
	return f
}
