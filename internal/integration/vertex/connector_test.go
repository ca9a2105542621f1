package vertex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeBlobs struct {
	uploaded   []string
	deleted    []string
	failOn     int // 1-based upload index that fails, 0 never
	deleteErr  error
	deleteCtxs []error
}

func (f *fakeBlobs) UploadText(_ context.Context, bucket, object, _ string) (string, error) {
	if f.failOn > 0 && len(f.uploaded)+1 == f.failOn {
		return "", errors.New("upload refused")
	}
	f.uploaded = append(f.uploaded, object)
	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

func (f *fakeBlobs) DeleteObject(ctx context.Context, _, object string) error {
	f.deleted = append(f.deleted, object)
	f.deleteCtxs = append(f.deleteCtxs, ctx.Err())
	return f.deleteErr
}

type fakeRAGData struct {
	importCalls int
	importURIs  []string
	chunkSize   int
	importErr   error
	stats       ImportStats
	deleted     []string
}

func (f *fakeRAGData) CreateCorpus(_ context.Context, cfg entity.RagConfig) (entity.CorpusHandle, error) {
	return entity.NormalizeCorpusHandle("c-1", cfg.ProjectID, cfg.Location), nil
}

func (f *fakeRAGData) ImportFiles(_ context.Context, _ entity.RagConfig, _ entity.CorpusHandle, uris []string, chunkSize int) (ImportStats, error) {
	f.importCalls++
	f.importURIs = uris
	f.chunkSize = chunkSize
	return f.stats, f.importErr
}

func (f *fakeRAGData) ListFiles(context.Context, entity.RagConfig, entity.CorpusHandle) ([]*entity.RagFile, error) {
	return []*entity.RagFile{{Name: "f"}}, nil
}

func (f *fakeRAGData) DeleteFile(_ context.Context, _ entity.RagConfig, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeRAGData) DeleteCorpus(context.Context, entity.RagConfig, entity.CorpusHandle) error {
	return nil
}

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) Models(context.Context, string, string) (modelsAPI, error) {
	return f, nil
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	return f.resp, f.err
}

func testConfig() entity.RagConfig {
	return entity.RagConfig{
		ProjectID:      "p",
		BucketName:     "b",
		Location:       "us-central1",
		DisplayName:    "corpus_doc.txt",
		EmbeddingModel: "textembedding-gecko-multilingual@001",
		ChunkSize:      512,
		ChunkOverlap:   100,
	}
}

func newTestConnector(data ragDataAPI, models modelProvider, blobs BlobStore) *Connector {
	c := newConnector(data, models, blobs, "rag-documents", zap.NewNop())
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	return c
}

func TestImportChunks_Success(t *testing.T) {
	blobs := &fakeBlobs{}
	data := &fakeRAGData{stats: ImportStats{Imported: 2}}
	c := newTestConnector(data, &fakeModels{}, blobs)

	err := c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"c1", "  ", "c2"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"rag-documents/id1.txt", "rag-documents/id2.txt"}, blobs.uploaded)
	assert.Equal(t, []string{"gs://b/rag-documents/id1.txt", "gs://b/rag-documents/id2.txt"}, data.importURIs)
	assert.Equal(t, 512, data.chunkSize, "falls back to the configured chunk size")
	assert.Empty(t, blobs.deleted)
}

func TestImportChunks_ExplicitChunkSize(t *testing.T) {
	data := &fakeRAGData{stats: ImportStats{Imported: 1}}
	c := newTestConnector(data, &fakeModels{}, &fakeBlobs{})

	require.NoError(t, c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"c1"}, 256))
	assert.Equal(t, 256, data.chunkSize)
}

func TestImportChunks_ImportFailureDeletesStagedObjects(t *testing.T) {
	blobs := &fakeBlobs{}
	primary := errors.New("quota exceeded")
	data := &fakeRAGData{importErr: primary}
	c := newTestConnector(data, &fakeModels{}, blobs)

	err := c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"c1", "c2"}, 0)
	require.Error(t, err)

	assert.ErrorIs(t, err, primary)
	var importErr *entity.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Empty(t, importErr.CleanupErrors)

	assert.Equal(t, blobs.uploaded, blobs.deleted)
	assert.Len(t, blobs.deleted, 2)
}

func TestImportChunks_CleanupFailuresAreCarried(t *testing.T) {
	cleanupErr := errors.New("delete refused")
	blobs := &fakeBlobs{deleteErr: cleanupErr}
	primary := errors.New("import failed")
	c := newTestConnector(&fakeRAGData{importErr: primary}, &fakeModels{}, blobs)

	err := c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"c1", "c2"}, 0)

	var importErr *entity.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.ErrorIs(t, err, primary)
	assert.Len(t, importErr.CleanupErrors, 2)
	assert.Contains(t, err.Error(), "delete refused")
}

func TestImportChunks_AllFilesFailedIsAnError(t *testing.T) {
	blobs := &fakeBlobs{}
	c := newTestConnector(&fakeRAGData{stats: ImportStats{Failed: 2}}, &fakeModels{}, blobs)

	err := c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"c1", "c2"}, 0)

	var importErr *entity.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.ErrorIs(t, err, entity.ErrNothingToImport)
	assert.Len(t, blobs.deleted, 2)
}

func TestImportChunks_UploadFailureCompensatesEarlierObjects(t *testing.T) {
	blobs := &fakeBlobs{failOn: 3}
	data := &fakeRAGData{}
	c := newTestConnector(data, &fakeModels{}, blobs)

	err := c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"c1", "c2", "c3"}, 0)

	var importErr *entity.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, []string{"rag-documents/id1.txt", "rag-documents/id2.txt"}, blobs.deleted)
	assert.Zero(t, data.importCalls)
}

func TestImportChunks_NothingToImport(t *testing.T) {
	blobs := &fakeBlobs{}
	data := &fakeRAGData{}
	c := newTestConnector(data, &fakeModels{}, blobs)

	err := c.ImportChunks(context.Background(), testConfig(), "corpus", []string{"", "   ", "\n"}, 0)

	assert.ErrorIs(t, err, entity.ErrNothingToImport)
	assert.Zero(t, data.importCalls)
	assert.Empty(t, blobs.uploaded)
}

func TestQuery_BuildsRetrievalToolAndCitations(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText("Revenue grew 12%.", genai.RoleModel),
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{Text: "Revenue grew by 12 percent", URI: "gs://b/rag-documents/id1.txt"}},
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{Text: "Costs are flat", Title: "id2.txt"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://example.com"}},
				},
				GroundingSupports: []*genai.GroundingSupport{
					{GroundingChunkIndices: []int32{0}, ConfidenceScores: []float32{0.5}},
					{GroundingChunkIndices: []int32{0, 1}, ConfidenceScores: []float32{0.75, 0.25}},
				},
			},
		}},
	}}
	c := newTestConnector(&fakeRAGData{}, models, &fakeBlobs{})

	corpus := entity.CorpusHandle("projects/p/locations/us-central1/ragCorpora/c-1")
	res, err := c.Query(context.Background(), testConfig(), corpus, "How did revenue change?", 7, "gemini-1.0-pro")
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.0-pro", models.model)
	require.Len(t, models.config.Tools, 1)
	store := models.config.Tools[0].Retrieval.VertexRAGStore
	assert.Equal(t, corpus.String(), store.RAGResources[0].RAGCorpus)
	assert.Equal(t, int32(7), *store.SimilarityTopK)

	want := &entity.QueryResult{
		Text: "Revenue grew 12%.",
		Citations: []entity.Citation{
			{Text: "Revenue grew by 12 percent", Source: "gs://b/rag-documents/id1.txt", Score: 0.75},
			{Text: "Costs are flat", Source: "id2.txt", Score: 0.25},
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("query result mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_ErrorIsReturnedUnchanged(t *testing.T) {
	boom := errors.New("model unavailable")
	c := newTestConnector(&fakeRAGData{}, &fakeModels{err: boom}, &fakeBlobs{})

	_, err := c.Query(context.Background(), testConfig(), "corpus", "q", 5, "gemini-1.0-pro")
	assert.Same(t, boom, err)
}

func TestQuery_NoGroundingYieldsEmptyCitations(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("I don't know.", genai.RoleModel)}},
	}}
	c := newTestConnector(&fakeRAGData{}, models, &fakeBlobs{})

	res, err := c.Query(context.Background(), testConfig(), "corpus", "q", 5, "m")
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", res.Text)
	assert.NotNil(t, res.Citations)
	assert.Empty(t, res.Citations)
}

func TestDeleteFiles_ExpandsShortIDs(t *testing.T) {
	data := &fakeRAGData{}
	c := newTestConnector(data, &fakeModels{}, &fakeBlobs{})

	corpus := entity.CorpusHandle("projects/p/locations/l/ragCorpora/c")
	err := c.DeleteFiles(context.Background(), testConfig(), corpus, []string{"f1", "projects/p/locations/l/ragCorpora/c/ragFiles/f2"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"projects/p/locations/l/ragCorpora/c/ragFiles/f1",
		"projects/p/locations/l/ragCorpora/c/ragFiles/f2",
	}, data.deleted)
}

func TestOCR_SendsImageAndPrompt(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("  Scanned text\n", genai.RoleModel)}},
	}}
	ocr := newOCR(models, "p", "us-central1", "gemini-1.5-flash", zap.NewNop())

	text, err := ocr.Transcribe(context.Background(), "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "Scanned text", text)
	assert.Equal(t, "gemini-1.5-flash", models.model)
}

func TestOCR_RequiresProject(t *testing.T) {
	ocr := newOCR(&fakeModels{}, "", "us-central1", "m", zap.NewNop())
	_, err := ocr.Transcribe(context.Background(), "image/png", nil)
	assert.Error(t, err)
}

func TestMockConnector_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMockConnector(zap.NewNop())
	cfg := testConfig()

	corpus, err := m.CreateCorpus(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, m.ImportChunks(ctx, cfg, corpus, []string{"alpha beta", "gamma"}, 0))

	files, err := m.ListFiles(ctx, cfg, corpus)
	require.NoError(t, err)
	require.Len(t, files, 2)

	res, err := m.Query(ctx, cfg, corpus, "gamma", 5, "m")
	require.NoError(t, err)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "gamma", res.Citations[0].Text)

	require.NoError(t, m.DeleteFiles(ctx, cfg, corpus, []string{files[0].Name}))
	files, err = m.ListFiles(ctx, cfg, corpus)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	assert.ErrorIs(t, m.ImportChunks(ctx, cfg, corpus, []string{" "}, 0), entity.ErrNothingToImport)
}

func TestImportChunks_CleanupSurvivesCancelledRequest(t *testing.T) {
	blobs := &fakeBlobs{}
	data := &fakeRAGData{importErr: context.DeadlineExceeded}
	c := newTestConnector(data, &fakeModels{}, blobs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.ImportChunks(ctx, testConfig(), "corpus", []string{"c1", "c2"}, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, blobs.uploaded, blobs.deleted)
	assert.Equal(t, []error{nil, nil}, blobs.deleteCtxs)
}
