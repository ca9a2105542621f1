package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/futig/doc-chat/internal/pkg/formatter"
	corpusuc "github.com/futig/doc-chat/internal/usecase/corpus"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRag struct {
	calls   int
	corpus  entity.CorpusHandle
	fileIDs []string
	err     error
}

func (c *countingRag) Query(_ context.Context, _ entity.RagConfig, corpus entity.CorpusHandle, _ string, _ int, _ string) (*entity.QueryResult, error) {
	c.calls++
	c.corpus = corpus
	if c.err != nil {
		return nil, c.err
	}
	return &entity.QueryResult{
		Text:      "grounded answer",
		Citations: []entity.Citation{{Text: "chunk", Source: "gs://b/rag-documents/1.txt", Score: 0.9}},
	}, nil
}

func (c *countingRag) ListFiles(_ context.Context, _ entity.RagConfig, corpus entity.CorpusHandle) ([]*entity.RagFile, error) {
	c.calls++
	c.corpus = corpus
	return nil, c.err
}

func (c *countingRag) DeleteFiles(_ context.Context, _ entity.RagConfig, corpus entity.CorpusHandle, fileIDs []string) error {
	c.calls++
	c.corpus, c.fileIDs = corpus, fileIDs
	return c.err
}

func (c *countingRag) DeleteCorpus(_ context.Context, _ entity.RagConfig, corpus entity.CorpusHandle) error {
	c.calls++
	c.corpus = corpus
	return c.err
}

func newRouter(rag *countingRag, debug bool) http.Handler {
	uc := corpusuc.NewUsecase(config.RAGConfig{
		Location:        "us-central1",
		GenerationModel: "gemini-1.0-pro",
		TopK:            5,
	}, rag, formatter.NewFactory(), zap.NewNop())

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, debug, zap.NewNop()), func(next http.Handler) http.Handler { return next })
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuery_Success(t *testing.T) {
	rag := &countingRag{}
	rec := do(newRouter(rag, false), http.MethodPost, "/api/query",
		`{"query":"what?","project_id":"p","corpus_name":"42"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var res entity.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "grounded answer", res.Text)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "gs://b/rag-documents/1.txt", res.Citations[0].Source)
	assert.Equal(t, entity.CorpusHandle("projects/p/locations/us-central1/ragCorpora/42"), rag.corpus)
}

func TestQuery_BadRequestsMakeNoCall(t *testing.T) {
	bodies := map[string]string{
		"missing query":      `{"project_id":"p","corpus_name":"c"}`,
		"missing project_id": `{"query":"q","corpus_name":"c"}`,
		"malformed json":     `{"query":`,
		"wrong type":         `{"query":"q","project_id":"p","corpus_name":"c","top_k":"five"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rag := &countingRag{}
			rec := do(newRouter(rag, false), http.MethodPost, "/api/query", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Zero(t, rag.calls)
		})
	}
}

func TestQuery_BackendFailureMessageGatedByDebug(t *testing.T) {
	body := `{"query":"q","project_id":"p","corpus_name":"c"}`

	rec := do(newRouter(&countingRag{err: errors.New("quota exceeded")}, false), http.MethodPost, "/api/query", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	rec = do(newRouter(&countingRag{err: errors.New("quota exceeded")}, true), http.MethodPost, "/api/query", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error: quota exceeded"}`, rec.Body.String())
}

func TestExport(t *testing.T) {
	rec := do(newRouter(&countingRag{}, false), http.MethodPost, "/api/query/export",
		`{"query":"what?","project_id":"p","corpus_name":"42","format":"md"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="answer_42.md"`)
	assert.Contains(t, rec.Body.String(), "grounded answer")

	rag := &countingRag{}
	rec = do(newRouter(rag, false), http.MethodPost, "/api/query/export",
		`{"query":"what?","project_id":"p","corpus_name":"42","format":"rtf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, rag.calls)
}

func TestListFiles(t *testing.T) {
	rag := &countingRag{}
	h := newRouter(rag, false)

	rec := do(h, http.MethodGet, "/api/files/42?project_id=p", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())

	full := "projects/p/locations/europe-west1/ragCorpora/7"
	rec = do(h, http.MethodGet, "/api/files/"+full+"?project_id=p", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.CorpusHandle(full), rag.corpus)

	rec = do(h, http.MethodGet, "/api/files/projects%2Fp%2Flocations%2Feurope-west1%2FragCorpora%2F8?project_id=p", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.CorpusHandle("projects/p/locations/europe-west1/ragCorpora/8"), rag.corpus)

	calls := rag.calls
	rec = do(h, http.MethodGet, "/api/files/42", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"project_id is required"}`, rec.Body.String())
	assert.Equal(t, calls, rag.calls)
}

func TestDeleteDocument(t *testing.T) {
	rag := &countingRag{}
	h := newRouter(rag, false)

	rec := do(h, http.MethodDelete, "/api/corpus/42/document?project_id=p&document_id=d1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, []string{"d1"}, rag.fileIDs)

	rec = do(h, http.MethodDelete, "/api/corpus/42/document?project_id=p", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, rag.calls)

	rec = do(newRouter(&countingRag{err: errors.New("boom")}, false), http.MethodDelete, "/api/corpus/42/document?project_id=p&document_id=d1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDeleteCorpus(t *testing.T) {
	rag := &countingRag{}
	h := newRouter(rag, false)

	rec := do(h, http.MethodDelete, "/api/corpus/projects%2Fp%2Flocations%2Fus-central1%2FragCorpora%2F9?project_id=p", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.CorpusHandle("projects/p/locations/us-central1/ragCorpora/9"), rag.corpus)

	rec = do(h, http.MethodDelete, "/api/corpus/9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, rag.calls)
}
