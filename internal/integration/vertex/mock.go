package vertex

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/futig/doc-chat/internal/entity"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector keeps corpora in memory and answers queries by keyword overlap
type MockConnector struct {
	mu      sync.Mutex
	corpora map[entity.CorpusHandle][]*mockFile
	logger  *zap.Logger
}

type mockFile struct {
	file *entity.RagFile
	text string
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		corpora: make(map[entity.CorpusHandle][]*mockFile),
		logger:  logger,
	}
}

func (m *MockConnector) CreateCorpus(ctx context.Context, cfg entity.RagConfig) (entity.CorpusHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	corpus := entity.NormalizeCorpusHandle(uuid.NewString(), cfg.ProjectID, cfg.Location)
	m.corpora[corpus] = nil

	ctxzap.Info(ctx, "[MOCK] corpus created", zap.String("corpus", corpus.String()), zap.String("display_name", cfg.DisplayName))
	return corpus, nil
}

func (m *MockConnector) ImportChunks(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, chunks []string, chunkSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.corpora[corpus]; !ok {
		return fmt.Errorf("%w: corpus %s", entity.ErrNotFound, corpus)
	}

	now := time.Now()
	imported := 0
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		id := uuid.NewString()
		m.corpora[corpus] = append(m.corpora[corpus], &mockFile{
			file: &entity.RagFile{
				Name:        corpus.FileName(id),
				DisplayName: id + ".txt",
				SizeBytes:   int64(len(chunk)),
				State:       "ACTIVE",
				CreateTime:  &now,
				UpdateTime:  &now,
			},
			text: chunk,
		})
		imported++
	}

	if imported == 0 {
		return entity.ErrNothingToImport
	}

	ctxzap.Info(ctx, "[MOCK] chunks imported", zap.String("corpus", corpus.String()), zap.Int("files", imported))
	return nil
}

func (m *MockConnector) Query(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, text string, topK int, model string) (*entity.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, ok := m.corpora[corpus]
	if !ok {
		return nil, fmt.Errorf("%w: corpus %s", entity.ErrNotFound, corpus)
	}

	words := strings.Fields(strings.ToLower(text))
	result := &entity.QueryResult{Citations: []entity.Citation{}}
	for _, f := range files {
		if len(result.Citations) >= topK {
			break
		}
		lower := strings.ToLower(f.text)
		hits := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		result.Citations = append(result.Citations, entity.Citation{
			Text:   f.text,
			Source: f.file.DisplayName,
			Score:  float64(hits) / float64(len(words)),
		})
	}

	if len(result.Citations) == 0 {
		result.Text = "[MOCK] No matching passages found."
	} else {
		result.Text = "[MOCK] " + result.Citations[0].Text
	}

	ctxzap.Info(ctx, "[MOCK] query answered", zap.String("corpus", corpus.String()), zap.Int("citations", len(result.Citations)))
	return result, nil
}

func (m *MockConnector) ListFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) ([]*entity.RagFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := []*entity.RagFile{}
	for _, f := range m.corpora[corpus] {
		files = append(files, f.file)
	}
	return files, nil
}

func (m *MockConnector) DeleteFiles(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle, fileIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range fileIDs {
		name := corpus.FileName(id)
		kept := m.corpora[corpus][:0]
		for _, f := range m.corpora[corpus] {
			if f.file.Name != name {
				kept = append(kept, f)
			}
		}
		m.corpora[corpus] = kept
		ctxzap.Info(ctx, "[MOCK] corpus file deleted", zap.String("file", name))
	}
	return nil
}

func (m *MockConnector) DeleteCorpus(ctx context.Context, cfg entity.RagConfig, corpus entity.CorpusHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.corpora, corpus)
	ctxzap.Info(ctx, "[MOCK] corpus deleted", zap.String("corpus", corpus.String()))
	return nil
}

// MockOCR returns a fixed transcript for every image
type MockOCR struct{}

func (MockOCR) Transcribe(ctx context.Context, mimeType string, image []byte) (string, error) {
	ctxzap.Info(ctx, "[MOCK] transcribing image", zap.String("mime_type", mimeType), zap.Int("bytes", len(image)))
	return "[MOCK] Text recognized in the uploaded image.", nil
}
