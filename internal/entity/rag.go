package entity

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// RagConfig describes the corpus a single request works against.
// It is built per request and never persisted.
type RagConfig struct {
	ProjectID      string
	BucketName     string
	Location       string
	DisplayName    string
	EmbeddingModel string
	ChunkSize      int
	ChunkOverlap   int
}

// CorpusHandle is the opaque resource name of a remote RAG corpus.
type CorpusHandle string

func (h CorpusHandle) String() string {
	return string(h)
}

// NormalizeCorpusHandle expands a bare corpus id into a full resource name.
// Values that already contain a path are returned as is.
func NormalizeCorpusHandle(name, projectID, location string) CorpusHandle {
	name = strings.Trim(name, "/ ")
	if name == "" || strings.Contains(name, "/") {
		return CorpusHandle(name)
	}
	return CorpusHandle(fmt.Sprintf("projects/%s/locations/%s/ragCorpora/%s", projectID, location, name))
}

// FileName returns the resource name of a file inside the corpus.
func (h CorpusHandle) FileName(fileID string) string {
	fileID = strings.Trim(fileID, "/ ")
	if strings.Contains(fileID, "/ragFiles/") {
		return fileID
	}
	return fmt.Sprintf("%s/ragFiles/%s", h, fileID)
}

type RagFile struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description,omitempty"`
	SizeBytes   int64      `json:"size_bytes"`
	State       string     `json:"state,omitempty"`
	CreateTime  *time.Time `json:"create_time,omitempty"`
	UpdateTime  *time.Time `json:"update_time,omitempty"`
}

type Citation struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type QueryResult struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// ImportError is returned when the bulk import fails after blobs were uploaded.
// Err is the failure that stopped the import; CleanupErrors holds failures of the
// compensating blob deletes.
type ImportError struct {
	Err           error
	CleanupErrors []error
}

func (e *ImportError) Error() string {
	if len(e.CleanupErrors) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (cleanup: %v)", e.Err, multierr.Combine(e.CleanupErrors...))
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
