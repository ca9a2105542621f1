package entity

import (
	"io"
)

type UploadStep string

const (
	UploadStepSaving         UploadStep = "saving"
	UploadStepExtracting     UploadStep = "extracting"
	UploadStepCreatingCorpus UploadStep = "creating_corpus"
	UploadStepImporting      UploadStep = "importing"
	UploadStepCompleted      UploadStep = "completed"
)

const (
	UploadStatusProcessing = "processing"
	UploadStatusSuccess    = "success"
	UploadStatusError      = "error"
)

// UploadStatus is the progress descriptor of a single upload.
type UploadStatus struct {
	Status   string     `json:"status"`
	Step     UploadStep `json:"step"`
	Progress int        `json:"progress"`
	Message  string     `json:"message,omitempty"`
}

type UploadRequest struct {
	UploadID   string
	Filename   string
	Size       int64
	Content    io.Reader
	BucketName string
	ProjectID  string
}

type UploadResult struct {
	UploadID   string
	Filename   string
	Corpus     CorpusHandle
	ProjectID  string
	ChunkCount int
}

type UploadResponse struct {
	Status     string `json:"status"`
	UploadID   string `json:"upload_id,omitempty"`
	CorpusName string `json:"corpus_name,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
	Message    string `json:"message,omitempty"`
}
