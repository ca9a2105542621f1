package entity

type QueryRequest struct {
	Query      string `json:"query" validate:"required"`
	ProjectID  string `json:"project_id" validate:"required"`
	CorpusName string `json:"corpus_name" validate:"required"`
	TopK       int    `json:"top_k" validate:"omitempty,min=1,max=100"`
}

type ListFilesResponse struct {
	Files []*RagFile `json:"files"`
}

type DeleteDocumentRequest struct {
	CorpusName string `validate:"required"`
	ProjectID  string `validate:"required"`
	DocumentID string `validate:"required"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type CreateBucketRequest struct {
	BucketName string `json:"bucket_name"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// BucketCreateResult is the structured outcome of a bucket creation attempt.
type BucketCreateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ServiceIdentity is what the local credentials file tells us about the deployment.
type ServiceIdentity struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// Storage permission probe keys
const (
	PermissionListBuckets   = "list_buckets"
	PermissionCreateBuckets = "create_buckets"
	PermissionManageObjects = "manage_objects"
)
