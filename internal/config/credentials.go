package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/futig/doc-chat/internal/entity"
)

// CredentialsResolver reads the project and service account identity from a
// service account key file. A missing or unreadable file yields an empty identity.
type CredentialsResolver struct {
	path string
}

func NewCredentialsResolver(path string) *CredentialsResolver {
	return &CredentialsResolver{path: path}
}

func (r *CredentialsResolver) Path() string {
	return r.path
}

// Exists reports whether the credentials file is present.
func (r *CredentialsResolver) Exists() bool {
	if r.path == "" {
		return false
	}
	_, err := os.Stat(r.path)
	return err == nil
}

// Identity returns the identity or the zero value on any failure.
func (r *CredentialsResolver) Identity() entity.ServiceIdentity {
	id, err := r.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Warning: could not read credentials from %s: %v\n", r.path, err)
		}
		return entity.ServiceIdentity{}
	}
	return id
}

// ProjectID returns the project_id field of the credentials file.
func (r *CredentialsResolver) ProjectID() string {
	return r.Identity().ProjectID
}

// ServiceAccount returns the client_email field of the credentials file.
func (r *CredentialsResolver) ServiceAccount() string {
	return r.Identity().ClientEmail
}

func (r *CredentialsResolver) read() (entity.ServiceIdentity, error) {
	var id entity.ServiceIdentity
	if r.path == "" {
		return id, os.ErrNotExist
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return id, err
	}

	if err := json.Unmarshal(data, &id); err != nil {
		return id, fmt.Errorf("parse credentials JSON: %w", err)
	}

	return id, nil
}
