package common

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"github.com/futig/doc-chat/internal/config"
	pkgHTTP "github.com/futig/doc-chat/pkg/http"
	"go.uber.org/zap"
)

// CloudPlatformScope is the OAuth scope shared by the storage, Vertex AI and Gemini clients
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// DetectCredentials loads the service account key at credentialsFile when it exists,
// falling back to Application Default Credentials otherwise.
func DetectCredentials(credentialsFile string, exists bool) (*auth.Credentials, error) {
	opts := &credentials.DetectOptions{
		Scopes: []string{CloudPlatformScope},
	}
	if exists {
		opts.CredentialsFile = credentialsFile
	}

	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return nil, fmt.Errorf("detect google credentials: %w", err)
	}
	return creds, nil
}

// NewGoogleHTTPClient builds the HTTP client used for Google REST APIs:
// pooled connections, timeouts, debug request logging and OAuth token injection.
func NewGoogleHTTPClient(cfg config.HTTPClientConfig, creds *auth.Credentials, logger *zap.Logger) *http.Client {
	opts := []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithUserAgent("doc-chat"),
		pkgHTTP.WithRequestLogging(),
	}

	if creds != nil {
		opts = append(opts, pkgHTTP.WithTokenProvider(creds))
	} else {
		logger.Warn("No Google credentials, outbound requests are unauthenticated")
	}

	return pkgHTTP.NewClient(opts...)
}

// ProjectFromCredentials returns the project the credentials belong to, or "".
func ProjectFromCredentials(ctx context.Context, creds *auth.Credentials) string {
	if creds == nil {
		return ""
	}
	project, err := creds.ProjectID(ctx)
	if err != nil {
		return ""
	}
	return project
}
