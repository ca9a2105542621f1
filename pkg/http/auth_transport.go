package http

import (
	"fmt"
	"net/http"

	"cloud.google.com/go/auth"
)

type authTransport struct {
	provider  auth.TokenProvider
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	if t.provider != nil {
		token, err := t.provider.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("fetch access token: %w", err)
		}

		tokenType := token.Type
		if tokenType == "" {
			tokenType = "Bearer"
		}
		reqCopy.Header.Set("Authorization", tokenType+" "+token.Value)
	}

	return t.transport.RoundTrip(reqCopy)
}

// WithTokenProvider authorizes every outbound request with a token from provider.
func WithTokenProvider(provider auth.TokenProvider) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			provider:  provider,
			transport: rt,
		}
	})
}
