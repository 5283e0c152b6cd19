package source

import (
	"net/http"
	"time"

	"github.com/okian/trafficrobot/pkg/logger"
)

// Option applies a configuration option to the LiveSource.
type Option func(*LiveSource)

// WithHTTPClient replaces the HTTP client, e.g. with an httptest client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *LiveSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithBaseURL points the source at another Directions API host.
func WithBaseURL(baseURL string) Option {
	return func(s *LiveSource) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithTimeout bounds a single fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(s *LiveSource) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *LiveSource) {
		if l != nil {
			s.logger = l
		}
	}
}
