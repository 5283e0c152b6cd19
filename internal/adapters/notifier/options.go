package notifier

import (
	"net/http"
	"time"

	"github.com/okian/trafficrobot/pkg/logger"
)

// Option applies a configuration option to the Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client used for deliveries. Redirects are
// never followed, whatever the client's own policy.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			c := *client
			c.CheckRedirect = noRedirect
			n.client = &c
		}
	}
}

// WithTimeout bounds a single delivery.
func WithTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header on outbound requests.
func WithUserAgent(ua string) Option {
	return func(n *Notifier) {
		if ua != "" {
			n.userAgent = ua
		}
	}
}

// WithChannel labels deliveries in logs and metrics ("primary", "status").
func WithChannel(channel string) Option {
	return func(n *Notifier) {
		if channel != "" {
			n.channel = channel
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}
