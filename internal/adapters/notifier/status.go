package notifier

import (
	"context"

	"github.com/okian/trafficrobot/internal/domain/model"
)

// Default status channel values.
const (
	defaultEventName = "Traffic Update"
	defaultUsername  = "traffic-robot"
)

// StatusChannel posts status events to a fixed webhook. It is the secondary,
// best-effort channel; callers must not let its errors reach the tick caller.
type StatusChannel struct {
	notifier  *Notifier
	url       string
	eventName string
	username  string
}

// NewStatusChannel creates a StatusChannel for webhookURL. The notifier
// options configure the underlying transport.
func NewStatusChannel(webhookURL, eventName, username string, opts ...Option) *StatusChannel {
	if eventName == "" {
		eventName = defaultEventName
	}
	if username == "" {
		username = defaultUsername
	}
	opts = append([]Option{WithChannel("status")}, opts...)
	return &StatusChannel{
		notifier:  New(opts...),
		url:       webhookURL,
		eventName: eventName,
		username:  username,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *StatusChannel) Enabled() bool { return c != nil && c.url != "" }

// Event builds the status payload for a tick.
func (c *StatusChannel) Event(status, message string) model.StatusEvent {
	return model.StatusEvent{
		EventName: c.eventName,
		Message:   message,
		Status:    status,
		Username:  c.username,
	}
}

// Send posts ev to the webhook.
func (c *StatusChannel) Send(ctx context.Context, ev model.StatusEvent) error {
	_, err := c.notifier.Post(ctx, c.url, ev)
	return err
}
