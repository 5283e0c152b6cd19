// Package notifier delivers tick messages to webhook destinations.
//
// A Notifier performs exactly one POST per call and never retries; retry
// policy belongs to whoever triggers the next tick.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/errkind"
	"github.com/okian/trafficrobot/pkg/logger"
	"github.com/okian/trafficrobot/pkg/metrics"
)

// Default notifier configuration constants.
const (
	defaultTimeout   = 8 * time.Second
	defaultUserAgent = "traffic-robot/1.0"
	defaultChannel   = "primary"
	detailPeekBytes  = 256

	// TickIDHeader carries the tick id on outbound deliveries.
	TickIDHeader = "X-Tick-ID"
)

// messagePayload is the wire body sent to return_url.
type messagePayload struct {
	Message string `json:"message"`
}

// Notifier posts JSON payloads to destinations. It carries only immutable
// configuration and is safe for concurrent use.
type Notifier struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	channel   string
	logger    logger.Logger
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		client:    &http.Client{CheckRedirect: noRedirect},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		channel:   defaultChannel,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("notifier." + n.channel)
	}
	return n
}

// ValidateDestination accepts only absolute http(s) URLs with a host.
func ValidateDestination(destination string) error {
	const op = "notifier.validate"
	if strings.TrimSpace(destination) == "" {
		return errkind.Wrap(op, ErrInvalidDestination, errors.New("empty destination"))
	}
	u, err := url.Parse(destination)
	if err != nil {
		return errkind.Wrap(op, ErrInvalidDestination, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errkind.Wrap(op, ErrInvalidDestination, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" || u.Hostname() == "" {
		return errkind.Wrap(op, ErrInvalidDestination, errors.New("missing host"))
	}
	return nil
}

// Deliver posts {"message": message} to destination.
func (n *Notifier) Deliver(ctx context.Context, destination, message string) (model.DeliveryOutcome, error) {
	return n.Post(ctx, destination, messagePayload{Message: message})
}

// Post sends payload as JSON to destination and reports the outcome.
func (n *Notifier) Post(ctx context.Context, destination string, payload any) (model.DeliveryOutcome, error) {
	if err := ValidateDestination(destination); err != nil {
		metrics.RecordDelivery(n.channel, "invalid_destination", 0)
		return model.DeliveryOutcome{LastError: err.Error()}, err
	}

	start := time.Now()
	outcome := model.DeliveryOutcome{Attempts: 1}
	status, err := n.post(ctx, destination, payload)
	outcome.StatusCode = status
	outcome.Latency = time.Since(start)

	if err != nil {
		outcome.LastError = err.Error()
		metrics.RecordDelivery(n.channel, "failed", float64(outcome.Latency.Milliseconds()))
		n.logger.Warn(ctx, "delivery failed",
			logger.String("destination", redact(destination)),
			logger.Int("status", status),
			logger.Duration("elapsed", outcome.Latency),
			logger.Error(err),
		)
		return outcome, err
	}

	outcome.Delivered = true
	metrics.RecordDelivery(n.channel, "delivered", float64(outcome.Latency.Milliseconds()))
	n.logger.Debug(ctx, "delivered",
		logger.String("destination", redact(destination)),
		logger.Int("status", status),
		logger.Duration("elapsed", outcome.Latency),
	)
	return outcome, nil
}

func (n *Notifier) post(ctx context.Context, destination string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, &DeliveryError{Destination: redact(destination), Detail: "encode payload", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return 0, &DeliveryError{Destination: redact(destination), Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", n.userAgent)
	if id := logger.TickID(ctx); id != "" {
		req.Header.Set(TickIDHeader, id)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, &DeliveryError{Destination: redact(destination), Detail: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		peek, _ := io.ReadAll(io.LimitReader(resp.Body, detailPeekBytes))
		detail := strings.TrimSpace(string(peek))
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &DeliveryError{Destination: redact(destination), Status: resp.StatusCode, Detail: detail}
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, detailPeekBytes))
	return resp.StatusCode, nil
}

// noRedirect returns 3xx responses as-is. Following them would turn the POST
// into a bodyless GET.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// redact drops query and userinfo, which often carry webhook secrets.
func redact(destination string) string {
	u, err := url.Parse(destination)
	if err != nil {
		return "<unparseable>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
