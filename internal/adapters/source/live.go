package source

import (
	"context"
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

// Default live source configuration constants.
const (
	DefaultBaseURL     = "https://maps.googleapis.com"
	directionsPath     = "/maps/api/directions/json"
	defaultTimeout     = 8 * time.Second
	maxResponseBytes   = 8 << 20
	errorBodyPeekBytes = 512
)

// LiveSource queries the Directions API with traffic information. It issues
// exactly one request per Fetch and never retries.
type LiveSource struct {
	client  *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  logger.Logger
}

// NewLiveSource creates a LiveSource. An empty apiKey yields
// ErrSourceConfigMissing and must stop the process from serving.
func NewLiveSource(apiKey string, opts ...Option) (*LiveSource, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errkind.New("source.live.new", ErrSourceConfigMissing)
	}
	s := &LiveSource{
		client:  &http.Client{},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("source.live")
	}
	return s, nil
}

// Kind implements Source.
func (s *LiveSource) Kind() string { return KindLive }

// Fetch implements Source.
func (s *LiveSource) Fetch(ctx context.Context, spec model.RouteSpec) (model.RouteReport, error) {
	const op = "source.live.fetch"
	start := time.Now()

	report, err := s.fetch(ctx, op, spec)

	result := "ok"
	if err != nil {
		result = errorResult(err)
		s.logger.Warn(ctx, "directions request failed",
			logger.String("route", spec.Name),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
	}
	metrics.RecordSourceFetch(KindLive, result, float64(time.Since(start).Milliseconds()))
	return report, err
}

func (s *LiveSource) fetch(ctx context.Context, op string, spec model.RouteSpec) (model.RouteReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.requestURL(spec), http.NoBody)
	if err != nil {
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceUnavailable, redactKey(err, s.apiKey))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		peek, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPeekBytes))
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceUnavailable,
			fmt.Errorf("directions api returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(peek))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.RouteReport{}, errkind.Wrap(op, ErrSourceUnavailable, err)
	}
	return parseDirections(op, routeID(spec), body)
}

func (s *LiveSource) requestURL(spec model.RouteSpec) string {
	q := url.Values{}
	q.Set("origin", spec.Origin)
	q.Set("destination", spec.Destination)
	q.Set("departure_time", "now")
	q.Set("traffic_model", "best_guess")
	q.Set("key", s.apiKey)
	return strings.TrimRight(s.baseURL, "/") + directionsPath + "?" + q.Encode()
}

// routeID derives a stable identifier for the report from the spec.
func routeID(spec model.RouteSpec) string {
	if spec.Origin == "" && spec.Destination == "" {
		return spec.Name
	}
	return spec.Origin + "->" + spec.Destination
}

// redactKey keeps the API key out of url.Error messages, which embed the URL.
func redactKey(err error, key string) error {
	escaped := url.QueryEscape(key)
	msg := err.Error()
	if key == "" || !strings.Contains(msg, escaped) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, escaped, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
