// Package service runs ticks: fetch a route report, classify it, deliver the
// verdict to the caller's return_url and hand a status event to the
// background dispatcher.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trafficrobot/internal/adapters/mq/queue"
	"github.com/okian/trafficrobot/internal/adapters/mq/worker"
	"github.com/okian/trafficrobot/internal/adapters/notifier"
	"github.com/okian/trafficrobot/internal/domain/evaluator"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/errkind"
	"github.com/okian/trafficrobot/pkg/logger"
	"github.com/okian/trafficrobot/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultStatusQueueSize = 256
	defaultStatusWorkers   = 2
	stopTimeout            = 5 * time.Second
)

// Tick outcome labels used for metrics and stats.
const (
	outcomeCompleted       = "completed"
	outcomeBadRequest      = "bad_request"
	outcomeUpstreamFailure = "upstream_failure"
	outcomeDeliveryFailure = "delivery_failure"
)

// Source fetches route reports.
type Source interface {
	Fetch(ctx context.Context, spec model.RouteSpec) (model.RouteReport, error)
	Kind() string
}

// Classifier turns a report into a verdict and message.
type Classifier interface {
	Classify(report model.RouteReport) (model.Classification, string)
}

// Deliverer posts a message to a destination.
type Deliverer interface {
	Deliver(ctx context.Context, destination, message string) (model.DeliveryOutcome, error)
}

// StatusChannel is the best-effort secondary channel.
type StatusChannel interface {
	Enabled() bool
	Event(status, message string) model.StatusEvent
	Send(ctx context.Context, ev model.StatusEvent) error
}

// Service runs ticks. Ticks share no mutable state apart from counters and
// the status queue, so any number may run concurrently.
type Service struct {
	mu sync.RWMutex

	source    Source
	evaluator Classifier
	notifier  Deliverer
	status    StatusChannel
	route     model.RouteSpec

	statusQueueSize int
	statusWorkers   int
	statusQueue     *queue.InMemoryQueue
	statusPool      *worker.Pool

	started bool

	ticks         atomic.Int64
	failures      atomic.Int64
	congested     atomic.Int64
	statusDropped atomic.Int64
	lastOutcome   atomic.Value // string
	lastTickAt    atomic.Int64 // unix nanos

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets the route data source.
func WithSource(src Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithEvaluator overrides the classifier.
func WithEvaluator(c Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.evaluator = c
		}
	}
}

// WithNotifier overrides the primary deliverer.
func WithNotifier(d Deliverer) Option {
	return func(s *Service) {
		if d != nil {
			s.notifier = d
		}
	}
}

// WithStatusChannel sets the secondary status channel. A disabled channel
// means no status events are produced.
func WithStatusChannel(c StatusChannel) Option {
	return func(s *Service) {
		if c != nil {
			s.status = c
		}
	}
}

// WithRoute sets the monitored route.
func WithRoute(route model.RouteSpec) Option {
	return func(s *Service) {
		s.route = route
	}
}

// WithStatusQueueSize sets the status queue capacity.
func WithStatusQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.statusQueueSize = size
		}
	}
}

// WithStatusWorkers sets the number of status workers.
func WithStatusWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.statusWorkers = count
		}
	}
}

// New constructs a Service. A source must be supplied; the evaluator and
// notifier default to their package defaults.
func New(opts ...Option) *Service {
	s := &Service{
		evaluator:       evaluator.New(),
		notifier:        notifier.New(),
		route:           model.RouteSpec{Name: "Highway 5", Origin: "Start", Destination: "End"},
		statusQueueSize: defaultStatusQueueSize,
		statusWorkers:   defaultStatusWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.lastOutcome.Store("")
	return s
}

// Start launches the status dispatcher when a status channel is enabled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.status != nil && s.status.Enabled() {
		s.statusQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.statusQueueSize))
		s.statusPool = worker.NewPool(s.statusWorkers, s.statusQueue, s.status)
		s.statusPool.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "traffic robot service started",
		logger.String("source", s.sourceKind()),
		logger.String("route", s.route.Name),
		logger.Bool("status_channel", s.statusQueue != nil),
		logger.Int("status_workers", s.statusWorkers),
		logger.Int("status_queue_size", s.statusQueueSize),
	)
	return nil
}

// Stop drains pending status events and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if s.statusPool != nil {
		if err := s.statusPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "status queue not drained", logger.Error(err))
			s.statusPool.Stop()
		}
	}

	s.statusQueue = nil
	s.statusPool = nil
	s.started = false
	s.logger.Info(ctx, "traffic robot service stopped")
}

// Tick runs one tick. The returned result always carries the last stage
// reached; on failure err is one of ErrBadRequest, ErrUpstreamFailure or
// ErrDeliveryFailure.
func (s *Service) Tick(ctx context.Context, req model.TickRequest) (model.TickResult, error) {
	const op = "service.tick"
	start := time.Now()
	res := model.TickResult{TickID: logger.TickID(ctx), Stage: model.StageReceived}

	fail := func(outcome string, kind, err error) (model.TickResult, error) {
		res.FailedAt = res.Stage
		res.Stage = model.StageErrored
		s.record(outcome, time.Since(start))
		return res, errkind.Wrap(op, kind, err)
	}

	if err := notifier.ValidateDestination(req.ReturnURL); err != nil {
		s.logger.Warn(ctx, "rejected tick", logger.Error(err))
		return fail(outcomeBadRequest, ErrBadRequest, err)
	}

	if s.source == nil {
		return fail(outcomeUpstreamFailure, ErrUpstreamFailure, errors.New("no route source configured"))
	}
	res.Stage = model.StageFetching
	report, err := s.source.Fetch(ctx, s.route)
	if err != nil {
		s.logger.Error(ctx, "route fetch failed",
			logger.String("source", s.source.Kind()),
			logger.Error(err),
		)
		return fail(outcomeUpstreamFailure, ErrUpstreamFailure, err)
	}

	res.Stage = model.StageClassifying
	res.Classification, res.Message = s.evaluator.Classify(report)
	metrics.RecordClassification(res.Classification.String())
	if res.Classification == model.Congested {
		s.congested.Add(1)
	}

	res.Stage = model.StageDeliveringPrimary
	res.Primary, err = s.notifier.Deliver(ctx, req.ReturnURL, res.Message)
	if err != nil {
		s.logger.Error(ctx, "primary delivery failed",
			logger.Int("status", res.Primary.StatusCode),
			logger.Error(err),
		)
		return fail(outcomeDeliveryFailure, ErrDeliveryFailure, err)
	}

	res.Stage = model.StageDeliveringSecondary
	s.publishStatus(ctx, res)

	res.Stage = model.StageCompleted
	s.record(outcomeCompleted, time.Since(start))
	s.logger.Info(ctx, "tick completed",
		logger.String("classification", res.Classification.String()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// publishStatus hands the status event to the dispatcher. It never fails.
func (s *Service) publishStatus(ctx context.Context, res model.TickResult) { //nolint:gocritic // hugeParam: result is a snapshot
	if s.status == nil || !s.status.Enabled() {
		return
	}

	s.mu.RLock()
	q := s.statusQueue
	s.mu.RUnlock()
	if q == nil {
		s.statusDropped.Add(1)
		s.logger.Warn(ctx, "status dispatcher not running, event dropped")
		return
	}

	// status describes the road, not the tick: a congested route is reported
	// as "error" even though this tick completed.
	status := model.StatusSuccess
	if res.Classification == model.Congested {
		status = model.StatusError
	}
	job := queue.Job{TickID: res.TickID, Event: s.status.Event(status, res.Message)}
	if !q.Enqueue(ctx, job) {
		s.statusDropped.Add(1)
		s.logger.Warn(ctx, "status queue rejected event",
			logger.Int("queue_len", q.Len(ctx)),
			logger.Int("queue_capacity", q.Capacity()),
		)
	}
}

func (s *Service) record(outcome string, elapsed time.Duration) {
	s.ticks.Add(1)
	if outcome != outcomeCompleted {
		s.failures.Add(1)
	}
	s.lastOutcome.Store(outcome)
	s.lastTickAt.Store(time.Now().UnixNano())
	metrics.RecordTick(outcome, float64(elapsed.Milliseconds()))
}

func (s *Service) sourceKind() string {
	if s.source == nil {
		return "none"
	}
	return s.source.Kind()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"source":          s.sourceKind(),
		"route":           s.route.Name,
		"ticks":           s.ticks.Load(),
		"failures":        s.failures.Load(),
		"congestedTicks":  s.congested.Load(),
		"statusDropped":   s.statusDropped.Load(),
		"lastOutcome":     s.lastOutcome.Load(),
		"statusChannel":   s.statusQueue != nil,
		"statusWorkers":   s.statusWorkers,
		"statusQueueSize": s.statusQueueSize,
	}
	if ts := s.lastTickAt.Load(); ts > 0 {
		stats["lastTickAt"] = time.Unix(0, ts).UTC().Format(time.RFC3339)
	}
	if s.statusQueue != nil {
		stats["statusQueueLength"] = s.statusQueue.Len(context.Background())
	}
	return stats
}
