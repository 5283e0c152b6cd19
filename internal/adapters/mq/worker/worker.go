// Package worker delivers queued status notifications in the background.
// Every failure is logged and counted here and never reported back to the
// tick that produced the notification.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/trafficrobot/internal/adapters/mq/queue"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/logger"
	"github.com/okian/trafficrobot/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	defaultSendTimeout    = 8 * time.Second
	workerShutdownTimeout = 5 * time.Second
)

// Sender delivers one status event.
type Sender interface {
	Send(ctx context.Context, ev model.StatusEvent) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes status jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker drains a Queue into a Sender.
type InMemoryWorker struct {
	queue       Queue
	sender      Sender
	name        string
	sendTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, sender Sender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		sender:      sender,
		name:        "status-worker",
		sendTimeout: defaultSendTimeout,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process sends one job. Panics and errors stop here.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	ctx = logger.WithTickID(ctx, j.TickID)
	ctx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			w.logger.Error(ctx, "status delivery panicked", logger.Any("panic", r))
		}
	}()

	if err := w.sender.Send(ctx, j.Event); err != nil {
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "status delivery failed",
			logger.String("status", j.Event.Status),
			logger.Duration("queued_for", time.Since(j.EnqueuedAt)),
			logger.Error(err),
		)
		return
	}
	w.logger.Debug(ctx, "status delivered", logger.String("status", j.Event.Status))
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, sender Sender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("status-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("status-worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, sender, wopts...)
	}

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop in time", logger.String("worker", w.name))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			metrics.UpdateWorkerActiveCount(0)
			return fmt.Errorf("pool shutdown timed out: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
