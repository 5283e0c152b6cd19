package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/trafficrobot/internal/adapters/mq/queue"
	"github.com/okian/trafficrobot/internal/adapters/mq/worker"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recordingSender struct {
	mu        sync.Mutex
	events    []model.StatusEvent
	tickIDs   []string
	err       error
	panicMsg  string
	delivered chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{delivered: make(chan struct{}, 64)}
}

func (s *recordingSender) Send(ctx context.Context, ev model.StatusEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.tickIDs = append(s.tickIDs, logger.TickID(ctx))
	s.mu.Unlock()
	s.delivered <- struct{}{}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func waitFor(ch <-chan struct{}, n int) bool {
	timeout := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-timeout:
			return false
		}
	}
	return true
}

func statusJob(id, status string) queue.Job {
	return queue.Job{TickID: id, Event: model.StatusEvent{EventName: "Traffic Update", Message: id, Status: status, Username: "bot"}}
}

func TestPool_DeliversQueuedJobs(t *testing.T) {
	Convey("Given a started pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		sender := newRecordingSender()
		pool := worker.NewPool(2, q, sender)
		pool.Start(ctx)
		defer pool.Stop()

		Convey("When jobs are enqueued", func() {
			So(q.Enqueue(ctx, statusJob("tick-1", model.StatusSuccess)), ShouldBeTrue)
			So(q.Enqueue(ctx, statusJob("tick-2", model.StatusError)), ShouldBeTrue)

			Convey("Then every job should be sent once with its tick id", func() {
				So(waitFor(sender.delivered, 2), ShouldBeTrue)
				sender.mu.Lock()
				defer sender.mu.Unlock()
				So(sender.tickIDs, ShouldHaveLength, 2)
				So(sender.tickIDs, ShouldContain, "tick-1")
				So(sender.tickIDs, ShouldContain, "tick-2")
			})
		})

		Convey("Then the pool should report its size", func() {
			So(pool.Size(), ShouldEqual, 2)
		})
	})

	Convey("Given a pool created with a non-positive size", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, newRecordingSender())

		Convey("Then it should fall back to the default size", func() {
			So(pool.Size(), ShouldEqual, 2)
		})
	})
}

func TestPool_IsolatesFailures(t *testing.T) {
	Convey("Given a sender that always fails", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue()
		sender := newRecordingSender()
		sender.err = errors.New("webhook down")
		pool := worker.NewPool(1, q, sender)
		pool.Start(ctx)
		defer pool.Stop()

		Convey("Then the worker should keep consuming after failures", func() {
			for _, id := range []string{"a", "b", "c"} {
				So(q.Enqueue(ctx, statusJob(id, model.StatusSuccess)), ShouldBeTrue)
			}
			So(waitFor(sender.delivered, 3), ShouldBeTrue)
			So(sender.count(), ShouldEqual, 3)
		})
	})

	Convey("Given a sender that panics", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue()
		sender := newRecordingSender()
		sender.panicMsg = "boom"
		pool := worker.NewPool(1, q, sender)
		pool.Start(ctx)
		defer pool.Stop()

		Convey("Then the panic should be contained and the worker should survive", func() {
			So(q.Enqueue(ctx, statusJob("a", model.StatusError)), ShouldBeTrue)
			So(q.Enqueue(ctx, statusJob("b", model.StatusError)), ShouldBeTrue)
			So(waitFor(sender.delivered, 2), ShouldBeTrue)
		})
	})
}

type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, _ model.StatusEvent) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWorker_SendTimeout(t *testing.T) {
	Convey("Given a worker with a short send timeout and a sender that hangs", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, blockingSender{}, worker.WithSendTimeout(20*time.Millisecond))
		go w.Run(ctx)

		Convey("Then the worker should move on and shut down promptly", func() {
			So(q.Enqueue(ctx, statusJob("slow", model.StatusSuccess)), ShouldBeTrue)
			time.Sleep(60 * time.Millisecond)

			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			So(w.Shutdown(sctx), ShouldBeNil)
		})
	})
}

func TestPool_ShutdownDrains(t *testing.T) {
	Convey("Given a pool with pending jobs", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue()
		sender := newRecordingSender()
		for _, id := range []string{"a", "b", "c"} {
			So(q.Enqueue(ctx, statusJob(id, model.StatusSuccess)), ShouldBeTrue)
		}
		pool := worker.NewPool(1, q, sender)
		pool.Start(ctx)

		Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			err := pool.Shutdown(sctx)

			Convey("Then every pending job should be delivered first", func() {
				So(err, ShouldBeNil)
				So(sender.count(), ShouldEqual, 3)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}
