package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/okian/fraudscope/internal/adapters/mq/queue"
	worker "github.com/okian/fraudscope/internal/adapters/mq/worker"
	model "github.com/okian/fraudscope/internal/domain/model"
	logging "github.com/okian/fraudscope/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// recordingHandler remembers every transaction id it sees.
type recordingHandler struct {
	mu      sync.Mutex
	seen    map[string]int
	failIDs map[string]bool
	panicID string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(map[string]int), failIDs: make(map[string]bool)}
}

func (h *recordingHandler) Handle(_ context.Context, ev model.TransactionEvent) error { //nolint:gocritic // value semantics
	if ev.ID == h.panicID {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[ev.ID]++
	if h.failIDs[ev.ID] {
		return errors.New("store unavailable")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func event(id string) model.TransactionEvent {
	return model.TransactionEvent{ID: id, UserID: "u1", Amount: 10}
}

func TestInMemoryWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a new InMemoryWorker", t, func() {
		q := queue.NewInMemoryQueue[model.TransactionEvent]()
		h := newRecordingHandler()
		w := worker.NewInMemoryWorker[model.TransactionEvent](q, h,
			worker.WithName("scoring"),
			worker.WithBatchSize(2),
			worker.WithPollInterval(10*time.Millisecond),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go w.Run(ctx)

		convey.Convey("When items are enqueued after the worker went idle", func() {
			time.Sleep(20 * time.Millisecond)
			for _, id := range []string{"a", "b", "c", "d", "e"} {
				q.Enqueue(ctx, event(id))
			}

			convey.Convey("Then every item is handled once", func() {
				convey.So(waitFor(func() bool { return h.count() == 5 }), convey.ShouldBeTrue)
				convey.So(q.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When one handler call panics", func() {
			h.panicID = "bad"
			q.Enqueue(ctx, event("bad"))
			q.Enqueue(ctx, event("good"))

			convey.Convey("Then the worker survives and keeps processing", func() {
				convey.So(waitFor(func() bool { return h.count() == 1 }), convey.ShouldBeTrue)
				h.mu.Lock()
				convey.So(h.seen["good"], convey.ShouldEqual, 1)
				h.mu.Unlock()
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			convey.Convey("Then it stops gracefully", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				q.Enqueue(ctx, event("late"))
				time.Sleep(30 * time.Millisecond)
				convey.So(h.count(), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		q := queue.NewInMemoryQueue[model.TransactionEvent]()
		w := worker.NewInMemoryWorker[model.TransactionEvent](q, newRecordingHandler(),
			worker.WithPollInterval(time.Hour))
		ctx, cancel := context.WithCancel(context.Background())

		stopped := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(stopped)
		}()
		cancel()

		convey.Convey("Then the idle worker wakes up and exits", func() {
			select {
			case <-stopped:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool of four workers", t, func() {
		q := queue.NewInMemoryQueue[model.TransactionEvent]()
		h := newRecordingHandler()
		h.failIDs["f1"] = true
		pool := worker.NewPool[model.TransactionEvent](4, q, h,
			worker.WithName("scoring"),
			worker.WithBatchSize(3),
			worker.WithPollInterval(5*time.Millisecond),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When many items arrive concurrently", func() {
			const perProducer = 50
			var wg sync.WaitGroup
			for p := 0; p < 4; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < perProducer; i++ {
						q.Enqueue(ctx, event(fmt.Sprintf("TXN_%d_%d", p, i)))
					}
				}(p)
			}
			wg.Wait()
			q.Enqueue(ctx, event("f1"))

			convey.Convey("Then each item is handled exactly once and failures are counted", func() {
				convey.So(waitFor(func() bool { return pool.Handled() == 4*perProducer+1 }), convey.ShouldBeTrue)
				convey.So(h.count(), convey.ShouldEqual, 4*perProducer+1)
				h.mu.Lock()
				for _, c := range h.seen {
					convey.So(c, convey.ShouldEqual, 1)
				}
				h.mu.Unlock()
				convey.So(pool.Failed(), convey.ShouldEqual, 1)
				convey.So(pool.Panics(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down", func() {
			convey.Convey("Then all workers stop", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pool that was never started", t, func() {
		q := queue.NewInMemoryQueue[int]()
		var calls atomic.Int64
		pool := worker.NewPool[int](0, q, worker.HandlerFunc[int](func(context.Context, int) error {
			calls.Add(1)
			return nil
		}))

		convey.Convey("Then stopping returns immediately", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(calls.Load(), convey.ShouldEqual, 0)
		})
	})
}
