// Package worker runs pools of goroutines that drain a queue in batches
// and hand every item to a Handler.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultBatchSize      = 10
	defaultPollInterval   = time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Source is the consumer side of a queue.
type Source[T any] interface {
	DequeueBatch(max int) []T
	Ready() <-chan struct{}
}

// Handler processes a single item. A returned error drops the item.
type Handler[T any] interface {
	Handle(ctx context.Context, item T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, item T) error

// Handle calls f(ctx, item).
func (f HandlerFunc[T]) Handle(ctx context.Context, item T) error { return f(ctx, item) }

// InMemoryWorker drains a Source and processes items sequentially.
type InMemoryWorker[T any] struct {
	source  Source[T]
	handler Handler[T]
	cfg     config
	name    string
	stats   *counters

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

type counters struct {
	handled atomic.Int64
	failed  atomic.Int64
	panics  atomic.Int64
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](source Source[T], handler Handler[T], opts ...Option) *InMemoryWorker[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newWorker(source, handler, cfg, cfg.name, &counters{})
}

func newWorker[T any](source Source[T], handler Handler[T], cfg config, name string, stats *counters) *InMemoryWorker[T] {
	lg := cfg.logger
	if lg == nil {
		lg = logger.Get()
	}
	return &InMemoryWorker[T]{
		source:   source,
		handler:  handler,
		cfg:      cfg,
		name:     name,
		stats:    stats,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   lg.Named(name),
	}
}

// Run starts the worker loop. The shutdown signal is checked once per
// iteration; a batch already dequeued is always finished.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.cfg.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		default:
		}

		batch := w.source.DequeueBatch(w.cfg.batchSize)
		if len(batch) == 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.pollInterval)
			select {
			case <-ctx.Done():
				return
			case <-w.shutdown:
				return
			case <-w.source.Ready():
			case <-timer.C:
			}
			continue
		}

		batchCtx := context.WithoutCancel(ctx)
		for _, item := range batch {
			if err := w.process(batchCtx, item); err != nil {
				w.stats.failed.Add(1)
				w.logger.Error(ctx, "item dropped", logger.Error(err))
			}
			w.stats.handled.Add(1)
		}
	}
}

// process runs the handler, converting a panic into an error.
func (w *InMemoryWorker[T]) process(ctx context.Context, item T) (err error) { //nolint:gocritic // items are passed by value
	defer func() {
		if r := recover(); r != nil {
			w.stats.panics.Add(1)
			metrics.RecordWorkerPanic(w.cfg.name)
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			w.logger.Error(ctx, "handler panicked", logger.Any("panic", r), logger.String("stack", string(buf)))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return w.handler.Handle(ctx, item)
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker[T]) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers sharing one Source and Handler.
type Pool[T any] struct {
	workers []*InMemoryWorker[T]
	cfg     config
	stats   *counters
	started atomic.Bool

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers (NumCPU when < 1).
func NewPool[T any](workerCount int, source Source[T], handler Handler[T], opts ...Option) *Pool[T] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	lg := cfg.logger
	if lg == nil {
		lg = logger.Get()
	}

	p := &Pool[T]{
		workers: make([]*InMemoryWorker[T], workerCount),
		cfg:     cfg,
		stats:   &counters{},
		logger:  lg.Named(cfg.name + "-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = newWorker(source, handler, cfg, cfg.name+"-"+strconv.Itoa(i), p.stats)
	}

	metrics.UpdateWorkerCount(cfg.name, workerCount)
	return p
}

// Start launches all workers. Calling Start twice is a no-op.
func (p *Pool[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started",
		logger.Int("workers", len(p.workers)),
		logger.Int("batch_size", p.cfg.batchSize),
		logger.Duration("poll_interval", p.cfg.pollInterval),
	)
}

// Shutdown stops every worker and waits until they exit or ctx expires.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, fmt.Errorf("worker %d: %w", i, shutdownCtx.Err()))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Handled returns how many items the pool has processed, failed or not.
func (p *Pool[T]) Handled() int64 { return p.stats.handled.Load() }

// Failed returns how many items were dropped by an error or panic.
func (p *Pool[T]) Failed() int64 { return p.stats.failed.Load() }

// Panics returns how many handler panics were recovered.
func (p *Pool[T]) Panics() int64 { return p.stats.panics.Load() }
