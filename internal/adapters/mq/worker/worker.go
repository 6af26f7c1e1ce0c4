// Package worker drains the ingestion queue into the event store.
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

	"github.com/okian/followup/internal/adapters/mq/queue"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/pkg/logger"
	"github.com/okian/followup/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	appendTimeout           = 5 * time.Second
)

// ErrShutdownTimeout is returned when workers do not drain before the deadline.
var ErrShutdownTimeout = errors.New("worker shutdown timed out")

// Appender persists events.
type Appender interface {
	Append(ctx context.Context, events ...model.Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Worker processes queued events until its source closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker appends queued events to the store.
type InMemoryWorker struct {
	queue    Queue
	appender Appender
	name     string
	active   *atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, appender Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		appender: appender,
		name:     "worker",
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when the queue is closed and
// drained, ctx is cancelled, or the worker is shut down.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// the dequeue relay must not outlive the loop, even under a parent
	// context that is never cancelled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, it); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without waiting for the queue to drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) process(ctx context.Context, it queue.Item) error { //nolint:gocritic // hugeParam: Item must be passed by value for channel semantics
	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	actx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()

	e := it.Event.Normalize()
	if err := w.appender.Append(actx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		return fmt.Errorf("append event %s for user %s: %w", e.Kind, e.UserID, err)
	}
	metrics.RecordEventsIngested(1)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  *atomic.Int64
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count scales with the CPU count.
func NewPool(workerCount int, q Queue, appender Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		active:  new(atomic.Int64),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, appender, append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.active = p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Active returns the number of workers currently appending an event.
func (p *Pool) Active() int {
	n := int(p.active.Load())
	metrics.UpdateWorkerActiveCount(n)
	metrics.UpdateWorkerIdleCount(len(p.workers) - n)
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it. Workers still
// running when ctx expires are stopped and ErrShutdownTimeout is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			w.stop()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
	p.logger.Info(ctx, "worker pool stopped")
	return nil
}
