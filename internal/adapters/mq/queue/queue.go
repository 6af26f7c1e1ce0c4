// Package queue buffers incoming learning events between the HTTP edge and
// the workers that append them to the event store.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Item is an event waiting to be stored.
type Item struct {
	Event      model.Event
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event without blocking. It returns ErrFull under
	// backpressure and ErrClosed after Close.
	Enqueue(ctx context.Context, e model.Event) error
	// Dequeue returns a channel of pending items. It is closed once the
	// queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Item
	Len(ctx context.Context) int
	Capacity() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.items <- Item{Event: e, EnqueuedAt: q.now()}:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case it, ok := <-q.items:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				metrics.RecordQueueProcessingLatency(float64(q.now().Sub(it.EnqueuedAt).Milliseconds()))
				q.publishSize()
				select {
				case out <- it:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.publishSize()
}

// Capacity returns the maximum number of pending events.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting events. Pending items remain available to Dequeue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishSize() int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}
