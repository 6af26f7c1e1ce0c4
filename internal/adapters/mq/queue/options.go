package queue

import "time"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending events.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithClock overrides the time source used to stamp enqueued items.
func WithClock(now func() time.Time) Option {
	return func(q *InMemoryQueue) {
		if now != nil {
			q.now = now
		}
	}
}
