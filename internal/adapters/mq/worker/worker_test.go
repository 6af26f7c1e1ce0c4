package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/followup/internal/adapters/mq/queue"
	worker "github.com/okian/followup/internal/adapters/mq/worker"
	model "github.com/okian/followup/internal/domain/model"
	logging "github.com/okian/followup/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockAppender struct {
	mu     sync.Mutex
	events []model.Event
	fail   map[string]error
}

func newMockAppender() *mockAppender {
	return &mockAppender{fail: make(map[string]error)}
}

func (m *mockAppender) Append(_ context.Context, events ...model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		if err, ok := m.fail[e.UserID]; ok {
			return err
		}
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *mockAppender) stored() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...)
}

func viewed(user string) model.Event {
	return model.Event{
		UserID:      user,
		Kind:        model.KindContentViewed,
		ReferenceID: "l1",
		OccurredAt:  time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatal(err)
	}

	convey.Convey("Given a worker reading from a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		app := newMockAppender()
		app.fail["broken"] = errors.New("disk full")
		w := worker.NewInMemoryWorker(q, app, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When events are enqueued", func() {
			convey.So(q.Enqueue(ctx, viewed("u1")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, viewed("broken")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, viewed("u2")), convey.ShouldBeNil)

			convey.Convey("Then stored events should be normalized and failures skipped", func() {
				convey.So(waitFor(func() bool { return len(app.stored()) == 2 }), convey.ShouldBeTrue)
				got := app.stored()
				convey.So(got[0].EventDate, convey.ShouldEqual, "2024-01-10")
				convey.So(got[1].UserID, convey.ShouldEqual, "u2")
			})
		})

		convey.Convey("When the worker is shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it should stop promptly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

// relayQueue hands out a channel that never closes and reports whether the
// context given to Dequeue has been released.
type relayQueue struct {
	mu       sync.Mutex
	released bool
}

func (r *relayQueue) Dequeue(ctx context.Context) <-chan queue.Item {
	out := make(chan queue.Item)
	go func() {
		<-ctx.Done()
		r.mu.Lock()
		r.released = true
		r.mu.Unlock()
	}()
	return out
}

func (r *relayQueue) isReleased() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func TestInMemoryWorker_ReleasesDequeue(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatal(err)
	}

	convey.Convey("Given a worker run under a context that is never cancelled", t, func() {
		q := &relayQueue{}
		w := worker.NewInMemoryWorker(q, newMockAppender())
		go w.Run(context.WithoutCancel(context.Background()))

		convey.Convey("When the worker is shut down", func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)

			convey.Convey("Then the dequeue goroutine should be released", func() {
				convey.So(waitFor(q.isReleased), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPool(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatal(err)
	}

	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		app := newMockAppender()
		p := worker.NewPool(3, q, app)
		ctx := context.Background()
		p.Start(ctx)

		convey.So(p.Size(), convey.ShouldEqual, 3)

		convey.Convey("When events are enqueued and the pool shuts down", func() {
			for i := 0; i < 50; i++ {
				convey.So(q.Enqueue(ctx, viewed("u1")), convey.ShouldBeNil)
			}
			sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then every pending event should be stored first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(app.stored(), convey.ShouldHaveLength, 50)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(p.Active(), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), newMockAppender())

		convey.Convey("Then the pool should size itself from the CPU count", func() {
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
