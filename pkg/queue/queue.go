package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQueueFull is returned when the bounded queue cannot accept more work.
var ErrQueueFull = errors.New("queue: full")

// Handler processes one dequeued message.
type Handler func(ctx context.Context, msg *Message) error

// Message represents a unit of work in the queue.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Timestamp time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithSize sets the queue capacity.
func WithSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.size = n
		}
	}
}

// WithWorkers sets the number of worker goroutines, which caps concurrent
// in-flight handlers.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithDepthHook registers a callback invoked with the queue depth on
// every enqueue/dequeue.
func WithDepthHook(fn func(int)) Option {
	return func(q *Queue) {
		q.depthHook = fn
	}
}

// Queue is a bounded in-memory FIFO with a fixed worker pool. Messages
// are handled in arrival order; beyond the worker bound they wait in the
// channel, preserving fairness.
type Queue struct {
	size      int
	workers   int
	ch        chan *Message
	depthHook func(int)

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New creates a queue with the given options.
func New(opts ...Option) *Queue {
	q := &Queue{size: 1024, workers: 4}
	for _, opt := range opts {
		opt(q)
	}
	q.ch = make(chan *Message, q.size)
	return q
}

// Start launches the worker pool. Handler errors are swallowed; the
// handler owns its own error reporting.
func (q *Queue) Start(ctx context.Context, h Handler) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.quit = make(chan struct{})
	quit := q.quit
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-quit:
					return
				case msg := <-q.ch:
					if msg == nil {
						continue
					}
					if q.depthHook != nil {
						q.depthHook(len(q.ch))
					}
					_ = h(ctx, msg)
				}
			}
		}()
	}
}

// Stop halts the workers and waits for in-flight handlers to finish.
// Handlers keep the Start context, so work already running completes on
// its own deadline instead of being cancelled mid-flight. Remaining
// queued messages are not drained.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	quit := q.quit
	q.mu.Unlock()

	close(quit)
	q.wg.Wait()
}

// Enqueue adds a message without blocking. Returns ErrQueueFull when the
// buffer is exhausted.
func (q *Queue) Enqueue(msg *Message) error {
	select {
	case q.ch <- msg:
		if q.depthHook != nil {
			q.depthHook(len(q.ch))
		}
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth returns the number of queued messages.
func (q *Queue) Depth() int { return len(q.ch) }

// ParsePayload converts a message payload into the expected type,
// tolerating raw JSON and generic map payloads from the wire.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T

	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case []byte:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case map[string]interface{}:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal map payload: %w", err)
		}
		if err := json.Unmarshal(b, &result); err != nil {
			return nil, fmt.Errorf("unmarshal map payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
