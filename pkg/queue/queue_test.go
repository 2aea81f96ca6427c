package queue

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueFull(t *testing.T) {
	q := New(WithSize(2))
	if err := q.Enqueue(&Message{ID: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Enqueue(&Message{ID: "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Enqueue(&Message{ID: "3"}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Depth() != 2 {
		t.Fatalf("unexpected depth %d", q.Depth())
	}
}

func TestWorkersProcessAll(t *testing.T) {
	q := New(WithSize(100), WithWorkers(4))

	var handled int64
	var wg sync.WaitGroup
	wg.Add(50)
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		atomic.AddInt64(&handled, 1)
		wg.Done()
		return nil
	})
	defer q.Stop()

	for i := 0; i < 50; i++ {
		if err := q.Enqueue(&Message{ID: "m"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out, handled %d of 50", atomic.LoadInt64(&handled))
	}
}

func TestWorkerBoundCapsInFlight(t *testing.T) {
	q := New(WithSize(100), WithWorkers(2))

	var inFlight, peak int64
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(6)
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt64(&inFlight, -1)
		wg.Done()
		return nil
	})
	defer q.Stop()

	for i := 0; i < 6; i++ {
		if err := q.Enqueue(&Message{}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Fatalf("in-flight exceeded worker bound: %d", p)
	}
}

func TestStopWaitsForInFlight(t *testing.T) {
	q := New(WithSize(10), WithWorkers(1))

	var finished int64
	started := make(chan struct{})
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt64(&finished, 1)
		return nil
	})
	if err := q.Enqueue(&Message{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-started
	q.Stop()
	if atomic.LoadInt64(&finished) != 1 {
		t.Fatalf("stop must wait for the in-flight handler")
	}
}

func TestStopDoesNotCancelInFlightHandler(t *testing.T) {
	q := New(WithSize(4), WithWorkers(1))

	var cancelled, completed int64
	entered := make(chan struct{})
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		close(entered)
		select {
		case <-ctx.Done():
			atomic.AddInt64(&cancelled, 1)
		case <-time.After(100 * time.Millisecond):
			atomic.AddInt64(&completed, 1)
		}
		return nil
	})
	if err := q.Enqueue(&Message{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-entered
	q.Stop()

	if atomic.LoadInt64(&cancelled) != 0 {
		t.Fatalf("in-flight handler context was cancelled during drain")
	}
	if atomic.LoadInt64(&completed) != 1 {
		t.Fatalf("in-flight handler did not run to completion")
	}
}

func TestParsePayload(t *testing.T) {
	type event struct {
		Category string `json:"category"`
		T        int64  `json:"t"`
	}

	direct := &event{Category: "LARGE_SWAP", T: 1}
	got, err := ParsePayload[event](direct)
	if err != nil || got != direct {
		t.Fatalf("pointer payload: %v %v", got, err)
	}

	got, err = ParsePayload[event](json.RawMessage(`{"category":"LARGE_SWAP","t":2}`))
	if err != nil || got.T != 2 {
		t.Fatalf("raw json payload: %v %v", got, err)
	}

	got, err = ParsePayload[event](map[string]interface{}{"category": "LARGE_SWAP", "t": 3})
	if err != nil || got.T != 3 {
		t.Fatalf("map payload: %v %v", got, err)
	}

	if _, err := ParsePayload[event](42); err == nil {
		t.Fatalf("expected error for unsupported payload type")
	}
}
