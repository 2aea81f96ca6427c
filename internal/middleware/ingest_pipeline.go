package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SigRoute/internal/domain/models"
	domrepo "SigRoute/internal/domain/repository"
	"SigRoute/internal/service/ratelimit"
)

// Sink is the downstream the pipeline feeds, the router's arrival queue.
type Sink interface {
	Enqueue(ev *models.RawEvent) error
}

// IngestPipeline sits between the event sources and the router. It
// validates events, throttles per category, and buffers when the router
// queue is saturated rather than dropping on first contact.
type IngestPipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  float64
	bufCh   chan *models.RawEvent
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max events per second per category.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = float64(n)
		}
	}
}

// WithBufferSize sets the overflow buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.RawEvent, n)
		}
	}
}

// NewIngestPipeline creates a pipeline in front of the given sink.
func NewIngestPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		sink:    sink,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  50,
		bufCh:   make(chan *models.RawEvent, 1000),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background flushing of buffered events.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				if ev == nil {
					continue
				}
				if err := p.sink.Enqueue(ev); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an event, buffering when the
// router queue is full.
func (p *IngestPipeline) Process(ctx context.Context, ev *models.RawEvent) error {
	if err := validateEvent(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(ev.Category, p.maxRPS, p.maxRPS) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.sink.Enqueue(ev); err != nil {
		select {
		case p.bufCh <- ev:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	return nil
}

func validateEvent(ev *models.RawEvent) error {
	if ev == nil {
		return fmt.Errorf("event is nil")
	}
	if ev.Category == "" {
		return fmt.Errorf("event category is empty")
	}
	return nil
}
