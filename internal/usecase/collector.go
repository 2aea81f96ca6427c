package usecase

import (
	"context"

	"SigRoute/internal/domain/models"
	drepo "SigRoute/internal/domain/repository"
)

// EventCollector drains an EventStream into the ingest pipeline,
// reconnecting on stream errors.
type EventCollector struct {
	stream  drepo.EventStream
	sink    EventSink
	metrics drepo.Metrics
}

func NewEventCollector(stream drepo.EventStream, sink EventSink, metrics drepo.Metrics) *EventCollector {
	return &EventCollector{stream: stream, sink: sink, metrics: metrics}
}

// IsConnected reports whether the underlying stream is connected.
func (c *EventCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *EventCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *EventCollector) consume(ctx context.Context, evCh <-chan *models.RawEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				if rerr := c.stream.Reconnect(ctx); rerr == nil {
					evCh, errCh = c.stream.Read(ctx)
				}
			}
		case ev := <-evCh:
			if ev == nil {
				continue
			}
			_ = c.sink.Process(ctx, ev)
		}
	}
}

// Shutdown closes the stream.
func (c *EventCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
