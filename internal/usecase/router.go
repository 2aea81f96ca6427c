package usecase

import (
	"context"
	"fmt"
	"time"

	"SigRoute/internal/domain/models"
	domrepo "SigRoute/internal/domain/repository"
	applogger "SigRoute/pkg/logger"
	"SigRoute/pkg/queue"
)

// AttributionWriter is the ledger surface the router mutates through.
// All chain mutation funnels through these entry points.
type AttributionWriter interface {
	TagSignal(sig *models.Signal) string
	RecordEvent(chainID string, ev models.ChainEvent)
	RecordProfit(ctx context.Context, chainID string, data models.ProfitData) (*models.ProfitOutcome, error)
	RecordFailure(chainID string)
}

// SignalRouter is the routing loop: score, select, execute, attribute.
// Signals queue in arrival order; a bounded worker pool caps concurrent
// in-flight executions. No failure inside a signal's pipeline may abort
// the loop.
type SignalRouter struct {
	scorer     *Scorer
	selector   *OpportunitySelector
	dispatcher *ExecutionDispatcher
	ledger     AttributionWriter
	q          *queue.Queue
	gasCost    float64
	metrics    domrepo.Metrics
	logger     *applogger.Logger
}

func NewSignalRouter(
	scorer *Scorer,
	selector *OpportunitySelector,
	dispatcher *ExecutionDispatcher,
	ledger AttributionWriter,
	queueSize, maxInFlight int,
	gasCostPerUnit float64,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *SignalRouter {
	r := &SignalRouter{
		scorer:     scorer,
		selector:   selector,
		dispatcher: dispatcher,
		ledger:     ledger,
		gasCost:    gasCostPerUnit,
		metrics:    metrics,
		logger:     logger,
	}
	r.q = queue.New(
		queue.WithSize(queueSize),
		queue.WithWorkers(maxInFlight),
		queue.WithDepthHook(metrics.RecordQueueDepth),
	)
	return r
}

// Start launches the worker pool. Returns once workers are running.
func (r *SignalRouter) Start(ctx context.Context) {
	r.q.Start(ctx, func(ctx context.Context, msg *queue.Message) error {
		ev, err := queue.ParsePayload[models.RawEvent](msg.Payload)
		if err != nil {
			r.metrics.RecordError("router_payload")
			return err
		}
		r.process(ctx, ev)
		return nil
	})
}

// Stop halts the workers. In-flight pipelines run to completion; the
// queue is not drained.
func (r *SignalRouter) Stop() { r.q.Stop() }

// Enqueue adds a raw event to the arrival queue. Returns an error when
// the queue is full (backpressure to the ingest layer).
func (r *SignalRouter) Enqueue(ev *models.RawEvent) error {
	if ev == nil || ev.Category == "" {
		return fmt.Errorf("invalid raw event")
	}
	return r.q.Enqueue(&queue.Message{
		Type:      ev.Category,
		Payload:   ev,
		Timestamp: time.Now(),
	})
}

// Depth reports the arrival queue depth.
func (r *SignalRouter) Depth() int { return r.q.Depth() }

// process runs one signal's full pipeline: score, rank, dispatch with
// fall-through, attribute.
func (r *SignalRouter) process(ctx context.Context, ev *models.RawEvent) {
	start := time.Now()

	sig := r.scorer.SignalFrom(ev)
	if sig == nil {
		// Unknown category: noise, never routed.
		r.metrics.RecordSignal(ev.Category, "noise")
		return
	}

	opps := r.selector.Rank(sig)
	if len(opps) == 0 {
		// Configuration gap or nothing above the profit floor. Not an
		// error; no attribution chain is opened.
		r.metrics.RecordSignal(sig.Type, "skipped")
		r.logger.Debug("no opportunity",
			applogger.String("type", sig.Type))
		return
	}

	chainID := r.ledger.TagSignal(sig)
	r.metrics.RecordSignal(sig.Type, "routed")

	for _, opp := range opps {
		res := r.dispatcher.Execute(ctx, opp)
		strategy, _ := opp.PrimaryStrategy()

		if !res.Success {
			r.ledger.RecordEvent(chainID, models.ChainEvent{
				Kind:      models.EventExecutionFailed,
				Timestamp: time.Now(),
				Venue:     opp.Venue,
				Strategy:  strategy,
				Error:     res.Error,
			})
			// Fall through to the next-best candidate.
			continue
		}

		r.ledger.RecordEvent(chainID, models.ChainEvent{
			Kind:         models.EventExecutionExecuted,
			Timestamp:    time.Now(),
			Venue:        opp.Venue,
			Strategy:     strategy,
			ExecutionRef: res.ExecutionRef,
		})

		gas := float64(res.ResourceCost) * r.gasCost
		outcome, err := r.ledger.RecordProfit(ctx, chainID, models.ProfitData{
			ExecutionRef: res.ExecutionRef,
			AmountEarned: res.Profit,
			GasSpent:     gas,
		})
		if err != nil {
			r.metrics.RecordError("record_profit")
			r.logger.Error("record profit failed",
				applogger.String("chain_id", chainID),
				applogger.Error(err))
		} else {
			r.metrics.RecordProfit(sig.Type, res.Profit-gas)
			r.logger.Info("signal completed",
				applogger.String("type", sig.Type),
				applogger.String("venue", string(opp.Venue)),
				applogger.Any("semantic_roi", outcome.SemanticROI))
		}
		r.metrics.RecordLatency("signal_pipeline", time.Since(start).Seconds())
		return
	}

	// Every ranked candidate failed.
	r.ledger.RecordFailure(chainID)
	r.metrics.RecordSignal(sig.Type, "failed")
	r.metrics.RecordLatency("signal_pipeline", time.Since(start).Seconds())
}
