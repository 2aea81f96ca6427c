package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SigRoute/internal/domain/models"
	domrepo "SigRoute/internal/domain/repository"
	domsvc "SigRoute/internal/domain/service"
	applogger "SigRoute/pkg/logger"
)

// ExecutionDispatcher invokes the selected strategy against its execution
// venue. Every failure mode, including panics and timeouts, is normalized
// into an ExecutionResult: a single strategy failure must not abort the
// surrounding routing cycle. Retry policy belongs to the caller.
type ExecutionDispatcher struct {
	venues  map[models.StrategyID]domsvc.ExecutionVenue
	timeout time.Duration
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewExecutionDispatcher(
	venues map[models.StrategyID]domsvc.ExecutionVenue,
	timeout time.Duration,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *ExecutionDispatcher {
	return &ExecutionDispatcher{venues: venues, timeout: timeout, metrics: metrics, logger: logger}
}

// Execute dispatches the opportunity to the venue keyed by its primary
// strategy and normalizes the outcome.
func (d *ExecutionDispatcher) Execute(ctx context.Context, opp *models.Opportunity) *models.ExecutionResult {
	strategy, ok := opp.PrimaryStrategy()
	if !ok {
		d.metrics.RecordError("dispatch_no_strategy")
		return failed(models.ErrKindExecutionFailure)
	}

	venue, ok := d.venues[strategy]
	if !ok {
		d.metrics.RecordError("dispatch_no_executor")
		d.logger.Warn("no executor registered",
			applogger.String("strategy", string(strategy)))
		return failed(models.ErrKindExecutionFailure)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	res, err := d.call(callCtx, venue, opp)
	d.metrics.RecordLatency("execution", time.Since(start).Seconds())

	if err != nil {
		kind := models.ErrKindExecutionFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = models.ErrKindTimeout
		}
		d.metrics.RecordExecution(string(strategy), "failure")
		d.logger.Warn("execution failed",
			applogger.String("strategy", string(strategy)),
			applogger.String("venue", string(opp.Venue)),
			applogger.Error(err))
		return failed(kind)
	}

	if res == nil {
		d.metrics.RecordExecution(string(strategy), "failure")
		return failed(models.ErrKindExecutionFailure)
	}
	if res.Success {
		d.metrics.RecordExecution(string(strategy), "success")
	} else {
		if res.Error == models.ErrKindNone {
			res.Error = models.ErrKindExecutionFailure
		}
		d.metrics.RecordExecution(string(strategy), "failure")
	}
	return res
}

// call runs the venue in its own goroutine so a non-cooperative executor
// cannot hold the pipeline past the deadline.
func (d *ExecutionDispatcher) call(ctx context.Context, venue domsvc.ExecutionVenue, opp *models.Opportunity) (res *models.ExecutionResult, err error) {
	type outcome struct {
		res *models.ExecutionResult
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{nil, fmt.Errorf("venue panic: %v", r)}
			}
		}()
		r, e := venue.Execute(ctx, opp)
		ch <- outcome{r, e}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-ch:
		return o.res, o.err
	}
}

func failed(kind models.ErrorKind) *models.ExecutionResult {
	return &models.ExecutionResult{Success: false, Profit: 0, Error: kind}
}
