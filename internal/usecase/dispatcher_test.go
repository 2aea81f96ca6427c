package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SigRoute/internal/domain/models"
	domsvc "SigRoute/internal/domain/service"
	applogger "SigRoute/pkg/logger"
)

type stubVenue struct {
	fn func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error)
}

func (v *stubVenue) Execute(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
	return v.fn(ctx, opp)
}

type nopMetrics struct{}

func (nopMetrics) RecordSignal(string, string)    {}
func (nopMetrics) RecordExecution(string, string) {}
func (nopMetrics) RecordProfit(string, float64)   {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordLatency(string, float64)  {}
func (nopMetrics) RecordQueueDepth(int)           {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testOpportunity(strategies ...models.StrategyID) *models.Opportunity {
	return &models.Opportunity{
		Venue:          "ethereum",
		Signal:         models.Signal{Type: "LARGE_SWAP", Weight: 6, CascadePotential: 36},
		ExpectedProfit: 0.1,
		Strategies:     strategies,
	}
}

func newTestDispatcher(t *testing.T, venues map[models.StrategyID]domsvc.ExecutionVenue, timeout time.Duration) *ExecutionDispatcher {
	t.Helper()
	return NewExecutionDispatcher(venues, timeout, nopMetrics{}, testLogger(t))
}

func TestDispatchSuccess(t *testing.T) {
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"arb": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			return &models.ExecutionResult{Success: true, Profit: 0.09, ExecutionRef: "ref-1", ResourceCost: 21000}, nil
		}},
	}
	d := newTestDispatcher(t, venues, time.Second)

	res := d.Execute(context.Background(), testOpportunity("arb"))
	if !res.Success || res.ExecutionRef != "ref-1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDispatchErrorBecomesData(t *testing.T) {
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"arb": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			return nil, errors.New("rpc: connection refused")
		}},
	}
	d := newTestDispatcher(t, venues, time.Second)

	res := d.Execute(context.Background(), testOpportunity("arb"))
	if res == nil {
		t.Fatalf("failure must still produce a result")
	}
	if res.Success || res.Profit != 0 || res.Error != models.ErrKindExecutionFailure {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDispatchTimeout(t *testing.T) {
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"slow": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			time.Sleep(200 * time.Millisecond)
			return &models.ExecutionResult{Success: true}, nil
		}},
	}
	d := newTestDispatcher(t, venues, 20*time.Millisecond)

	res := d.Execute(context.Background(), testOpportunity("slow"))
	if res.Success || res.Error != models.ErrKindTimeout {
		t.Fatalf("expected timeout result, got %+v", res)
	}
}

func TestDispatchPanicRecovered(t *testing.T) {
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"boom": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			panic("executor bug")
		}},
	}
	d := newTestDispatcher(t, venues, time.Second)

	res := d.Execute(context.Background(), testOpportunity("boom"))
	if res.Success || res.Error != models.ErrKindExecutionFailure {
		t.Fatalf("panic must normalize to failure, got %+v", res)
	}
}

func TestDispatchNoExecutor(t *testing.T) {
	d := newTestDispatcher(t, nil, time.Second)

	res := d.Execute(context.Background(), testOpportunity("missing"))
	if res.Success || res.Error != models.ErrKindExecutionFailure {
		t.Fatalf("unexpected result %+v", res)
	}

	res = d.Execute(context.Background(), testOpportunity())
	if res.Success || res.Error != models.ErrKindExecutionFailure {
		t.Fatalf("empty strategy list should fail, got %+v", res)
	}
}
