package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SigRoute/internal/domain/models"
	domsvc "SigRoute/internal/domain/service"
	"SigRoute/pkg/config"
)

type fakeLedger struct {
	mu       sync.Mutex
	tagged   []string
	events   map[string][]models.ChainEvent
	profits  map[string][]models.ProfitData
	failures []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		events:  make(map[string][]models.ChainEvent),
		profits: make(map[string][]models.ProfitData),
	}
}

func (f *fakeLedger) TagSignal(sig *models.Signal) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := sig.Type
	f.tagged = append(f.tagged, id)
	return id
}

func (f *fakeLedger) RecordEvent(chainID string, ev models.ChainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[chainID] = append(f.events[chainID], ev)
}

func (f *fakeLedger) RecordProfit(ctx context.Context, chainID string, data models.ProfitData) (*models.ProfitOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profits[chainID] = append(f.profits[chainID], data)
	return &models.ProfitOutcome{Profit: data.AmountEarned - data.GasSpent}, nil
}

func (f *fakeLedger) RecordFailure(chainID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, chainID)
}

func newTestRouter(t *testing.T, venues map[models.StrategyID]domsvc.ExecutionVenue, ledger *fakeLedger) *SignalRouter {
	t.Helper()
	table, err := NewRoutingTable(map[string]config.RouteConfig{
		"LIQUIDATION_THRESHOLD_BREACH": {
			Chains:     []string{"ethereum", "arbitrum"},
			Strategies: []string{"liquidation"},
			MinProfit:  0.01,
			Urgency:    "Immediate",
		},
	})
	if err != nil {
		t.Fatalf("routing table: %v", err)
	}
	estimator := NewProfitEstimator(
		map[models.VenueID]float64{"ethereum": 1.0, "arbitrum": 0.7},
		map[models.StrategyID]float64{"liquidation": 0.08},
		0.5, 0.01,
	)
	selector := NewOpportunitySelector(table, estimator)
	dispatcher := NewExecutionDispatcher(venues, time.Second, nopMetrics{}, testLogger(t))
	return NewSignalRouter(
		NewScorer(nil), selector, dispatcher, ledger,
		16, 2, 1e-9, nopMetrics{}, testLogger(t),
	)
}

func TestProcessNoiseOpensNoChain(t *testing.T) {
	ledger := newFakeLedger()
	r := newTestRouter(t, nil, ledger)

	r.process(context.Background(), &models.RawEvent{Category: "someRandomEvent"})
	if len(ledger.tagged) != 0 {
		t.Fatalf("noise must not open a chain")
	}
}

func TestProcessUnroutedSkipped(t *testing.T) {
	ledger := newFakeLedger()
	r := newTestRouter(t, nil, ledger)

	// scored (weight 6) but no route configured for it
	r.process(context.Background(), &models.RawEvent{Category: "LARGE_SWAP"})
	if len(ledger.tagged) != 0 || len(ledger.failures) != 0 {
		t.Fatalf("unrouted signal must not touch the ledger")
	}
}

func TestProcessSuccessAttributesProfit(t *testing.T) {
	ledger := newFakeLedger()
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"liquidation": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			return &models.ExecutionResult{Success: true, Profit: 0.12, ExecutionRef: "ref-9", ResourceCost: 21000}, nil
		}},
	}
	r := newTestRouter(t, venues, ledger)

	r.process(context.Background(), &models.RawEvent{Category: "LIQUIDATION_THRESHOLD_BREACH"})

	if len(ledger.tagged) != 1 {
		t.Fatalf("expected one chain, got %d", len(ledger.tagged))
	}
	id := ledger.tagged[0]

	evs := ledger.events[id]
	if len(evs) != 1 || evs[0].Kind != models.EventExecutionExecuted {
		t.Fatalf("unexpected events %+v", evs)
	}
	if evs[0].Venue != "ethereum" || evs[0].ExecutionRef != "ref-9" {
		t.Fatalf("unexpected execution event %+v", evs[0])
	}

	profits := ledger.profits[id]
	if len(profits) != 1 {
		t.Fatalf("expected one profit record, got %d", len(profits))
	}
	if profits[0].AmountEarned != 0.12 || profits[0].GasSpent != 21000*1e-9 {
		t.Fatalf("unexpected profit data %+v", profits[0])
	}
}

func TestProcessFallsThroughToNextVenue(t *testing.T) {
	ledger := newFakeLedger()
	calls := 0
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"liquidation": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			calls++
			if opp.Venue == "ethereum" {
				return nil, errors.New("reverted")
			}
			return &models.ExecutionResult{Success: true, Profit: 0.05, ExecutionRef: "ref-arb"}, nil
		}},
	}
	r := newTestRouter(t, venues, ledger)

	r.process(context.Background(), &models.RawEvent{Category: "LIQUIDATION_THRESHOLD_BREACH"})

	if calls != 2 {
		t.Fatalf("expected fall-through to second venue, got %d calls", calls)
	}
	id := ledger.tagged[0]
	evs := ledger.events[id]
	if len(evs) != 2 {
		t.Fatalf("expected failed then executed events, got %+v", evs)
	}
	if evs[0].Kind != models.EventExecutionFailed || evs[0].Venue != "ethereum" {
		t.Fatalf("unexpected first event %+v", evs[0])
	}
	if evs[1].Kind != models.EventExecutionExecuted || evs[1].Venue != "arbitrum" {
		t.Fatalf("unexpected second event %+v", evs[1])
	}
	if len(ledger.failures) != 0 {
		t.Fatalf("recovered signal must not be marked failed")
	}
}

func TestProcessAllVenuesFail(t *testing.T) {
	ledger := newFakeLedger()
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"liquidation": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			return nil, errors.New("reverted")
		}},
	}
	r := newTestRouter(t, venues, ledger)

	r.process(context.Background(), &models.RawEvent{Category: "LIQUIDATION_THRESHOLD_BREACH"})

	id := ledger.tagged[0]
	if len(ledger.events[id]) != 2 {
		t.Fatalf("expected a failed event per venue, got %d", len(ledger.events[id]))
	}
	if len(ledger.failures) != 1 || ledger.failures[0] != id {
		t.Fatalf("chain must be marked failed, got %v", ledger.failures)
	}
	if len(ledger.profits[id]) != 0 {
		t.Fatalf("failed chain must record no profit")
	}
}

func TestEnqueueValidation(t *testing.T) {
	r := newTestRouter(t, nil, newFakeLedger())
	if err := r.Enqueue(nil); err == nil {
		t.Fatalf("nil event must be rejected")
	}
	if err := r.Enqueue(&models.RawEvent{}); err == nil {
		t.Fatalf("event without category must be rejected")
	}
	if err := r.Enqueue(&models.RawEvent{Category: "LARGE_SWAP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Depth() != 1 {
		t.Fatalf("unexpected depth %d", r.Depth())
	}
}

func TestRouterEndToEnd(t *testing.T) {
	ledger := newFakeLedger()
	done := make(chan struct{})
	venues := map[models.StrategyID]domsvc.ExecutionVenue{
		"liquidation": &stubVenue{fn: func(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
			defer close(done)
			return &models.ExecutionResult{Success: true, Profit: 0.1, ExecutionRef: "ref-e2e"}, nil
		}},
	}
	r := newTestRouter(t, venues, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	if err := r.Enqueue(&models.RawEvent{Category: "LIQUIDATION_THRESHOLD_BREACH", OriginID: "0xdead"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("signal was never dispatched")
	}

	// give the worker a beat to finish attribution after the dispatch
	deadline := time.Now().Add(time.Second)
	for {
		ledger.mu.Lock()
		n := len(ledger.profits)
		ledger.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("profit never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
