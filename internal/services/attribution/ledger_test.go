package attribution

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"SigRoute/internal/domain/models"
	applogger "SigRoute/pkg/logger"
)

type memStore struct {
	mu    sync.Mutex
	snap  *models.LedgerSnapshot
	saves int
	fail  bool
}

func (s *memStore) Save(ctx context.Context, snap *models.LedgerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	s.snap = snap
	s.saves++
	return nil
}

func (s *memStore) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *memStore) Close() error { return nil }

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

func newTestLedger(t *testing.T) (*Ledger, *memStore) {
	t.Helper()
	store := &memStore{}
	return NewLedger(store, nopMetrics{}, testLogger(t)), store
}

func testSignal(typ string, weight float64) *models.Signal {
	return &models.Signal{
		Type:             typ,
		Weight:           weight,
		CascadePotential: weight * weight,
		Timestamp:        time.Now(),
	}
}

func TestTagSignalOpensChain(t *testing.T) {
	l, _ := newTestLedger(t)
	id := l.TagSignal(testSignal("LARGE_SWAP", 6))

	if !strings.HasPrefix(id, "LARGE_SWAP-600-") {
		t.Fatalf("unexpected chain id %s", id)
	}

	chain, ok := l.GetTrace(id)
	if !ok {
		t.Fatalf("chain not found")
	}
	if chain.Status != models.StatusBroadcasted {
		t.Fatalf("new chain must be Broadcasted, got %s", chain.Status)
	}
	if len(chain.Events) != 1 || chain.Events[0].Kind != models.EventBroadcast {
		t.Fatalf("new chain must carry the broadcast event, got %+v", chain.Events)
	}
}

func TestChainIDsUnique(t *testing.T) {
	l, _ := newTestLedger(t)
	sig := testSignal("LARGE_SWAP", 6)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := l.TagSignal(sig)
		if seen[id] {
			t.Fatalf("duplicate chain id %s", id)
		}
		seen[id] = true
	}
}

func TestRecordEventUnknownChainNoop(t *testing.T) {
	l, _ := newTestLedger(t)
	// must not panic or create a chain
	l.RecordEvent("no-such-chain", models.ChainEvent{Kind: models.EventBotResponse})
	if l.ChainCount() != 0 {
		t.Fatalf("unknown-chain event must not create state")
	}
}

func TestRecordEventAdvancesStatus(t *testing.T) {
	l, _ := newTestLedger(t)
	id := l.TagSignal(testSignal("LARGE_SWAP", 6))

	l.RecordEvent(id, models.ChainEvent{Kind: models.EventBotResponse})
	chain, _ := l.GetTrace(id)
	if chain.Status != models.StatusTriggered {
		t.Fatalf("expected Triggered, got %s", chain.Status)
	}

	l.RecordEvent(id, models.ChainEvent{Kind: models.EventExecutionExecuted, ExecutionRef: "ref-1"})
	chain, _ = l.GetTrace(id)
	if chain.Status != models.StatusProfitable {
		t.Fatalf("expected Profitable, got %s", chain.Status)
	}

	// a late BOT_RESPONSE must not regress the status
	l.RecordEvent(id, models.ChainEvent{Kind: models.EventBotResponse})
	chain, _ = l.GetTrace(id)
	if chain.Status != models.StatusProfitable {
		t.Fatalf("status regressed to %s", chain.Status)
	}
	if len(chain.Events) != 4 {
		t.Fatalf("events are append-only, want 4 got %d", len(chain.Events))
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	kinds := []models.ChainEventKind{
		models.EventBotResponse,
		models.EventExecutionExecuted,
		models.EventExecutionFailed,
	}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		l, _ := newTestLedger(t)
		id := l.TagSignal(testSignal("LARGE_SWAP", 6))
		prev := models.StatusBroadcasted.Rank()

		for i := 0; i < 20; i++ {
			switch rng.Intn(5) {
			case 4:
				l.RecordFailure(id)
			case 3:
				_, _ = l.RecordProfit(context.Background(), id, models.ProfitData{
					ExecutionRef: "ref",
					AmountEarned: 0.1,
				})
			default:
				l.RecordEvent(id, models.ChainEvent{Kind: kinds[rng.Intn(len(kinds))]})
			}
			chain, _ := l.GetTrace(id)
			if chain.Status.Rank() < prev {
				t.Fatalf("run %d: status regressed to %s", run, chain.Status)
			}
			prev = chain.Status.Rank()
		}
	}
}

func TestRecordProfitNetAndROI(t *testing.T) {
	l, store := newTestLedger(t)
	id := l.TagSignal(testSignal("LIQUIDATION_THRESHOLD_BREACH", 9.5))

	out, err := l.RecordProfit(context.Background(), id, models.ProfitData{
		ExecutionRef: "ref-1",
		AmountEarned: 0.5,
		GasSpent:     0.05,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantNet := 0.5 - 0.05
	if out.Profit != wantNet {
		t.Fatalf("net profit %v, want %v", out.Profit, wantNet)
	}
	wantROI := wantNet / 9.5 * 100
	if out.SemanticROI != wantROI {
		t.Fatalf("semantic ROI %v, want %v", out.SemanticROI, wantROI)
	}

	chain, _ := l.GetTrace(id)
	if chain.Status != models.StatusCompleted {
		t.Fatalf("profit must complete the chain, got %s", chain.Status)
	}

	// synchronous persistence is the durability point
	if store.saves != 1 {
		t.Fatalf("expected 1 synchronous save, got %d", store.saves)
	}
}

func TestRecordProfitIdempotentByRef(t *testing.T) {
	l, _ := newTestLedger(t)
	id := l.TagSignal(testSignal("LARGE_SWAP", 6))

	first, err := l.RecordProfit(context.Background(), id, models.ProfitData{
		ExecutionRef: "ref-1", AmountEarned: 0.3, GasSpent: 0.1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := l.RecordProfit(context.Background(), id, models.ProfitData{
		ExecutionRef: "ref-1", AmountEarned: 9.9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Profit != first.Profit {
		t.Fatalf("duplicate ref must not change profit: %v vs %v", second.Profit, first.Profit)
	}
}

func TestRecordProfitUnknownChain(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.RecordProfit(context.Background(), "missing", models.ProfitData{ExecutionRef: "r"}); err == nil {
		t.Fatalf("expected error for unknown chain")
	}
}

func TestRecordProfitStoreFailureRetriedByFlush(t *testing.T) {
	l, store := newTestLedger(t)
	id := l.TagSignal(testSignal("LARGE_SWAP", 6))

	store.fail = true
	out, err := l.RecordProfit(context.Background(), id, models.ProfitData{
		ExecutionRef: "ref-1", AmountEarned: 0.2,
	})
	if err != nil {
		t.Fatalf("store failure must not fail the recording: %v", err)
	}
	if out.Profit != 0.2 {
		t.Fatalf("in-memory state stays authoritative, got %v", out.Profit)
	}

	store.fail = false
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if store.snap == nil {
		t.Fatalf("flush must persist the pending snapshot")
	}

	// clean ledger: flush is a no-op
	saves := store.saves
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if store.saves != saves {
		t.Fatalf("clean flush must not write")
	}
}

// gateStore blocks its first Save until released, exposing the window
// between snapshot capture and commit.
type gateStore struct {
	mu      sync.Mutex
	snap    *models.LedgerSnapshot
	entered chan struct{}
	gate    chan struct{}
	gated   bool
}

func newGateStore() *gateStore {
	return &gateStore{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
}

func (s *gateStore) Save(ctx context.Context, snap *models.LedgerSnapshot) error {
	s.mu.Lock()
	first := !s.gated
	s.gated = true
	s.mu.Unlock()
	if first {
		s.entered <- struct{}{}
		<-s.gate
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

func (s *gateStore) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *gateStore) Close() error { return nil }

func TestConcurrentProfitPersistsLatestState(t *testing.T) {
	store := newGateStore()
	l := NewLedger(store, nopMetrics{}, testLogger(t))
	idA := l.TagSignal(testSignal("LARGE_SWAP", 6))
	idB := l.TagSignal(testSignal("LARGE_SWAP", 6))

	errs := make(chan error, 2)
	go func() {
		_, err := l.RecordProfit(context.Background(), idA, models.ProfitData{
			ExecutionRef: "ref-a", AmountEarned: 0.1,
		})
		errs <- err
	}()
	<-store.entered // first save is in flight, holding the commit path

	go func() {
		_, err := l.RecordProfit(context.Background(), idB, models.ProfitData{
			ExecutionRef: "ref-b", AmountEarned: 0.2,
		})
		errs <- err
	}()
	// let the second recording reach its commit before releasing the first
	time.Sleep(50 * time.Millisecond)
	close(store.gate)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("record profit: %v", err)
		}
	}

	snap, _ := store.Load(context.Background())
	refs := make(map[string]bool, len(snap.Profits))
	for _, e := range snap.Profits {
		refs[e.ExecutionRef] = true
	}
	if !refs["ref-a"] || !refs["ref-b"] {
		t.Fatalf("durable snapshot lost a profit record: %v", refs)
	}
}

func TestRecordFailure(t *testing.T) {
	l, _ := newTestLedger(t)
	id := l.TagSignal(testSignal("LARGE_SWAP", 6))

	l.RecordFailure(id)
	chain, _ := l.GetTrace(id)
	if chain.Status != models.StatusFailed {
		t.Fatalf("expected Failed, got %s", chain.Status)
	}

	// terminal: further events change nothing
	l.RecordEvent(id, models.ChainEvent{Kind: models.EventExecutionExecuted})
	chain, _ = l.GetTrace(id)
	if chain.Status != models.StatusFailed {
		t.Fatalf("terminal status must not change, got %s", chain.Status)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l, _ := newTestLedger(t)
	id1 := l.TagSignal(testSignal("LARGE_SWAP", 6))
	id2 := l.TagSignal(testSignal("WHALE_TRANSFER", 4))
	l.RecordEvent(id1, models.ChainEvent{Kind: models.EventBotResponse})
	if _, err := l.RecordProfit(context.Background(), id1, models.ProfitData{
		ExecutionRef: "ref-1", AmountEarned: 0.3, GasSpent: 0.02,
	}); err != nil {
		t.Fatalf("record profit: %v", err)
	}
	l.RecordFailure(id2)

	snap := l.Snapshot()

	restored := NewLedger(&memStore{}, nopMetrics{}, testLogger(t))
	restored.Restore(snap)

	for _, id := range []string{id1, id2} {
		want, _ := l.GetTrace(id)
		got, ok := restored.GetTrace(id)
		if !ok {
			t.Fatalf("chain %s missing after restore", id)
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("chain %s differs after restore:\nwant %+v\ngot  %+v", id, want, got)
		}
	}
	if restored.ChainCount() != 2 {
		t.Fatalf("unexpected chain count %d", restored.ChainCount())
	}
	if !reflect.DeepEqual(l.AvgCascade("LARGE_SWAP", 10), restored.AvgCascade("LARGE_SWAP", 10)) {
		t.Fatalf("history differs after restore")
	}
}

func TestDashboardTotals(t *testing.T) {
	l, _ := newTestLedger(t)

	id1 := l.TagSignal(testSignal("LARGE_SWAP", 6))
	id2 := l.TagSignal(testSignal("LARGE_SWAP", 6))
	id3 := l.TagSignal(testSignal("WHALE_TRANSFER", 4))

	if _, err := l.RecordProfit(context.Background(), id1, models.ProfitData{ExecutionRef: "a", AmountEarned: 0.5, GasSpent: 0.1}); err != nil {
		t.Fatalf("record profit: %v", err)
	}
	if _, err := l.RecordProfit(context.Background(), id2, models.ProfitData{ExecutionRef: "b", AmountEarned: 0.2}); err != nil {
		t.Fatalf("record profit: %v", err)
	}
	l.RecordFailure(id3)

	d := l.Dashboard()
	if d.Summary.TotalSignals != 3 || d.Summary.CompletedSignals != 2 {
		t.Fatalf("unexpected summary %+v", d.Summary)
	}
	wantTotal := 0.4 + 0.2
	if diff := d.Summary.TotalProfit - wantTotal; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("total profit %v, want %v", d.Summary.TotalProfit, wantTotal)
	}
	if len(d.RecentProfits) != 2 {
		t.Fatalf("unexpected recent profits %d", len(d.RecentProfits))
	}

	swap := d.PerType["LARGE_SWAP"]
	if swap.Count != 2 || swap.SuccessRate != 1 {
		t.Fatalf("unexpected LARGE_SWAP analysis %+v", swap)
	}
	whale := d.PerType["WHALE_TRANSFER"]
	if whale.Count != 1 || whale.SuccessRate != 0 {
		t.Fatalf("unexpected WHALE_TRANSFER analysis %+v", whale)
	}
}

func TestAnalyzeSinceFiltersByCreation(t *testing.T) {
	l, _ := newTestLedger(t)
	l.TagSignal(testSignal("LARGE_SWAP", 4))
	time.Sleep(2 * time.Millisecond)
	cut := time.Now()
	time.Sleep(2 * time.Millisecond)
	l.TagSignal(testSignal("LARGE_SWAP", 6))

	all := l.Analyze()
	if all["LARGE_SWAP"].Count != 2 {
		t.Fatalf("full analysis should see both chains, got %+v", all["LARGE_SWAP"])
	}

	recent := l.AnalyzeSince(cut)
	if recent["LARGE_SWAP"].Count != 1 {
		t.Fatalf("windowed analysis should see one chain, got %+v", recent["LARGE_SWAP"])
	}
	if got := recent["LARGE_SWAP"].AvgCascade; got != 36 {
		t.Fatalf("windowed analysis must keep only the newer chain, avg cascade %v", got)
	}
}

func TestAvgCascadeRecentDepth(t *testing.T) {
	l, _ := newTestLedger(t)

	// two old chains with cascade 16, then one recent with cascade 36
	l.TagSignal(testSignal("LARGE_SWAP", 4))
	l.TagSignal(testSignal("LARGE_SWAP", 4))
	l.TagSignal(testSignal("LARGE_SWAP", 6))

	if got := l.AvgCascade("LARGE_SWAP", 1); got != 36 {
		t.Fatalf("depth 1 should see only the newest chain, got %v", got)
	}
	want := (16.0 + 16 + 36) / 3
	if got := l.AvgCascade("LARGE_SWAP", 10); got != want {
		t.Fatalf("avg cascade %v, want %v", got, want)
	}
	if got := l.AvgCascade("UNSEEN", 10); got != 0 {
		t.Fatalf("unseen type should average 0, got %v", got)
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	l, _ := newTestLedger(t)
	sub := l.Subscribe()

	id := l.TagSignal(testSignal("LARGE_SWAP", 6))
	l.RecordEvent(id, models.ChainEvent{Kind: models.EventBotResponse})

	tr := <-sub
	if tr.To != models.StatusBroadcasted || tr.ChainID != id {
		t.Fatalf("unexpected first transition %+v", tr)
	}
	tr = <-sub
	if tr.From != models.StatusBroadcasted || tr.To != models.StatusTriggered {
		t.Fatalf("unexpected second transition %+v", tr)
	}
}
