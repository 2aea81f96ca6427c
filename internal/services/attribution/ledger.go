package attribution

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"SigRoute/internal/domain/models"
	domrepo "SigRoute/internal/domain/repository"
	applogger "SigRoute/pkg/logger"
)

// Ledger is the append-only attribution record store. It exclusively owns
// every AttributionChain: callers hold only transient references and all
// mutation goes through TagSignal, RecordEvent, RecordProfit and
// RecordFailure. Safe for concurrent use from multiple in-flight
// pipelines.
type Ledger struct {
	mu      sync.RWMutex
	chains  map[string]*models.AttributionChain
	order   []string // chain ids in creation order
	profits map[string]*models.ProfitRecord
	gen     uint64 // bumped on every profit mutation

	// saveMu serializes snapshot commits. savedGen is the generation of
	// the last snapshot known durable; an older snapshot must never
	// overwrite a newer committed one.
	saveMu   sync.Mutex
	savedGen uint64

	store   domrepo.SnapshotStore
	sink    domrepo.AuditSink // optional
	metrics domrepo.Metrics
	logger  *applogger.Logger

	subMu sync.Mutex
	subs  []chan models.ChainTransition
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAuditSink attaches an optional append-only analytics sink.
func WithAuditSink(sink domrepo.AuditSink) Option {
	return func(l *Ledger) { l.sink = sink }
}

// NewLedger creates a ledger backed by the given snapshot store.
func NewLedger(store domrepo.SnapshotStore, metrics domrepo.Metrics, logger *applogger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		chains:  make(map[string]*models.AttributionChain),
		profits: make(map[string]*models.ProfitRecord),
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TagSignal opens a chain for the signal in state Broadcasted and returns
// its id. The id is derived from the signal plus a random nonce, avoiding
// collisions without a central counter.
func (l *Ledger) TagSignal(sig *models.Signal) string {
	id := chainID(sig)
	now := time.Now()
	chain := &models.AttributionChain{
		SignalID:  id,
		Origin:    *sig,
		Status:    models.StatusBroadcasted,
		CreatedAt: now,
		Events: []models.ChainEvent{{
			Kind:      models.EventBroadcast,
			Timestamp: now,
		}},
	}

	l.mu.Lock()
	l.chains[id] = chain
	l.order = append(l.order, id)
	l.mu.Unlock()

	l.notify(models.ChainTransition{
		ChainID:    id,
		SignalType: sig.Type,
		From:       "",
		To:         models.StatusBroadcasted,
		At:         now,
	})
	return id
}

func chainID(sig *models.Signal) string {
	nonce := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%d-%d-%s", sig.Type, int(sig.Weight*100), sig.Timestamp.UnixNano(), nonce)
}

// RecordEvent appends an event to a chain's history. Events for an
// unknown chain are silently dropped: telemetry may arrive for chains
// that were never opened, and that is not a correctness path. Status
// advances per the event kind, never regresses.
func (l *Ledger) RecordEvent(chainID string, ev models.ChainEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	l.mu.Lock()
	chain, ok := l.chains[chainID]
	if !ok {
		l.mu.Unlock()
		l.metrics.RecordError("event_unknown_chain")
		return
	}
	chain.Events = append(chain.Events, ev)

	var target models.ChainStatus
	switch ev.Kind {
	case models.EventBotResponse:
		target = models.StatusTriggered
	case models.EventExecutionExecuted:
		target = models.StatusProfitable
	}
	tr, advanced := advance(chain, target)
	l.mu.Unlock()

	if advanced {
		l.notify(tr)
	}
}

// RecordProfit computes net profit, adds it to the chain's cumulative
// profit, moves the chain to Completed and synchronously persists the
// ledger snapshot (the durability point). Recording the same executionRef
// twice is a no-op returning the current outcome, so profit is never
// double-counted.
func (l *Ledger) RecordProfit(ctx context.Context, chainID string, data models.ProfitData) (*models.ProfitOutcome, error) {
	l.mu.Lock()
	chain, ok := l.chains[chainID]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("unknown chain %s", chainID)
	}

	if _, dup := l.profits[data.ExecutionRef]; dup {
		out := outcomeOf(chain)
		l.mu.Unlock()
		l.metrics.RecordError("profit_duplicate_ref")
		return out, nil
	}

	net := data.AmountEarned - data.GasSpent
	now := time.Now()
	l.profits[data.ExecutionRef] = &models.ProfitRecord{
		ChainID:      chainID,
		AmountEarned: data.AmountEarned,
		GasSpent:     data.GasSpent,
		NetProfit:    net,
		Timestamp:    now,
	}
	chain.Profit += net
	roi := semanticROI(net, chain.Origin.Weight)
	chain.SemanticROI = &roi

	tr, advanced := advance(chain, models.StatusCompleted)
	out := outcomeOf(chain)
	l.gen++
	gen := l.gen
	snap := l.snapshotLocked()
	rec := *l.profits[data.ExecutionRef]
	chainCopy := copyChain(chain)
	l.mu.Unlock()

	if advanced {
		l.notify(tr)
	}

	// Durability point. A failed write leaves in-memory state
	// authoritative; the periodic flush retries it.
	if err := l.persist(ctx, snap, gen); err != nil {
		l.logger.Error("ledger persist failed", applogger.Error(err))
	}

	if l.sink != nil {
		if err := l.sink.AppendChain(ctx, chainCopy); err != nil {
			l.metrics.RecordError("audit_chain")
		}
		if err := l.sink.AppendProfit(ctx, data.ExecutionRef, &rec); err != nil {
			l.metrics.RecordError("audit_profit")
		}
	}

	return out, nil
}

// RecordFailure marks a chain Failed. Terminal states are left untouched.
func (l *Ledger) RecordFailure(chainID string) {
	l.mu.Lock()
	chain, ok := l.chains[chainID]
	if !ok {
		l.mu.Unlock()
		return
	}
	tr, advanced := advance(chain, models.StatusFailed)
	l.mu.Unlock()

	if advanced {
		l.notify(tr)
	}
}

// advance moves a chain to target if the transition is monotonic. The
// caller holds the write lock.
func advance(chain *models.AttributionChain, target models.ChainStatus) (models.ChainTransition, bool) {
	if target == "" || chain.Status.Terminal() || target.Rank() <= chain.Status.Rank() {
		return models.ChainTransition{}, false
	}
	tr := models.ChainTransition{
		ChainID:    chain.SignalID,
		SignalType: chain.Origin.Type,
		From:       chain.Status,
		To:         target,
		At:         time.Now(),
	}
	chain.Status = target
	return tr, true
}

func semanticROI(net, weight float64) float64 {
	if weight == 0 {
		return 0
	}
	// ROI is normalized by the origin's raw semantic weight, not by
	// expected profit. Figures are not directly comparable across types;
	// intentional, do not change the basis.
	return net / weight * 100
}

func outcomeOf(chain *models.AttributionChain) *models.ProfitOutcome {
	out := &models.ProfitOutcome{Profit: chain.Profit}
	if chain.SemanticROI != nil {
		out.SemanticROI = *chain.SemanticROI
	}
	return out
}

// GetTrace returns a read-only copy of a chain's full history.
func (l *Ledger) GetTrace(chainID string) (*models.AttributionChain, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	chain, ok := l.chains[chainID]
	if !ok {
		return nil, false
	}
	return copyChain(chain), true
}

// ChainCount returns the number of open and closed chains.
func (l *Ledger) ChainCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chains)
}

// Analyze aggregates chains per signal type: count, total and average
// profit, success rate (Completed or Profitable), average cascade size.
func (l *Ledger) Analyze() map[string]models.TypeAnalysis {
	return l.AnalyzeSince(time.Time{})
}

// AnalyzeSince restricts the aggregation to chains created at or after
// the given time. The zero time includes everything.
func (l *Ledger) AnalyzeSince(since time.Time) map[string]models.TypeAnalysis {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := make(map[string]models.TypeAnalysis)
	for _, chain := range l.chains {
		if !since.IsZero() && chain.CreatedAt.Before(since) {
			continue
		}
		typ := chain.Origin.Type
		a := res[typ]
		a.SignalType = typ
		a.Count++
		a.TotalProfit += chain.Profit
		a.AvgCascade += chain.Origin.CascadePotential
		if chain.Status == models.StatusCompleted || chain.Status == models.StatusProfitable {
			a.SuccessRate++
		}
		res[typ] = a
	}
	for typ, a := range res {
		a.AvgProfit = a.TotalProfit / float64(a.Count)
		a.SuccessRate = a.SuccessRate / float64(a.Count)
		a.AvgCascade = a.AvgCascade / float64(a.Count)
		res[typ] = a
	}
	return res
}

// AvgCascade returns the mean cascade potential over the most recent
// chains of a signal type, feeding the reinforcement loop.
func (l *Ledger) AvgCascade(signalType string, depth int) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sum float64
	var n int
	for i := len(l.order) - 1; i >= 0 && n < depth; i-- {
		chain, ok := l.chains[l.order[i]]
		if !ok || chain.Origin.Type != signalType {
			continue
		}
		sum += chain.Origin.CascadePotential
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Dashboard builds the external reporting projection.
func (l *Ledger) Dashboard() *models.Dashboard {
	perType := l.Analyze()

	l.mu.RLock()
	total := len(l.chains)
	completed := 0
	var totalProfit float64
	for _, chain := range l.chains {
		totalProfit += chain.Profit
		if chain.Status == models.StatusCompleted {
			completed++
		}
	}

	recent := make([]*models.ProfitRecord, 0, len(l.profits))
	for _, rec := range l.profits {
		recent = append(recent, rec)
	}
	l.mu.RUnlock()

	// newest first, capped at 10
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}

	summary := models.DashboardSummary{
		TotalSignals:     total,
		CompletedSignals: completed,
		TotalProfit:      totalProfit,
	}
	if total > 0 {
		summary.SuccessRate = float64(completed) / float64(total)
		summary.AvgProfitPerSignal = totalProfit / float64(total)
	}
	return &models.Dashboard{
		Summary:       summary,
		PerType:       perType,
		RecentProfits: recent,
	}
}

// Subscribe returns a channel of chain transitions. Slow subscribers drop
// notifications rather than block the ledger.
func (l *Ledger) Subscribe() <-chan models.ChainTransition {
	ch := make(chan models.ChainTransition, 64)
	l.subMu.Lock()
	l.subs = append(l.subs, ch)
	l.subMu.Unlock()
	return ch
}

func (l *Ledger) notify(tr models.ChainTransition) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- tr:
		default:
			l.metrics.RecordError("notify_drop")
		}
	}
}

// Snapshot captures the full ledger state in the persisted format.
func (l *Ledger) Snapshot() *models.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() *models.LedgerSnapshot {
	snap := &models.LedgerSnapshot{
		Chains:    make([]models.ChainEntry, 0, len(l.order)),
		Profits:   make([]models.ProfitEntry, 0, len(l.profits)),
		Timestamp: time.Now(),
	}
	for _, id := range l.order {
		chain, ok := l.chains[id]
		if !ok {
			continue
		}
		snap.Chains = append(snap.Chains, models.ChainEntry{ID: id, Chain: copyChain(chain)})
	}
	for ref, rec := range l.profits {
		r := *rec
		snap.Profits = append(snap.Profits, models.ProfitEntry{ExecutionRef: ref, Record: &r})
	}
	return snap
}

// Restore loads a snapshot, reconstructing an identical in-memory ledger.
func (l *Ledger) Restore(snap *models.LedgerSnapshot) {
	if snap == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.chains = make(map[string]*models.AttributionChain, len(snap.Chains))
	l.order = make([]string, 0, len(snap.Chains))
	for _, e := range snap.Chains {
		l.chains[e.ID] = copyChain(e.Chain)
		l.order = append(l.order, e.ID)
	}
	l.profits = make(map[string]*models.ProfitRecord, len(snap.Profits))
	for _, e := range snap.Profits {
		r := *e.Record
		l.profits[e.ExecutionRef] = &r
	}
}

// Flush persists the current snapshot if it is newer than the last one
// committed. Called periodically so a transient store outage self-heals.
func (l *Ledger) Flush(ctx context.Context) error {
	l.mu.RLock()
	gen := l.gen
	snap := l.snapshotLocked()
	l.mu.RUnlock()

	return l.persist(ctx, snap, gen)
}

// persist commits a snapshot taken at generation gen. Commits are
// serialized; a snapshot older than the last committed one is dropped,
// its state is already contained in the newer snapshot.
func (l *Ledger) persist(ctx context.Context, snap *models.LedgerSnapshot, gen uint64) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	if gen <= l.savedGen {
		return nil
	}
	if err := l.store.Save(ctx, snap); err != nil {
		l.metrics.RecordError("persist")
		return err
	}
	l.savedGen = gen
	return nil
}

func copyChain(c *models.AttributionChain) *models.AttributionChain {
	out := *c
	out.Events = append([]models.ChainEvent(nil), c.Events...)
	if c.SemanticROI != nil {
		roi := *c.SemanticROI
		out.SemanticROI = &roi
	}
	return &out
}
