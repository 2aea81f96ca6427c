package repository

import (
	"context"

	"SigRoute/internal/domain/models"
)

// EventStream delivers raw classified events from an external feed.
type EventStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.RawEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SnapshotStore persists full ledger snapshots. Load returns (nil, nil)
// when no snapshot exists yet.
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.LedgerSnapshot) error
	Load(ctx context.Context) (*models.LedgerSnapshot, error)
	Close() error
}

// AuditSink receives append-only copies of completed chains and profit
// records for offline analytics. Best effort: sink errors never block
// the ledger.
type AuditSink interface {
	AppendChain(ctx context.Context, chain *models.AttributionChain) error
	AppendProfit(ctx context.Context, ref string, rec *models.ProfitRecord) error
	Close() error
}

// Notifier forwards chain transitions to an external bus.
type Notifier interface {
	Notify(ctx context.Context, tr models.ChainTransition) error
	Close() error
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordSignal(signalType, outcome string)
	RecordExecution(strategy, outcome string)
	RecordProfit(signalType string, net float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordQueueDepth(n int)
}
