package models

import "time"

// ChainStatus is the lifecycle state of an attribution chain. Transitions
// are monotonic: Broadcasted -> {Triggered|Failed} -> Profitable -> Completed.
type ChainStatus string

const (
	StatusBroadcasted ChainStatus = "Broadcasted"
	StatusTriggered   ChainStatus = "Triggered"
	StatusProfitable  ChainStatus = "Profitable"
	StatusCompleted   ChainStatus = "Completed"
	StatusFailed      ChainStatus = "Failed"
)

// Rank orders statuses for the monotonicity guard. Completed and Failed
// are terminal.
func (s ChainStatus) Rank() int {
	switch s {
	case StatusBroadcasted:
		return 0
	case StatusTriggered:
		return 1
	case StatusProfitable:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	}
	return -1
}

// Terminal reports whether no further transition is permitted.
func (s ChainStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ChainEventKind is the closed set of event kinds appended to a chain.
type ChainEventKind string

const (
	EventBroadcast         ChainEventKind = "BROADCAST"
	EventBotResponse       ChainEventKind = "BOT_RESPONSE"
	EventExecutionExecuted ChainEventKind = "EXECUTION_EXECUTED"
	EventExecutionFailed   ChainEventKind = "EXECUTION_FAILED"
)

// ChainEvent is a typed record appended to a chain's history.
type ChainEvent struct {
	Kind         ChainEventKind `json:"kind"`
	Timestamp    time.Time      `json:"t"`
	Venue        VenueID        `json:"venue,omitempty"`
	Strategy     StrategyID     `json:"strategy,omitempty"`
	ExecutionRef string         `json:"execution_ref,omitempty"`
	Error        ErrorKind      `json:"error,omitempty"`
}

// AttributionChain links a signal to its downstream events and realized
// profit. Append-only: events are never removed, status never regresses.
// Owned exclusively by the ledger; callers mutate it only through the
// ledger's entry points.
type AttributionChain struct {
	SignalID    string       `json:"signal_id"`
	Origin      Signal       `json:"origin"`
	Events      []ChainEvent `json:"events"`
	Profit      float64      `json:"profit"`
	Status      ChainStatus  `json:"status"`
	SemanticROI *float64     `json:"semantic_roi,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ProfitData is the input to profit recording.
type ProfitData struct {
	ExecutionRef string  `json:"execution_ref"`
	AmountEarned float64 `json:"amount_earned"`
	GasSpent     float64 `json:"gas_spent"`
}

// ProfitRecord is the persisted realization of a ProfitData against a chain.
type ProfitRecord struct {
	ChainID      string    `json:"chain_id"`
	AmountEarned float64   `json:"amount_earned"`
	GasSpent     float64   `json:"gas_spent"`
	NetProfit    float64   `json:"net_profit"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProfitOutcome is returned by profit recording: the chain's cumulative
// profit and its semantic ROI (net profit normalized by origin weight).
type ProfitOutcome struct {
	Profit      float64 `json:"profit"`
	SemanticROI float64 `json:"semantic_roi"`
}

// ChainTransition is the typed notification emitted on every status change.
type ChainTransition struct {
	ChainID    string      `json:"chain_id"`
	SignalType string      `json:"signal_type"`
	From       ChainStatus `json:"from"`
	To         ChainStatus `json:"to"`
	At         time.Time   `json:"at"`
}
