package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerSnapshot is the persisted ledger format: chains and profits as
// [key, record] tuples plus the snapshot timestamp. Reloading a snapshot
// reconstructs an identical in-memory ledger.
type LedgerSnapshot struct {
	Chains    []ChainEntry  `json:"chains"`
	Profits   []ProfitEntry `json:"profits"`
	Timestamp time.Time     `json:"timestamp"`
}

// ChainEntry serializes as a [chainId, chain] tuple.
type ChainEntry struct {
	ID    string
	Chain *AttributionChain
}

func (e ChainEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.ID, e.Chain})
}

func (e *ChainEntry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("chain entry: want [id, chain] tuple, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.ID); err != nil {
		return fmt.Errorf("chain entry id: %w", err)
	}
	e.Chain = &AttributionChain{}
	if err := json.Unmarshal(raw[1], e.Chain); err != nil {
		return fmt.Errorf("chain entry body: %w", err)
	}
	return nil
}

// ProfitEntry serializes as an [executionRef, record] tuple.
type ProfitEntry struct {
	ExecutionRef string
	Record       *ProfitRecord
}

func (e ProfitEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.ExecutionRef, e.Record})
}

func (e *ProfitEntry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("profit entry: want [ref, record] tuple, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.ExecutionRef); err != nil {
		return fmt.Errorf("profit entry ref: %w", err)
	}
	e.Record = &ProfitRecord{}
	if err := json.Unmarshal(raw[1], e.Record); err != nil {
		return fmt.Errorf("profit entry body: %w", err)
	}
	return nil
}
