package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"SigRoute/internal/domain/models"
	"SigRoute/internal/domain/repository"
)

// ClickHouseAuditSink appends completed chains and profit records to
// ClickHouse for offline analytics. Rows are append-only, matching the
// ledger's history semantics.
type ClickHouseAuditSink struct {
	db       *sql.DB
	database string
}

// NewClickHouseAuditSink creates a ClickHouse audit sink.
func NewClickHouseAuditSink(db *sql.DB, database string) repository.AuditSink {
	return &ClickHouseAuditSink{db: db, database: database}
}

// AuditSchema returns the idempotent DDL for the audit tables.
func AuditSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.chains (
			chain_id String,
			signal_type String,
			weight Float64,
			cascade Float64,
			status String,
			profit Float64,
			semantic_roi Float64,
			events String,
			created_at DateTime
		) ENGINE=MergeTree ORDER BY (signal_type, created_at)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.profits (
			execution_ref String,
			chain_id String,
			amount_earned Float64,
			gas_spent Float64,
			net_profit Float64,
			ts DateTime
		) ENGINE=MergeTree ORDER BY (chain_id, ts)`, database),
	}
}

func (s *ClickHouseAuditSink) AppendChain(ctx context.Context, chain *models.AttributionChain) error {
	events, err := json.Marshal(chain.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	roi := 0.0
	if chain.SemanticROI != nil {
		roi = *chain.SemanticROI
	}
	q := fmt.Sprintf("INSERT INTO %s.chains (chain_id, signal_type, weight, cascade, status, profit, semantic_roi, events, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.database)
	_, err = s.db.ExecContext(ctx, q,
		chain.SignalID,
		chain.Origin.Type,
		chain.Origin.Weight,
		chain.Origin.CascadePotential,
		string(chain.Status),
		chain.Profit,
		roi,
		string(events),
		chain.CreatedAt,
	)
	return err
}

func (s *ClickHouseAuditSink) AppendProfit(ctx context.Context, ref string, rec *models.ProfitRecord) error {
	q := fmt.Sprintf("INSERT INTO %s.profits (execution_ref, chain_id, amount_earned, gas_spent, net_profit, ts) VALUES (?, ?, ?, ?, ?, ?)", s.database)
	_, err := s.db.ExecContext(ctx, q,
		ref,
		rec.ChainID,
		rec.AmountEarned,
		rec.GasSpent,
		rec.NetProfit,
		rec.Timestamp,
	)
	return err
}

func (s *ClickHouseAuditSink) Close() error {
	return nil // connection pool managed by pkg
}
