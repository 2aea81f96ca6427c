package models

import "time"

// Priority classifies how quickly a scored event should be acted on.
type Priority string

const (
	PriorityUrgent  Priority = "URGENT"
	PriorityMonitor Priority = "MONITOR"
)

// RawEvent is an incoming classified event before scoring.
// Timestamp is unix seconds (ms accepted on ingest and normalized).
type RawEvent struct {
	Category  string `json:"category"`
	OriginID  string `json:"origin_id"`
	Timestamp int64  `json:"t"`
}

// Signal is a scored event carrying a semantic weight and cascade
// potential. Immutable once created by the Scorer.
type Signal struct {
	Type             string    `json:"type"`
	Weight           float64   `json:"weight"` // [0,10]
	CascadePotential float64   `json:"cascade_potential"`
	Timestamp        time.Time `json:"timestamp"`
	OriginID         string    `json:"origin_id"`
}

// CascadeProfile is the Scorer's cascade projection for an event category.
type CascadeProfile struct {
	SemanticWeight   float64  `json:"semantic_weight"`
	CascadePotential float64  `json:"cascade_potential"`
	Priority         Priority `json:"priority"`
}
