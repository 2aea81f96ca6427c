package usecase

import (
	"time"

	"SigRoute/internal/domain/models"
)

// DefaultWeights is the built-in event category weight table, used when
// the config does not override it. Unknown categories score 0 and are
// treated as noise.
var DefaultWeights = map[string]float64{
	"parameterChange":             10,
	"LIQUIDATION_THRESHOLD_BREACH": 9.5,
	"ORACLE_PRICE_DEVIATION":      8.5,
	"GOVERNANCE_PROPOSAL":         7,
	"LARGE_SWAP":                  6,
	"POOL_IMBALANCE":              5.5,
	"WHALE_TRANSFER":              4,
	"MEMPOOL_SPIKE":               3,
}

// Scorer assigns semantic weights and cascade potentials to raw events.
// Pure lookup, no side effects; the weight table is read-only after
// construction.
type Scorer struct {
	weights map[string]float64
}

// NewScorer builds a Scorer from the configured weight table. An empty
// table falls back to DefaultWeights.
func NewScorer(weights map[string]float64) *Scorer {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Scorer{weights: w}
}

// Score returns the semantic weight for an event category, 0 for unknown.
func (s *Scorer) Score(category string) float64 {
	return s.weights[category]
}

// CalculateCascade projects the cascade profile for an event category.
// Cascade potential grows quadratically with weight: small increases in
// semantic weight produce disproportionately larger market reactions.
func (s *Scorer) CalculateCascade(category string) models.CascadeProfile {
	w := s.Score(category)
	p := models.PriorityMonitor
	if w >= 7 {
		p = models.PriorityUrgent
	}
	return models.CascadeProfile{
		SemanticWeight:   w,
		CascadePotential: w * w,
		Priority:         p,
	}
}

// SignalFrom scores a raw event into a Signal. Returns nil for noise
// (weight 0), which is never routed.
func (s *Scorer) SignalFrom(ev *models.RawEvent) *models.Signal {
	prof := s.CalculateCascade(ev.Category)
	if prof.SemanticWeight == 0 {
		return nil
	}
	ts := time.Unix(ev.Timestamp, 0)
	if ev.Timestamp == 0 {
		ts = time.Now()
	}
	return &models.Signal{
		Type:             ev.Category,
		Weight:           prof.SemanticWeight,
		CascadePotential: prof.CascadePotential,
		Timestamp:        ts,
		OriginID:         ev.OriginID,
	}
}
