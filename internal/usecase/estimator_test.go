package usecase

import (
	"math"
	"testing"

	"SigRoute/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimateFormula(t *testing.T) {
	e := NewProfitEstimator(
		map[models.VenueID]float64{"ethereum": 1.0, "arbitrum": 0.7},
		map[models.StrategyID]float64{"liquidation": 0.08, "flashloan": 0.03},
		0.5, 0.01,
	)
	sig := &models.Signal{Type: "LIQUIDATION_THRESHOLD_BREACH", Weight: 9.5, CascadePotential: 90.25}
	route := &models.Route{Strategies: []models.StrategyID{"liquidation", "flashloan"}}

	// base 0.95, max strategy rate 0.08, cascade multiplier 1.9025
	want := 0.95 * 1.0 * 0.08 * 1.9025
	if got := e.Estimate(sig, "ethereum", route); !almostEqual(got, want) {
		t.Fatalf("ethereum estimate %v, want %v", got, want)
	}
	want = 0.95 * 0.7 * 0.08 * 1.9025
	if got := e.Estimate(sig, "arbitrum", route); !almostEqual(got, want) {
		t.Fatalf("arbitrum estimate %v, want %v", got, want)
	}
}

func TestEstimateDefaults(t *testing.T) {
	e := NewProfitEstimator(nil, nil, 0.5, 0.01)
	sig := &models.Signal{Weight: 10, CascadePotential: 100}
	route := &models.Route{Strategies: []models.StrategyID{"anything"}}

	// 1.0 × 0.5 × 0.01 × 2.0
	want := 0.01
	if got := e.Estimate(sig, "unknown-venue", route); !almostEqual(got, want) {
		t.Fatalf("estimate %v, want %v", got, want)
	}
}

func TestEstimateMonotonicInWeight(t *testing.T) {
	e := NewProfitEstimator(nil, nil, 0.5, 0.01)
	route := &models.Route{Strategies: []models.StrategyID{"s"}}

	prev := -1.0
	for w := 1.0; w <= 10; w++ {
		sig := &models.Signal{Weight: w, CascadePotential: w * w}
		got := e.Estimate(sig, "v", route)
		if got <= prev {
			t.Fatalf("estimate not increasing at weight %v: %v <= %v", w, got, prev)
		}
		prev = got
	}
}
