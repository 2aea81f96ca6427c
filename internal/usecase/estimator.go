package usecase

import (
	"SigRoute/internal/domain/models"
)

// ProfitEstimator computes expected profit for a (signal, venue, route)
// combination. All modifiers are configuration: they represent venue and
// strategy economics and are tunable without code changes. Missing
// configuration degrades to conservative defaults, never fails.
type ProfitEstimator struct {
	chainModifiers  map[models.VenueID]float64
	strategyRates   map[models.StrategyID]float64
	defaultModifier float64
	defaultRate     float64
}

// NewProfitEstimator builds an estimator from per-venue chain modifiers
// and per-strategy profit rates.
func NewProfitEstimator(
	chainModifiers map[models.VenueID]float64,
	strategyRates map[models.StrategyID]float64,
	defaultModifier, defaultRate float64,
) *ProfitEstimator {
	cm := make(map[models.VenueID]float64, len(chainModifiers))
	for k, v := range chainModifiers {
		cm[k] = v
	}
	sr := make(map[models.StrategyID]float64, len(strategyRates))
	for k, v := range strategyRates {
		sr[k] = v
	}
	return &ProfitEstimator{
		chainModifiers:  cm,
		strategyRates:   sr,
		defaultModifier: defaultModifier,
		defaultRate:     defaultRate,
	}
}

// Estimate returns the expected profit:
//
//	baseProfit × chainModifier × strategyModifier × cascadeMultiplier
//
// where baseProfit = weight/10, strategyModifier is the max configured
// rate over the route's strategies, and cascadeMultiplier =
// 1 + cascadePotential/100.
func (e *ProfitEstimator) Estimate(sig *models.Signal, venue models.VenueID, route *models.Route) float64 {
	baseProfit := sig.Weight / 10

	chainModifier, ok := e.chainModifiers[venue]
	if !ok {
		chainModifier = e.defaultModifier
	}

	strategyModifier := 0.0
	for _, s := range route.Strategies {
		rate, ok := e.strategyRates[s]
		if !ok {
			rate = e.defaultRate
		}
		if rate > strategyModifier {
			strategyModifier = rate
		}
	}

	cascadeMultiplier := 1 + sig.CascadePotential/100

	return baseProfit * chainModifier * strategyModifier * cascadeMultiplier
}
