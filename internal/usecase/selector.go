package usecase

import (
	"sort"

	"SigRoute/internal/domain/models"
)

// OpportunitySelector enumerates venue options for a signal, filters by
// the route's minimum profit, and ranks candidates. A signal type with no
// route, or with no candidate above the threshold, yields no opportunity;
// that outcome is terminal and opens no attribution chain.
type OpportunitySelector struct {
	table     *RoutingTable
	estimator *ProfitEstimator
}

func NewOpportunitySelector(table *RoutingTable, estimator *ProfitEstimator) *OpportunitySelector {
	return &OpportunitySelector{table: table, estimator: estimator}
}

// Rank returns every qualifying opportunity for the signal, best first.
// Ordering: expected profit descending, then urgency (Immediate > Fast >
// Medium), then venue declaration order. The sort is stable so ties keep
// declaration order deterministically.
func (s *OpportunitySelector) Rank(sig *models.Signal) []*models.Opportunity {
	route, ok := s.table.RouteFor(sig.Type)
	if !ok {
		return nil
	}

	opps := make([]*models.Opportunity, 0, len(route.Venues))
	for _, venue := range route.Venues {
		profit := s.estimator.Estimate(sig, venue, route)
		if profit < route.MinProfit {
			continue
		}
		opps = append(opps, &models.Opportunity{
			Venue:          venue,
			Signal:         *sig,
			ExpectedProfit: profit,
			Strategies:     route.Strategies,
			Urgency:        route.Urgency,
		})
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].ExpectedProfit != opps[j].ExpectedProfit {
			return opps[i].ExpectedProfit > opps[j].ExpectedProfit
		}
		return opps[i].Urgency > opps[j].Urgency
	})
	return opps
}

// Select returns the single best opportunity, or false when none qualifies.
func (s *OpportunitySelector) Select(sig *models.Signal) (*models.Opportunity, bool) {
	opps := s.Rank(sig)
	if len(opps) == 0 {
		return nil, false
	}
	return opps[0], true
}
