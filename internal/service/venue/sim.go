package venue

import (
	"context"
	"fmt"
	"time"

	"SigRoute/internal/domain/models"
	domsvc "SigRoute/internal/domain/service"
)

// SimVenue simulates strategy execution for development and testing.
// All randomness comes from the injected source, so outcomes are
// reproducible under a fixed seed.
type SimVenue struct {
	strategy    models.StrategyID
	successRate float64
	rand        domsvc.RandSource
}

// NewSimVenue creates a simulated executor for a strategy. successRate
// is the probability of a successful execution in [0,1].
func NewSimVenue(strategy models.StrategyID, successRate float64, rand domsvc.RandSource) *SimVenue {
	return &SimVenue{strategy: strategy, successRate: successRate, rand: rand}
}

func (v *SimVenue) Execute(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ref := fmt.Sprintf("sim-%s-%s-%d", v.strategy, opp.Venue, time.Now().UnixNano())
	if v.rand.Float64() >= v.successRate {
		return &models.ExecutionResult{
			Success:      false,
			ExecutionRef: ref,
			Error:        models.ErrKindExecutionFailure,
		}, nil
	}

	// Realized profit fluctuates around the estimate: 80%-120%.
	realized := opp.ExpectedProfit * (0.8 + 0.4*v.rand.Float64())
	return &models.ExecutionResult{
		Success:      true,
		Profit:       realized,
		ExecutionRef: ref,
		ResourceCost: 21000 + v.rand.Intn(180000),
	}, nil
}

var _ domsvc.ExecutionVenue = (*SimVenue)(nil)
