package service

import (
	"context"

	"SigRoute/internal/domain/models"
)

// ExecutionVenue is the contract every venue/strategy executor conforms
// to. Implementations are external and opaque to the core: liquidation,
// arbitrage, flashloan executors all look the same from here.
type ExecutionVenue interface {
	Execute(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error)
}

// RandSource is the injected randomness used by selection and by the
// simulated venue. Tests pass a seeded source for reproducibility.
type RandSource interface {
	Intn(n int) int
	Float64() float64
}
