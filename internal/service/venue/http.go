package venue

import (
	"context"
	"fmt"

	"SigRoute/internal/domain/models"
	domsvc "SigRoute/internal/domain/service"
	xhttp "SigRoute/pkg/http"
)

// HTTPVenue dispatches opportunities to an external executor service.
// The executor owns the concrete strategy logic (liquidation, arbitrage,
// flashloan); this adapter only speaks the wire contract.
type HTTPVenue struct {
	url    string
	client *xhttp.Client
}

// NewHTTPVenue creates an executor client for the given endpoint.
func NewHTTPVenue(url string, client *xhttp.Client) *HTTPVenue {
	return &HTTPVenue{url: url, client: client}
}

type executeRequest struct {
	VenueID        models.VenueID    `json:"venue_id"`
	StrategyID     models.StrategyID `json:"strategy_id"`
	Signal         models.Signal     `json:"signal"`
	ExpectedProfit float64           `json:"expected_profit"`
}

func (v *HTTPVenue) Execute(ctx context.Context, opp *models.Opportunity) (*models.ExecutionResult, error) {
	strategy, ok := opp.PrimaryStrategy()
	if !ok {
		return nil, fmt.Errorf("opportunity has no strategy")
	}

	var res models.ExecutionResult
	err := v.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    v.url,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: executeRequest{
			VenueID:        opp.Venue,
			StrategyID:     strategy,
			Signal:         opp.Signal,
			ExpectedProfit: opp.ExpectedProfit,
		},
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("executor %s: %w", v.url, err)
	}
	return &res, nil
}

var _ domsvc.ExecutionVenue = (*HTTPVenue)(nil)
