package usecase

import (
	"testing"

	"SigRoute/internal/domain/models"
	"SigRoute/pkg/config"
)

func testSelector(t *testing.T, routes map[string]config.RouteConfig) *OpportunitySelector {
	t.Helper()
	table, err := NewRoutingTable(routes)
	if err != nil {
		t.Fatalf("routing table: %v", err)
	}
	e := NewProfitEstimator(
		map[models.VenueID]float64{"ethereum": 1.0, "arbitrum": 0.7, "polygon": 0.7},
		map[models.StrategyID]float64{"liquidation": 0.08},
		0.5, 0.01,
	)
	return NewOpportunitySelector(table, e)
}

func TestSelectBestVenue(t *testing.T) {
	s := testSelector(t, map[string]config.RouteConfig{
		"LIQUIDATION_THRESHOLD_BREACH": {
			Chains:     []string{"arbitrum", "ethereum"},
			Strategies: []string{"liquidation"},
			MinProfit:  0.05,
			Urgency:    "Immediate",
		},
	})
	sig := &models.Signal{Type: "LIQUIDATION_THRESHOLD_BREACH", Weight: 9.5, CascadePotential: 90.25}

	best, ok := s.Select(sig)
	if !ok {
		t.Fatalf("expected opportunity")
	}
	if best.Venue != "ethereum" {
		t.Fatalf("higher chain modifier should win, got %s", best.Venue)
	}
	if best.Urgency != models.UrgencyImmediate {
		t.Fatalf("unexpected urgency %v", best.Urgency)
	}
}

func TestRankFiltersBelowMinProfit(t *testing.T) {
	s := testSelector(t, map[string]config.RouteConfig{
		"WHALE_TRANSFER": {
			Chains:     []string{"ethereum", "arbitrum"},
			Strategies: []string{"liquidation"},
			MinProfit:  0.04,
		},
	})
	// weight 4: ethereum estimate is 0.4*1.0*0.08*1.16 = 0.03712,
	// arbitrum 0.7x that. Both land below the 0.04 floor.
	sig := &models.Signal{Type: "WHALE_TRANSFER", Weight: 4, CascadePotential: 16}
	if opps := s.Rank(sig); len(opps) != 0 {
		t.Fatalf("expected all venues filtered, got %d", len(opps))
	}
}

func TestRankNoRoute(t *testing.T) {
	s := testSelector(t, map[string]config.RouteConfig{})
	sig := &models.Signal{Type: "LARGE_SWAP", Weight: 6, CascadePotential: 36}
	if opps := s.Rank(sig); opps != nil {
		t.Fatalf("unrouted type should rank nothing, got %v", opps)
	}
	if _, ok := s.Select(sig); ok {
		t.Fatalf("unrouted type should select nothing")
	}
}

func TestRankTieKeepsDeclarationOrder(t *testing.T) {
	s := testSelector(t, map[string]config.RouteConfig{
		"LARGE_SWAP": {
			Chains:     []string{"polygon", "arbitrum"}, // equal modifiers
			Strategies: []string{"liquidation"},
		},
	})
	sig := &models.Signal{Type: "LARGE_SWAP", Weight: 6, CascadePotential: 36}
	opps := s.Rank(sig)
	if len(opps) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(opps))
	}
	if opps[0].Venue != "polygon" || opps[1].Venue != "arbitrum" {
		t.Fatalf("tie must keep declaration order: %s, %s", opps[0].Venue, opps[1].Venue)
	}
}
