package usecase

import (
	"testing"

	"SigRoute/internal/domain/models"
	"SigRoute/pkg/config"
)

func TestRoutingTableLookup(t *testing.T) {
	table, err := NewRoutingTable(map[string]config.RouteConfig{
		"LIQUIDATION_THRESHOLD_BREACH": {
			Chains:     []string{"ethereum", "arbitrum"},
			Strategies: []string{"liquidation", "flashloan"},
			MinProfit:  0.05,
			Urgency:    "Immediate",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Size() != 1 {
		t.Fatalf("unexpected size %d", table.Size())
	}

	route, ok := table.RouteFor("LIQUIDATION_THRESHOLD_BREACH")
	if !ok {
		t.Fatalf("expected route")
	}
	if route.Urgency != models.UrgencyImmediate {
		t.Fatalf("unexpected urgency %v", route.Urgency)
	}
	if len(route.Venues) != 2 || route.Venues[0] != "ethereum" {
		t.Fatalf("venue order must follow declaration: %v", route.Venues)
	}

	if _, ok := table.RouteFor("WHALE_TRANSFER"); ok {
		t.Fatalf("unconfigured type should have no route")
	}
}

func TestRoutingTableDefaultUrgency(t *testing.T) {
	table, err := NewRoutingTable(map[string]config.RouteConfig{
		"LARGE_SWAP": {Chains: []string{"ethereum"}, Strategies: []string{"arb"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	route, _ := table.RouteFor("LARGE_SWAP")
	if route.Urgency != models.UrgencyMedium {
		t.Fatalf("expected Medium default, got %v", route.Urgency)
	}
}

func TestRoutingTableBadUrgency(t *testing.T) {
	_, err := NewRoutingTable(map[string]config.RouteConfig{
		"LARGE_SWAP": {Chains: []string{"ethereum"}, Strategies: []string{"arb"}, Urgency: "Now"},
	})
	if err == nil {
		t.Fatalf("expected error for unknown urgency")
	}
}
