package usecase

import (
	"fmt"

	"SigRoute/internal/domain/models"
	"SigRoute/pkg/config"
)

// RoutingTable maps signal types to routes. Immutable after construction;
// keys are exact signal type strings. A missing route is not an error,
// it means "no route configured, skip the signal".
type RoutingTable struct {
	routes map[string]*models.Route
}

// NewRoutingTable builds the table from configuration. Any malformed
// entry is fatal at startup.
func NewRoutingTable(cfg map[string]config.RouteConfig) (*RoutingTable, error) {
	routes := make(map[string]*models.Route, len(cfg))
	for typ, rc := range cfg {
		urgency := models.UrgencyMedium
		if rc.Urgency != "" {
			u, err := models.ParseUrgency(rc.Urgency)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", typ, err)
			}
			urgency = u
		}
		venues := make([]models.VenueID, len(rc.Chains))
		for i, c := range rc.Chains {
			venues[i] = models.VenueID(c)
		}
		strategies := make([]models.StrategyID, len(rc.Strategies))
		for i, s := range rc.Strategies {
			strategies[i] = models.StrategyID(s)
		}
		routes[typ] = &models.Route{
			SignalType: typ,
			Venues:     venues,
			Strategies: strategies,
			MinProfit:  rc.MinProfit,
			Urgency:    urgency,
		}
	}
	return &RoutingTable{routes: routes}, nil
}

// RouteFor looks up the route for a signal type. The second return is
// false when no route is configured.
func (t *RoutingTable) RouteFor(signalType string) (*models.Route, bool) {
	r, ok := t.routes[signalType]
	return r, ok
}

// Size returns the number of configured routes.
func (t *RoutingTable) Size() int { return len(t.routes) }
