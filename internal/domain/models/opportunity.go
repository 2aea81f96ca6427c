package models

// Opportunity is a ranked (signal, venue, strategies) candidate with an
// expected profit. Transient: produced per routing decision, never persisted.
type Opportunity struct {
	Venue          VenueID      `json:"venue"`
	Signal         Signal       `json:"signal"`
	ExpectedProfit float64      `json:"expected_profit"`
	Strategies     []StrategyID `json:"strategies"`
	Urgency        Urgency      `json:"urgency"`
}

// PrimaryStrategy returns the first configured strategy, the one the
// dispatcher executes against.
func (o *Opportunity) PrimaryStrategy() (StrategyID, bool) {
	if len(o.Strategies) == 0 {
		return "", false
	}
	return o.Strategies[0], true
}
