package models

import "fmt"

// VenueID identifies an external execution target (e.g. a chain/market).
type VenueID string

// StrategyID identifies a named execution approach.
type StrategyID string

// Urgency classifies how fast a route's opportunities must be executed.
// Higher values rank higher when expected profits tie.
type Urgency int

const (
	UrgencyMedium Urgency = iota
	UrgencyFast
	UrgencyImmediate
)

func (u Urgency) String() string {
	switch u {
	case UrgencyImmediate:
		return "Immediate"
	case UrgencyFast:
		return "Fast"
	case UrgencyMedium:
		return "Medium"
	}
	return fmt.Sprintf("Urgency(%d)", int(u))
}

// ParseUrgency parses a configured urgency name.
func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "Immediate":
		return UrgencyImmediate, nil
	case "Fast":
		return UrgencyFast, nil
	case "Medium":
		return UrgencyMedium, nil
	}
	return UrgencyMedium, fmt.Errorf("unknown urgency %q", s)
}

// Route maps a signal type to its eligible venues and strategies.
// Configuration data: loaded at startup, read-only thereafter.
// Venue declaration order is significant (stable tie-break in selection).
type Route struct {
	SignalType string
	Venues     []VenueID
	Strategies []StrategyID
	MinProfit  float64
	Urgency    Urgency
}
