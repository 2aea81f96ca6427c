package models

// TypeAnalysis aggregates chain outcomes per signal type.
type TypeAnalysis struct {
	SignalType  string  `json:"signal_type"`
	Count       int     `json:"count"`
	TotalProfit float64 `json:"total_profit"`
	AvgProfit   float64 `json:"avg_profit"`
	SuccessRate float64 `json:"success_rate"`
	AvgCascade  float64 `json:"avg_cascade"`
}

// DashboardSummary is the headline reporting block.
type DashboardSummary struct {
	TotalSignals       int     `json:"total_signals"`
	CompletedSignals   int     `json:"completed_signals"`
	SuccessRate        float64 `json:"success_rate"`
	TotalProfit        float64 `json:"total_profit"`
	AvgProfitPerSignal float64 `json:"avg_profit_per_signal"`
}

// Dashboard is the external reporting projection.
type Dashboard struct {
	Summary       DashboardSummary        `json:"summary"`
	PerType       map[string]TypeAnalysis `json:"per_type_analysis"`
	RecentProfits []*ProfitRecord         `json:"recent_profits"`
}
