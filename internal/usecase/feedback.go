package usecase

import (
	"sort"

	"SigRoute/internal/domain/models"
	domsvc "SigRoute/internal/domain/service"
)

// ChainHistory is the slice of the ledger the feedback loop reads:
// average cascade size over the most recent chains of a signal type.
type ChainHistory interface {
	AvgCascade(signalType string, depth int) float64
}

// ReinforcementFeedback biases signal selection using configured
// time-of-day weights and historical attribution outcomes. Selection
// among the top-K scorers uses an injected random source so it is never
// fully deterministic in production yet reproducible under a fixed seed.
type ReinforcementFeedback struct {
	timeWeights map[string]map[int]float64
	topK        int
	recentDepth int
	history     ChainHistory
	rand        domsvc.RandSource
}

func NewReinforcementFeedback(
	timeWeights map[string]map[int]float64,
	topK, recentDepth int,
	history ChainHistory,
	rand domsvc.RandSource,
) *ReinforcementFeedback {
	return &ReinforcementFeedback{
		timeWeights: timeWeights,
		topK:        topK,
		recentDepth: recentDepth,
		history:     history,
		rand:        rand,
	}
}

// TimeWeight returns the configured weight for a type/hour pair,
// defaulting to 1 when unconfigured.
func (f *ReinforcementFeedback) TimeWeight(signalType string, hour int) float64 {
	hours, ok := f.timeWeights[signalType]
	if !ok {
		return 1
	}
	w, ok := hours[hour]
	if !ok {
		return 1
	}
	return w
}

// HistoricalSuccess derives a bounded success bias from the ledger's
// recent chains for the type: min(avgCascadeSize/100, 0.5).
func (f *ReinforcementFeedback) HistoricalSuccess(signalType string) float64 {
	avg := f.history.AvgCascade(signalType, f.recentDepth)
	s := avg / 100
	if s > 0.5 {
		s = 0.5
	}
	return s
}

// SelectSignal scores every candidate and picks one of the top-K at
// random. Returns nil for an empty candidate set.
func (f *ReinforcementFeedback) SelectSignal(candidates []*models.Signal, hourOfDay int) *models.Signal {
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		sig   *models.Signal
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := c.Weight * f.TimeWeight(c.Type, hourOfDay) * (1 + f.HistoricalSuccess(c.Type))
		ranked = append(ranked, scored{sig: c, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	k := f.topK
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	return ranked[f.rand.Intn(k)].sig
}
