package usecase

import (
	"testing"

	"SigRoute/internal/domain/models"
	"SigRoute/internal/service/random"
)

type stubHistory map[string]float64

func (h stubHistory) AvgCascade(signalType string, depth int) float64 {
	return h[signalType]
}

func TestTimeWeightDefault(t *testing.T) {
	f := NewReinforcementFeedback(nil, 3, 50, stubHistory{}, random.New(1))
	if w := f.TimeWeight("LARGE_SWAP", 14); w != 1 {
		t.Fatalf("unconfigured time weight should be 1, got %v", w)
	}

	f = NewReinforcementFeedback(map[string]map[int]float64{
		"LARGE_SWAP": {14: 1.5},
	}, 3, 50, stubHistory{}, random.New(1))
	if w := f.TimeWeight("LARGE_SWAP", 14); w != 1.5 {
		t.Fatalf("unexpected time weight %v", w)
	}
	if w := f.TimeWeight("LARGE_SWAP", 3); w != 1 {
		t.Fatalf("unconfigured hour should be 1, got %v", w)
	}
}

func TestHistoricalSuccessCapped(t *testing.T) {
	f := NewReinforcementFeedback(nil, 3, 50, stubHistory{
		"LARGE_SWAP":      36,
		"parameterChange": 100,
	}, random.New(1))

	if s := f.HistoricalSuccess("LARGE_SWAP"); s != 0.36 {
		t.Fatalf("unexpected success bias %v", s)
	}
	if s := f.HistoricalSuccess("parameterChange"); s != 0.5 {
		t.Fatalf("bias must cap at 0.5, got %v", s)
	}
	if s := f.HistoricalSuccess("unknown"); s != 0 {
		t.Fatalf("no history should mean 0 bias, got %v", s)
	}
}

func TestSelectSignalEmpty(t *testing.T) {
	f := NewReinforcementFeedback(nil, 3, 50, stubHistory{}, random.New(1))
	if got := f.SelectSignal(nil, 12); got != nil {
		t.Fatalf("empty candidates should select nil, got %+v", got)
	}
}

func TestSelectSignalTopKDeterministicWithSeed(t *testing.T) {
	candidates := []*models.Signal{
		{Type: "WHALE_TRANSFER", Weight: 4},
		{Type: "LARGE_SWAP", Weight: 6},
		{Type: "parameterChange", Weight: 10},
		{Type: "MEMPOOL_SPIKE", Weight: 3},
	}

	f1 := NewReinforcementFeedback(nil, 2, 50, stubHistory{}, random.New(42))
	f2 := NewReinforcementFeedback(nil, 2, 50, stubHistory{}, random.New(42))
	for i := 0; i < 20; i++ {
		a := f1.SelectSignal(candidates, 12)
		b := f2.SelectSignal(candidates, 12)
		if a.Type != b.Type {
			t.Fatalf("same seed must select identically: %s vs %s", a.Type, b.Type)
		}
		// topK=2: only the two heaviest candidates are eligible
		if a.Type != "parameterChange" && a.Type != "LARGE_SWAP" {
			t.Fatalf("selection escaped top-K: %s", a.Type)
		}
	}
}

func TestSelectSignalSingleCandidate(t *testing.T) {
	f := NewReinforcementFeedback(nil, 3, 50, stubHistory{}, random.New(7))
	only := &models.Signal{Type: "LARGE_SWAP", Weight: 6}
	if got := f.SelectSignal([]*models.Signal{only}, 0); got != only {
		t.Fatalf("single candidate must be selected")
	}
}

func TestSelectSignalHistoryBias(t *testing.T) {
	// Equal weights; history pushes LARGE_SWAP to the top. topK=1 makes
	// the pick deterministic.
	candidates := []*models.Signal{
		{Type: "WHALE_TRANSFER", Weight: 5},
		{Type: "LARGE_SWAP", Weight: 5},
	}
	f := NewReinforcementFeedback(nil, 1, 50, stubHistory{"LARGE_SWAP": 40}, random.New(1))
	if got := f.SelectSignal(candidates, 12); got.Type != "LARGE_SWAP" {
		t.Fatalf("history bias should promote LARGE_SWAP, got %s", got.Type)
	}
}
