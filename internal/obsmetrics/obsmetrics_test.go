package obsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetWeightSum_ReportsTotal(t *testing.T) {
	SetWeightSum([]float64{0.25, 0.25, 0.5})
	if got := testutil.ToFloat64(WeightSum); got != 1.0 {
		t.Fatalf("expected weight sum gauge 1.0, got %v", got)
	}
}

func TestSetTierPopulation_CountsPerTier(t *testing.T) {
	SetTierPopulation([]int{2, 2, 3, 0, 1})
	if got := testutil.ToFloat64(TierPopulation.WithLabelValues("t1")); got != 2 {
		t.Fatalf("expected 2 miners in t1, got %v", got)
	}
	if got := testutil.ToFloat64(TierPopulation.WithLabelValues("t2")); got != 1 {
		t.Fatalf("expected 1 miner in t2, got %v", got)
	}
	if got := testutil.ToFloat64(TierPopulation.WithLabelValues("empty")); got != 1 {
		t.Fatalf("expected 1 miner in empty, got %v", got)
	}
	if got := testutil.ToFloat64(TierPopulation.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("expected 1 miner in invalid, got %v", got)
	}
}

func TestObserveTick_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(TickTotal.WithLabelValues("ok"))
	ObserveTick(0.01, "ok")
	after := testutil.ToFloat64(TickTotal.WithLabelValues("ok"))
	if after != before+1 {
		t.Fatalf("expected tick_total{result=ok} to increment by 1, got %v -> %v", before, after)
	}
}
