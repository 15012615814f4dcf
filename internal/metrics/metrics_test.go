package metrics

import (
	"testing"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

func TestCalculateCLV_SingleValidRow(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, PredictedOutcome: 0, PredictedOdds: 2.0},
	}
	closing := []models.ClosingOddsRow{
		{ExternalGameID: 1, Odds: []float64{2.5, 1.8, 0}},
	}
	got := CalculateCLV(2, preds, closing)
	want := 2.0 / 2.5
	if got[0] != want {
		t.Fatalf("expected clv %v, got %v", want, got[0])
	}
	if got[1] != 0 {
		t.Fatalf("expected miner 1 untouched, got %v", got[1])
	}
}

func TestCalculateCLV_TieOutcomeWithNoTieLineIsSkipped(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, PredictedOutcome: 2, PredictedOdds: 3.0},
	}
	closing := []models.ClosingOddsRow{
		{ExternalGameID: 1, Odds: []float64{2.5, 1.8, 0}},
	}
	got := CalculateCLV(1, preds, closing)
	if got[0] != 0 {
		t.Fatalf("expected tie outcome with no tie line to be skipped, got %v", got[0])
	}
}

func TestCalculateCLV_AveragesMultiplePredictions(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, PredictedOutcome: 0, PredictedOdds: 2.0},
		{MinerUID: 0, ExternalGameID: 2, PredictedOutcome: 0, PredictedOdds: 4.0},
	}
	closing := []models.ClosingOddsRow{
		{ExternalGameID: 1, Odds: []float64{2.0, 1.8, 0}},
		{ExternalGameID: 2, Odds: []float64{2.0, 1.8, 0}},
	}
	got := CalculateCLV(1, preds, closing)
	want := (1.0 + 2.0) / 2
	if got[0] != want {
		t.Fatalf("expected averaged clv %v, got %v", want, got[0])
	}
}

func TestCalculateROI_SkipsZeroWagerAndMissingResult(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, Payout: 50, Wager: 0},
		{MinerUID: 0, ExternalGameID: 2, Payout: 50, Wager: 10},
	}
	results := []models.Result{{ExternalGameID: 1, ActualOutcome: 0}}
	got := CalculateROI(1, preds, results)
	if got[0] != 0 {
		t.Fatalf("expected 0 roi when both rows are skipped, got %v", got[0])
	}
}

func TestCalculateROI_AveragesAcrossSettledPredictions(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, Payout: 20, Wager: 10},
		{MinerUID: 0, ExternalGameID: 2, Payout: 0, Wager: 10},
	}
	results := []models.Result{
		{ExternalGameID: 1, ActualOutcome: 0},
		{ExternalGameID: 2, ActualOutcome: 0},
	}
	got := CalculateROI(1, preds, results)
	want := (1.0 + (-1.0)) / 2
	if got[0] != want {
		t.Fatalf("expected roi %v, got %v", want, got[0])
	}
}

func TestCalculateSortino_SharpeFallbackWhenAllPositive(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, Payout: 15, Wager: 10},
		{MinerUID: 0, ExternalGameID: 2, Payout: 20, Wager: 10},
	}
	results := []models.Result{
		{ExternalGameID: 1, ActualOutcome: 0},
		{ExternalGameID: 2, ActualOutcome: 0},
	}
	got := CalculateSortino(1, preds, results)
	if got[0] <= 0 {
		t.Fatalf("expected a positive sortino ratio from the sharpe fallback, got %v", got[0])
	}
	if got[0] > maxSortinoRatio {
		t.Fatalf("expected ratio capped at %v, got %v", maxSortinoRatio, got[0])
	}
}

func TestCalculateSortino_CapAppliesInSharpeFallbackBranch(t *testing.T) {
	// All-positive, identical returns (zero variance) drive the
	// Sharpe-fallback ratio far past the cap; confirms the cap applies in
	// that branch too.
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, Payout: 115, Wager: 100},
		{MinerUID: 0, ExternalGameID: 2, Payout: 115, Wager: 100},
		{MinerUID: 0, ExternalGameID: 3, Payout: 115, Wager: 100},
	}
	results := []models.Result{
		{ExternalGameID: 1, ActualOutcome: 0},
		{ExternalGameID: 2, ActualOutcome: 0},
		{ExternalGameID: 3, ActualOutcome: 0},
	}
	got := CalculateSortino(1, preds, results)
	if got[0] != maxSortinoRatio {
		t.Fatalf("expected ratio capped at %v, got %v", maxSortinoRatio, got[0])
	}
}

func TestCalculateSortino_UsesDownsideDeviationWhenLossesExist(t *testing.T) {
	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, Payout: 20, Wager: 10},
		{MinerUID: 0, ExternalGameID: 2, Payout: 0, Wager: 10},
	}
	results := []models.Result{
		{ExternalGameID: 1, ActualOutcome: 0},
		{ExternalGameID: 2, ActualOutcome: 0},
	}
	got := CalculateSortino(1, preds, results)
	// average return = 0, so ratio should be exactly 0 regardless of
	// downside deviation.
	if got[0] != 0 {
		t.Fatalf("expected zero ratio for a break-even miner, got %v", got[0])
	}
}

func TestCalculateSortino_NoSettledPredictionsIsZero(t *testing.T) {
	got := CalculateSortino(2, nil, nil)
	for uid, v := range got {
		if v != 0 {
			t.Fatalf("uid %d: expected zero sortino with no data, got %v", uid, v)
		}
	}
}

func TestApplyWagerCap_CapsAtDailyLimit(t *testing.T) {
	current := []float64{900}
	preds := []models.PredictionRow{
		{MinerUID: 0, Wager: 300},
	}
	got := ApplyWagerCap(1, current, preds)
	if got[0] != 1000 {
		t.Fatalf("expected wager capped at 1000, got %v", got[0])
	}
}

func TestApplyWagerCap_RejectsWhenAlreadyAtCap(t *testing.T) {
	current := []float64{1000}
	preds := []models.PredictionRow{
		{MinerUID: 0, Wager: 50},
	}
	got := ApplyWagerCap(1, current, preds)
	if got[0] != 1000 {
		t.Fatalf("expected wager to remain at cap, got %v", got[0])
	}
}

func TestApplyWagerCap_AddsBelowCapNormally(t *testing.T) {
	current := []float64{100}
	preds := []models.PredictionRow{
		{MinerUID: 0, Wager: 50},
	}
	got := ApplyWagerCap(1, current, preds)
	if got[0] != 150 {
		t.Fatalf("expected wager 150, got %v", got[0])
	}
}
