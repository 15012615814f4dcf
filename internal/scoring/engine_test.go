package scoring

import (
	"testing"
	"time"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

func tickDate(n int) time.Time {
	return time.Date(2026, 1, 1+n, 0, 0, 0, 0, time.UTC)
}

func TestEngine_Tick_EmptyInputProducesZeroWeights(t *testing.T) {
	e := New(4, 10)
	out, err := e.Tick(models.TickInput{Date: tickDate(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for uid, w := range out.Weights {
		if w != 0 {
			t.Fatalf("uid %d: expected zero weight on an empty tick, got %v", uid, w)
		}
	}
}

func TestEngine_Tick_InitAssignsValidUIDsToTierOne(t *testing.T) {
	e := New(4, 10)
	out, err := e.Tick(models.TickInput{
		Date:      tickDate(0),
		ValidUIDs: []models.UID{0, 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Store.GetTier(0, out.Day); got != models.TierT1 {
		t.Fatalf("expected uid 0 at TierT1, got %v", got)
	}
	if got := e.Store.GetTier(2, out.Day); got != models.TierEmpty {
		t.Fatalf("expected untouched uid 2 at TierEmpty, got %v", got)
	}
}

func TestEngine_Tick_SingleValidRowProducesNonZeroComposite(t *testing.T) {
	e := New(3, 10)

	in := models.TickInput{
		Date:      tickDate(0),
		ValidUIDs: []models.UID{0},
		Predictions: []models.PredictionRow{
			{MinerUID: 0, ExternalGameID: 1, PredictedOutcome: 0, PredictedOdds: 2.2, Payout: 22, Wager: 10},
		},
		ClosingOdds: []models.ClosingOddsRow{
			{ExternalGameID: 1, Odds: []float64{2.0, 1.9, 0}},
		},
		Results: []models.Result{
			{ExternalGameID: 1, ActualOutcome: 0},
		},
	}

	out, err := e.Tick(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Store.GetComposite(0, out.Day, 0); got == 0 {
		t.Fatal("expected a non-zero daily composite for a settled winning prediction")
	}
	if got := e.Store.Get(e.Store.AmountWagered, 0, out.Day); got != 10 {
		t.Fatalf("expected wager of 10 recorded, got %v", got)
	}
}

func TestEngine_Tick_DailyWagerCapAppliesAcrossPredictions(t *testing.T) {
	e := New(2, 10)

	preds := []models.PredictionRow{
		{MinerUID: 0, ExternalGameID: 1, PredictedOutcome: 0, PredictedOdds: 2.0, Payout: 0, Wager: 700},
		{MinerUID: 0, ExternalGameID: 2, PredictedOutcome: 0, PredictedOdds: 2.0, Payout: 0, Wager: 700},
	}
	in := models.TickInput{
		Date:      tickDate(0),
		ValidUIDs: []models.UID{0},
		Predictions: preds,
		ClosingOdds: []models.ClosingOddsRow{
			{ExternalGameID: 1, Odds: []float64{2.0, 1.9, 0}},
			{ExternalGameID: 2, Odds: []float64{2.0, 1.9, 0}},
		},
		Results: []models.Result{
			{ExternalGameID: 1, ActualOutcome: 0},
			{ExternalGameID: 2, ActualOutcome: 0},
		},
	}

	out, err := e.Tick(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Store.Get(e.Store.AmountWagered, 0, out.Day); got != 1000 {
		t.Fatalf("expected wager capped at 1000, got %v", got)
	}
}

func TestEngine_Reset_ClearsStoreAndEntropy(t *testing.T) {
	e := New(2, 5)
	_, _ = e.Tick(models.TickInput{
		Date:      tickDate(0),
		ValidUIDs: []models.UID{0},
	})
	e.Reset()

	if e.Store.CurrentDay != 0 {
		t.Fatalf("expected reset store to start at day 0, got %d", e.Store.CurrentDay)
	}
	if got := e.Store.GetTier(0, 0); got != models.TierInvalid {
		t.Fatalf("expected fresh store tiers at TierInvalid, got %v", got)
	}
}

func TestEngine_ResetMiner_ClearsSingleUIDHistory(t *testing.T) {
	e := New(3, 5)
	e.Store.Set(e.Store.CLV, 1, 0, 0.8)
	e.Store.SetTier(1, 0, models.TierT3)
	e.invalidUIDs = nil

	if err := e.ResetMiner(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Store.Get(e.Store.CLV, 1, 0); got != 0 {
		t.Fatalf("expected cleared clv, got %v", got)
	}
	if got := e.Store.GetTier(1, 0); got != models.TierT1 {
		t.Fatalf("expected reset miner at TierT1, got %v", got)
	}
}

func TestEngine_ResetMiner_OutOfRangeReturnsError(t *testing.T) {
	e := New(2, 5)
	if err := e.ResetMiner(99); err == nil {
		t.Fatal("expected error for out-of-range uid")
	}
}

func TestEngine_History_ReturnsRequestedWindow(t *testing.T) {
	e := New(2, 10)
	e.Store.Set(e.Store.ROI, 0, 0, 0.5)

	hist, err := e.History(0, "roi", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hist) != 1 || hist[0] != 0.5 {
		t.Fatalf("expected [0.5], got %v", hist)
	}
}

func TestEngine_History_UnknownMetricErrors(t *testing.T) {
	e := New(2, 10)
	if _, err := e.History(0, "bogus", 1); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}
