// Package models holds the wire and domain types shared across the
// reputation engine: prediction rows ingested from the game-data feed,
// the tier configuration table, and the per-tick result returned to
// the chain-reporting collaborator.
package models

import "time"

// UID identifies a participant (miner) in [0, M).
type UID int

// Tier is a discrete performance band. 0=Empty, 1=Invalid, 2..6=active tiers 1..5.
type Tier int

const (
	TierEmpty   Tier = 0
	TierInvalid Tier = 1
	TierT1      Tier = 2
	TierT2      Tier = 3
	TierT3      Tier = 4
	TierT4      Tier = 5
	TierT5      Tier = 6
)

// NumTiers is the number of distinct tier values (0..6 inclusive).
const NumTiers = 7

// TierConfig holds the static per-tier parameters from the scoring spec.
type TierConfig struct {
	Window    int     // rolling window in days used for this tier's composite and wager checks
	MinWager  float64 // minimum cumulative wager over Window days to hold this tier
	Capacity  float64 // capacity as a fraction of M
	Incentive float64 // share of the incentive pool captured by this tier
}

// DefaultTierConfigs returns the tier table from spec.md §3, indexed by Tier value.
func DefaultTierConfigs() [NumTiers]TierConfig {
	return [NumTiers]TierConfig{
		TierEmpty:   {Window: 0, MinWager: 0, Capacity: 1.0, Incentive: 0},
		TierInvalid: {Window: 0, MinWager: 0, Capacity: 1.0, Incentive: 0},
		TierT1:      {Window: 3, MinWager: 0, Capacity: 1.0, Incentive: 0.10},
		TierT2:      {Window: 7, MinWager: 4000, Capacity: 0.20, Incentive: 0.15},
		TierT3:      {Window: 15, MinWager: 10000, Capacity: 0.20, Incentive: 0.20},
		TierT4:      {Window: 30, MinWager: 20000, Capacity: 0.10, Incentive: 0.25},
		TierT5:      {Window: 45, MinWager: 35000, Capacity: 0.05, Incentive: 0.30},
	}
}

// PredictionRow is one row of the flat prediction batch ingested per tick.
type PredictionRow struct {
	MinerUID         UID
	ExternalGameID   int
	PredictedOutcome int
	PredictedOdds    float64
	Payout           float64
	Wager            float64
}

// ClosingOddsRow is one row of the closing-line odds matrix (G x K),
// carrying its external game id alongside the odds.
type ClosingOddsRow struct {
	ExternalGameID int
	Odds           []float64 // length K; Odds[2]==0 means no tie line offered
}

// Result is the final outcome of a game.
type Result struct {
	ExternalGameID int
	ActualOutcome  int
}

// DailyMetrics is the raw per-day metric row for one miner, as computed by
// internal/metrics and internal/entropy before the composite aggregator runs.
type DailyMetrics struct {
	CLV           float64
	ROI           float64
	Sortino       float64
	Entropy       float64
	AmountWagered float64
}

// TickInput bundles everything an external scheduler hands to the scoring
// engine for one tick (spec.md §6 "Inputs per tick").
type TickInput struct {
	Date        time.Time
	ValidUIDs   []UID
	InvalidUIDs []UID
	Predictions []PredictionRow
	ClosingOdds []ClosingOddsRow
	Results     []Result
}

// TickOutput is what a scoring tick returns: the Σ=1 (or all-zero) weight
// vector, indexed by UID.
type TickOutput struct {
	Day     int
	Date    time.Time
	Weights []float64
}
