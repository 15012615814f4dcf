// Package weights synthesizes the final Σ=1 reward weight vector from a
// day's tier assignments and raw composite scores: within each active
// tier, composite scores are min-max normalized and scaled by that tier's
// share of the incentive pool, then the whole vector is renormalized to
// sum to one.
package weights

import (
	"log"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

// Synthesize computes the weight vector (length len(composite), indexed by
// UID) for one day. composite holds each UID's raw daily composite score
// (slot 0, not a tier rolling average); tierCol holds each UID's tier on
// that day. valid, invalid, and empty are the three disjoint UID partition
// masks for the day: valid gates which UIDs may receive a weight at all
// (including the equal-split fallback), invalid and empty are zeroed out
// explicitly at the end regardless of what the tier-based pass computed.
func Synthesize(composite []float64, tierCol []models.Tier, invalid, empty, valid []bool, cfg [models.NumTiers]models.TierConfig) []float64 {
	m := len(composite)
	weights := make([]float64, m)

	totalIncentive := 0.0
	for tier := models.TierT1; tier <= models.TierT5; tier++ {
		totalIncentive += cfg[tier].Incentive
	}

	var validMiners []int
	for uid := 0; uid < m; uid++ {
		if uid >= len(valid) || !valid[uid] {
			continue
		}
		if tierCol[uid] >= models.TierT1 && tierCol[uid] <= models.TierT5 {
			validMiners = append(validMiners, uid)
		}
	}

	if len(validMiners) == 0 {
		log.Printf("[weights] no valid miners found, returning zero weights")
		return weights
	}

	tierMiners := make(map[models.Tier][]int)
	for _, uid := range validMiners {
		t := tierCol[uid]
		tierMiners[t] = append(tierMiners[t], uid)
	}

	for tier := models.TierT1; tier <= models.TierT5; tier++ {
		miners := tierMiners[tier]
		if len(miners) == 0 {
			continue
		}

		minScore, maxScore := composite[miners[0]], composite[miners[0]]
		for _, uid := range miners[1:] {
			if composite[uid] < minScore {
				minScore = composite[uid]
			}
			if composite[uid] > maxScore {
				maxScore = composite[uid]
			}
		}

		var incentiveFactor float64
		if totalIncentive > 0 {
			incentiveFactor = cfg[tier].Incentive / totalIncentive
		}

		spread := maxScore - minScore
		for _, uid := range miners {
			var normalized float64
			if spread != 0 {
				normalized = (composite[uid] - minScore) / spread
			}
			weights[uid] = normalized * incentiveFactor
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}

	if total > 0 {
		for uid := range weights {
			weights[uid] /= total
		}
	} else {
		share := 1.0 / float64(len(validMiners))
		for _, uid := range validMiners {
			weights[uid] = share
		}
	}

	for uid := 0; uid < m; uid++ {
		if uid < len(invalid) && invalid[uid] {
			weights[uid] = 0
		}
		if uid < len(empty) && empty[uid] {
			weights[uid] = 0
		}
	}

	return weights
}
