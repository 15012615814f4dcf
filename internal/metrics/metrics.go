// Package metrics computes the three raw per-day miner metrics derived
// directly from a tick's prediction batch: closing-line value (CLV), return
// on investment (ROI), and the Sortino ratio. It also applies the daily
// wager cap while accumulating amount-wagered totals.
package metrics

import (
	"log"
	"math"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

const (
	dailyWagerCap     = 1000.0
	sortinoEpsilon    = 0.01
	maxSortinoRatio   = 10.0
	outlierTrimSigmas = 3.0
)

// CalculateCLV returns per-miner closing-line-value scores, averaged over
// every prediction a miner has a valid closing line for. A prediction is
// skipped (not an error) when it named the tie outcome (index 2) and no tie
// line was offered, since there is nothing to compare against.
func CalculateCLV(m int, predictions []models.PredictionRow, closing []models.ClosingOddsRow) []float64 {
	scores := make([]float64, m)
	counts := make([]int, m)

	byGame := make(map[int][]float64, len(closing))
	for _, row := range closing {
		byGame[row.ExternalGameID] = row.Odds
	}

	for _, p := range predictions {
		if p.MinerUID < 0 || int(p.MinerUID) >= m {
			log.Printf("[metrics] clv: miner uid %d out of range, skipping", p.MinerUID)
			continue
		}
		odds, ok := byGame[p.ExternalGameID]
		if !ok || p.PredictedOutcome < 0 || p.PredictedOutcome >= len(odds) {
			log.Printf("[metrics] clv: invalid external game id or outcome index for game %d", p.ExternalGameID)
			continue
		}
		closingOdds := odds[p.PredictedOutcome]
		if closingOdds <= 0 {
			if p.PredictedOutcome == 2 {
				continue // tie outcome with no tie line offered
			}
			log.Printf("[metrics] clv: zero closing odds for game %d outcome %d", p.ExternalGameID, p.PredictedOutcome)
			continue
		}
		clv := p.PredictedOdds / closingOdds
		if !isFinite(clv) {
			log.Printf("[metrics] clv: non-finite value for miner %d on game %d", p.MinerUID, p.ExternalGameID)
			continue
		}
		scores[p.MinerUID] += clv
		counts[p.MinerUID]++
	}

	for uid := 0; uid < m; uid++ {
		if counts[uid] > 0 {
			scores[uid] /= float64(counts[uid])
		}
	}
	return scores
}

// CalculateROI returns per-miner return-on-investment scores, averaged over
// every settled prediction. Zero-wager predictions and predictions for
// games with no recorded result are skipped.
func CalculateROI(m int, predictions []models.PredictionRow, results []models.Result) []float64 {
	scores := make([]float64, m)
	counts := make([]int, m)

	outcomes := make(map[int]int, len(results))
	for _, r := range results {
		outcomes[r.ExternalGameID] = r.ActualOutcome
	}

	for _, p := range predictions {
		if p.MinerUID < 0 || int(p.MinerUID) >= m {
			continue
		}
		if _, ok := outcomes[p.ExternalGameID]; !ok {
			log.Printf("[metrics] roi: no result for game %d, skipping miner %d", p.ExternalGameID, p.MinerUID)
			continue
		}
		if p.Wager == 0 {
			log.Printf("[metrics] roi: zero wager for miner %d on game %d, skipping", p.MinerUID, p.ExternalGameID)
			continue
		}
		roi := (p.Payout - p.Wager) / p.Wager
		if !isFinite(roi) {
			log.Printf("[metrics] roi: non-finite value for miner %d on game %d", p.MinerUID, p.ExternalGameID)
			continue
		}
		scores[p.MinerUID] += roi
		counts[p.MinerUID]++
	}

	for uid := 0; uid < m; uid++ {
		if counts[uid] > 0 {
			scores[uid] /= float64(counts[uid])
		}
	}
	return scores
}

// CalculateSortino returns per-miner Sortino ratios. Per miner: collect
// settled return rates, trim outliers beyond 3 standard deviations, and
// divide the average return by the downside deviation (RMS of negative
// returns) plus an epsilon. When a miner has no downside returns at all, it
// falls back to dividing by the overall standard deviation (a Sharpe
// ratio). Either way the ratio is capped at maxSortinoRatio.
func CalculateSortino(m int, predictions []models.PredictionRow, results []models.Result) []float64 {
	ratios := make([]float64, m)
	returns := make([][]float64, m)

	outcomes := make(map[int]int, len(results))
	for _, r := range results {
		outcomes[r.ExternalGameID] = r.ActualOutcome
	}

	for _, p := range predictions {
		if p.MinerUID < 0 || int(p.MinerUID) >= m {
			continue
		}
		if _, ok := outcomes[p.ExternalGameID]; !ok {
			continue
		}
		if p.Wager == 0 {
			continue
		}
		returns[p.MinerUID] = append(returns[p.MinerUID], (p.Payout-p.Wager)/p.Wager)
	}

	for uid := 0; uid < m; uid++ {
		r := trimOutliers(returns[uid])
		if len(r) == 0 {
			continue
		}

		avg := mean(r)
		var downside []float64
		for _, v := range r {
			if v < 0 {
				downside = append(downside, v)
			}
		}

		var ratio float64
		if len(downside) > 0 {
			downsideDeviation := rms(downside)
			ratio = avg / (downsideDeviation + sortinoEpsilon)
		} else {
			ratio = avg / (stddev(r) + sortinoEpsilon)
		}
		ratio = math.Min(ratio, maxSortinoRatio)
		if math.IsNaN(ratio) {
			ratio = 0
		}
		ratios[uid] = ratio
	}
	return ratios
}

// ApplyWagerCap folds a tick's predictions into the day's amount-wagered
// column, capping each miner's total at dailyWagerCap and logging whenever
// a wager is trimmed or rejected outright because the cap was already hit.
func ApplyWagerCap(m int, currentWagered []float64, predictions []models.PredictionRow) []float64 {
	wagered := make([]float64, m)
	copy(wagered, currentWagered)

	for _, p := range predictions {
		if p.MinerUID < 0 || int(p.MinerUID) >= m {
			continue
		}
		uid := int(p.MinerUID)
		if wagered[uid]+p.Wager > dailyWagerCap {
			capped := dailyWagerCap - wagered[uid]
			if capped > 0 {
				log.Printf("[metrics] capping daily wager for miner %d to %.2f", uid, capped)
				wagered[uid] += capped
			} else {
				log.Printf("[metrics] daily wager cap reached for miner %d, wager not added", uid)
			}
			continue
		}
		wagered[uid] += p.Wager
	}
	return wagered
}

func trimOutliers(r []float64) []float64 {
	if len(r) == 0 {
		return r
	}
	avg := mean(r)
	sd := stddev(r)
	if sd == 0 {
		return r
	}
	out := make([]float64, 0, len(r))
	for _, v := range r {
		if math.Abs(v-avg) <= outlierTrimSigmas*sd {
			out = append(out, v)
		}
	}
	return out
}

func mean(r []float64) float64 {
	sum := 0.0
	for _, v := range r {
		sum += v
	}
	return sum / float64(len(r))
}

func stddev(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	avg := mean(r)
	sum := 0.0
	for _, v := range r {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(r)))
}

func rms(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(r)))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
