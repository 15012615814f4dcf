// Package entropy implements the entropy-diversity bonus engine: it tracks,
// per game and outcome, the pool of predictions placed against that outcome
// and scores each prediction by how much it diverges from the consensus
// (contrarian component) and by how close its timing and size sit to the
// earliest and smallest of the other miners' entries in its pool
// (similarity component). Scores accumulate per miner across the pools of
// the games passed to GetCurrentEBDRScores and are normalized once per call.
package entropy

import (
	"math"
	"sync"
	"time"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

const eps = 1e-8

// PoolEntry is one miner's prediction recorded against a game/outcome pool.
type PoolEntry struct {
	MinerUID            models.UID
	Odds                float64
	Wager               float64
	Date                time.Time
	EntropyContribution float64
}

// Pool holds every prediction placed on one outcome of one game, plus the
// aggregate entropy score for that outcome (computed from the opening odds,
// independent of who predicted it).
type Pool struct {
	Predictions  []PoolEntry
	EntropyScore float64
}

// Engine is the entropy-diversity bonus engine. Safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	pools       map[int]map[int]*Pool // game_id -> outcome_index -> Pool
	closedGames map[int]time.Time     // game_id -> UTC close time
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{
		pools:       make(map[int]map[int]*Pool),
		closedGames: make(map[int]time.Time),
	}
}

// AddNewGame registers a game's outcome pools from its opening odds. A
// three-way odds row whose third entry is zero is treated as a two-way line
// (no tie outcome) and only two pools are created.
func (e *Engine) AddNewGame(gameID int, odds []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pools[gameID]; exists {
		return
	}

	numOutcomes := len(odds)
	if numOutcomes == 3 && odds[2] == 0 {
		numOutcomes = 2
	}

	outcomes := make(map[int]*Pool, numOutcomes)
	for i := 0; i < numOutcomes; i++ {
		outcomes[i] = &Pool{EntropyScore: calculateInitialEntropy(odds[i])}
	}
	e.pools[gameID] = outcomes
}

// calculateInitialEntropy converts an opening decimal odds value into an
// implied-probability entropy score: -p*log2(p), floored at eps so games
// with near-certain or zero-probability lines never contribute exactly zero.
func calculateInitialEntropy(odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	prob := 1.0 / (odds + eps)
	if prob < 0 {
		prob = 0
	}
	if prob > 1 {
		prob = 1
	}
	entropy := -prob * math.Log2(prob+eps)
	return math.Max(entropy, eps)
}

// CloseGame marks a game as closed as of the given UTC time. Closing an
// already-closed game is a no-op (idempotent).
func (e *Engine) CloseGame(gameID int, closedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, already := e.closedGames[gameID]; already {
		return
	}
	e.closedGames[gameID] = closedAt.UTC()
}

// AddPrediction records a miner's entry against a game/outcome pool and
// computes its entropy contribution against the pool as it stands at
// insertion time. Predictions against a game never registered via
// AddNewGame, or against an outcome index outside the game's pool set, are
// dropped silently — the feed is expected to have called AddNewGame first.
func (e *Engine) AddPrediction(gameID, outcomeIndex int, p PoolEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	game, ok := e.pools[gameID]
	if !ok {
		return
	}
	pool, ok := game[outcomeIndex]
	if !ok {
		return
	}

	similarity := calculatePredictionSimilarity(pool, p)
	contrarian := calculateContrarianComponent(game, outcomeIndex)
	p.EntropyContribution = calculateEntropyContribution(similarity, contrarian)

	pool.Predictions = append(pool.Predictions, p)
}

// calculatePredictionSimilarity scores how closely p's timing and wager size
// match the OTHER miners' entries already in the pool. 0.0 when the pool
// holds no entries at all yet; when it holds entries but none from a miner
// other than p's, each sub-similarity defaults to 1.0 instead.
func calculatePredictionSimilarity(pool *Pool, p PoolEntry) float64 {
	if len(pool.Predictions) == 0 {
		return 0.0
	}

	others := make([]PoolEntry, 0, len(pool.Predictions))
	for _, other := range pool.Predictions {
		if other.MinerUID != p.MinerUID {
			others = append(others, other)
		}
	}

	return (timeSimilarity(p.Date, others) + wagerSimilarity(p.Wager, others)) / 2
}

// timeSimilarity compares t against the span of others' timestamps: 1.0 when
// t lands on the earliest of them, decaying linearly to 0 at the far end of
// their range. Defaults to 1.0 when others is empty.
func timeSimilarity(t time.Time, others []PoolEntry) float64 {
	if len(others) == 0 {
		return 1.0
	}

	earliest := others[0].Date
	latest := others[0].Date
	for _, o := range others[1:] {
		if o.Date.Before(earliest) {
			earliest = o.Date
		}
		if o.Date.After(latest) {
			latest = o.Date
		}
	}

	timeRange := latest.Sub(earliest).Seconds() + eps
	return 1 - math.Abs(t.Sub(earliest).Seconds())/timeRange
}

// wagerSimilarity compares wager against the min/max wager among others: 1.0
// at the minimum, decaying linearly to 0 at the maximum. Defaults to 1.0
// when others is empty.
func wagerSimilarity(wager float64, others []PoolEntry) float64 {
	if len(others) == 0 {
		return 1.0
	}

	minWager := others[0].Wager
	maxWager := others[0].Wager
	for _, o := range others[1:] {
		if o.Wager < minWager {
			minWager = o.Wager
		}
		if o.Wager > maxWager {
			maxWager = o.Wager
		}
	}

	wagerRange := maxWager - minWager + eps
	return 1 - math.Abs(wager-minWager)/wagerRange
}

// calculateContrarianComponent rewards predicting against the crowd: 0.5
// (neutral) when the game has no predictions anywhere yet, otherwise derived
// from this outcome's share of all predictions placed on the game so far.
func calculateContrarianComponent(game map[int]*Pool, outcomeIndex int) float64 {
	total := 0
	outcomeCount := 0
	for idx, pool := range game {
		n := len(pool.Predictions)
		total += n
		if idx == outcomeIndex {
			outcomeCount = n
		}
	}
	if total == 0 {
		return 0.5
	}
	outcomeRatio := float64(outcomeCount) / float64(total)
	return math.Pow(1-outcomeRatio, 0.5) - 0.5
}

// calculateEntropyContribution blends similarity and contrarian signal,
// clamped to [-1, 1].
func calculateEntropyContribution(similarity, contrarian float64) float64 {
	c := 0.6*similarity + 0.4*contrarian
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

// GetCurrentEBDRScores accumulates the recorded entropy contributions per
// miner across the listed games only, normalizes the result by its own
// maximum (so the top scorer lands at 1.0), and then opportunistically
// sweeps out pools for games that closed more than a day ago. scores is
// indexed by UID in [0, m). A gameID with no tracked pool is skipped.
func (e *Engine) GetCurrentEBDRScores(m int, gameIDs []int, now time.Time) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	scores := make([]float64, m)
	for _, gameID := range gameIDs {
		game, ok := e.pools[gameID]
		if !ok {
			continue
		}
		for _, pool := range game {
			for _, entry := range pool.Predictions {
				uid := int(entry.MinerUID)
				if uid < 0 || uid >= m {
					continue
				}
				scores[uid] += entry.EntropyContribution
			}
		}
	}

	maxVal := 0.0
	for _, v := range scores {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal > 0 {
		for i := range scores {
			scores[i] /= maxVal
		}
	}

	e.resetPredictionsForClosedGames(now)
	return scores
}

// resetPredictionsForClosedGames clears the pools of any game that closed
// more than 24 hours before now, and forgets the game entirely. Called from
// within GetCurrentEBDRScores while holding the lock.
func (e *Engine) resetPredictionsForClosedGames(now time.Time) {
	for gameID, closedAt := range e.closedGames {
		if now.Sub(closedAt) <= 24*time.Hour {
			continue
		}
		delete(e.pools, gameID)
		delete(e.closedGames, gameID)
	}
}

// Snapshot is the JSON-serializable form of an Engine's state, used by
// persistence.EntropyStore.
type Snapshot struct {
	Pools       map[int]map[int]*Pool `json:"game_pools"`
	ClosedGames map[int]time.Time     `json:"closed_games"`
}

// Snapshot captures the engine's current pools and closed-game set.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	pools := make(map[int]map[int]*Pool, len(e.pools))
	for gameID, outcomes := range e.pools {
		copied := make(map[int]*Pool, len(outcomes))
		for outcomeIdx, pool := range outcomes {
			predictions := make([]PoolEntry, len(pool.Predictions))
			copy(predictions, pool.Predictions)
			copied[outcomeIdx] = &Pool{Predictions: predictions, EntropyScore: pool.EntropyScore}
		}
		pools[gameID] = copied
	}

	closed := make(map[int]time.Time, len(e.closedGames))
	for gameID, t := range e.closedGames {
		closed[gameID] = t
	}

	return Snapshot{Pools: pools, ClosedGames: closed}
}

// Restore replaces the engine's state with a previously captured snapshot.
func (e *Engine) Restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.Pools == nil {
		snap.Pools = make(map[int]map[int]*Pool)
	}
	if snap.ClosedGames == nil {
		snap.ClosedGames = make(map[int]time.Time)
	}
	e.pools = snap.Pools
	e.closedGames = snap.ClosedGames
}
