package scoring

import (
	"fmt"
	"log"

	"github.com/bettensor-sim/reputation-engine/internal/entropy"
	"github.com/bettensor-sim/reputation-engine/internal/metrics"
	"github.com/bettensor-sim/reputation-engine/internal/store"
	"github.com/bettensor-sim/reputation-engine/internal/tiers"
	"github.com/bettensor-sim/reputation-engine/internal/weights"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

// Engine ties the circular buffer, entropy engine, metric calculators,
// composite aggregator, tier manager, and weight synthesizer into the
// single daily tick described in the data model.
type Engine struct {
	Store   *store.Store
	Entropy *entropy.Engine
	Cfgs    [models.NumTiers]models.TierConfig

	init bool

	invalidUIDs []models.UID
	validUIDs   []models.UID
}

// New builds a fresh Engine over an M-miner, D-day window.
func New(m, d int) *Engine {
	return &Engine{
		Store:   store.New(m, d),
		Entropy: entropy.New(),
		Cfgs:    models.DefaultTierConfigs(),
		init:    true,
	}
}

// Tick runs one full scoring cycle for in.Date: advance the day, assign
// fresh tiers to newly-valid UIDs, fold predictions/odds/results into the
// raw metrics and entropy scores, recompute composites, manage tiers, and
// synthesize the final weight vector.
func (e *Engine) Tick(in models.TickInput) (models.TickOutput, error) {
	s := e.Store
	m := s.M

	e.invalidUIDs = in.InvalidUIDs
	e.validUIDs = in.ValidUIDs

	invalidMask := uidMask(m, in.InvalidUIDs)
	validMask := uidMask(m, in.ValidUIDs)
	emptyMask := make([]bool, m)
	for uid := 0; uid < m; uid++ {
		emptyMask[uid] = !invalidMask[uid] && !validMask[uid]
	}

	s.AdvanceDay(in.Date)
	day := s.CurrentDay

	if e.init {
		for uid := 0; uid < m; uid++ {
			if validMask[uid] {
				s.SetTier(uid, day, models.TierT1)
			}
		}
		log.Printf("[scoring] assigned %d valid uids to tier 1 on init", len(in.ValidUIDs))
		e.init = false
	}

	for uid := 0; uid < m; uid++ {
		if emptyMask[uid] {
			s.SetTier(uid, day, models.TierEmpty)
		} else if invalidMask[uid] {
			s.SetTier(uid, day, models.TierInvalid)
		} else if s.GetTier(uid, day) < models.TierT1 {
			s.SetTier(uid, day, models.TierT1)
		}
	}

	if len(in.Predictions) > 0 && len(in.ClosingOdds) > 0 && len(in.Results) > 0 {
		e.updateRawScores(in, day)
	} else {
		log.Printf("[scoring] no data available for day %d, skipping score update", day)
	}

	tiers.Manage(s, day, e.invalidUIDs, e.validUIDs, e.Cfgs)

	compositeCol := composite0(s)
	tierCol := s.GetTierCol(day)
	w := weights.Synthesize(compositeCol, tierCol, invalidMask, emptyMask, validMask, e.Cfgs)

	return models.TickOutput{Day: day, Date: in.Date, Weights: w}, nil
}

// composite0 extracts a flat view of the day's slot-0 composite — the raw
// daily composite, not a tier rolling average.
func composite0(s *store.Store) []float64 {
	col := make([]float64, s.M)
	for uid := 0; uid < s.M; uid++ {
		col[uid] = s.GetComposite(uid, s.CurrentDay, 0)
	}
	return col
}

func (e *Engine) updateRawScores(in models.TickInput, day int) {
	s := e.Store
	m := s.M

	for _, row := range in.ClosingOdds {
		e.Entropy.AddNewGame(row.ExternalGameID, row.Odds)
	}
	for _, res := range in.Results {
		e.Entropy.CloseGame(res.ExternalGameID, in.Date)
	}

	clv := metrics.CalculateCLV(m, in.Predictions, in.ClosingOdds)
	roi := metrics.CalculateROI(m, in.Predictions, in.Results)
	sortino := metrics.CalculateSortino(m, in.Predictions, in.Results)

	currentWagered := s.GetCol(s.AmountWagered, day)
	newWagered := metrics.ApplyWagerCap(m, currentWagered, in.Predictions)
	s.SetCol(s.AmountWagered, day, newWagered)

	for _, p := range in.Predictions {
		oddsForGame := oddsOf(in.ClosingOdds, p.ExternalGameID)
		if oddsForGame == nil || p.PredictedOutcome < 0 || p.PredictedOutcome >= len(oddsForGame) {
			continue
		}
		e.Entropy.AddPrediction(p.ExternalGameID, p.PredictedOutcome, entropy.PoolEntry{
			MinerUID: p.MinerUID,
			Odds:     p.PredictedOdds,
			Wager:    p.Wager,
			Date:     in.Date,
		})
	}
	gameIDs := make([]int, 0, len(in.ClosingOdds))
	for _, row := range in.ClosingOdds {
		gameIDs = append(gameIDs, row.ExternalGameID)
	}
	entropyScores := e.Entropy.GetCurrentEBDRScores(m, gameIDs, in.Date)

	s.SetCol(s.CLV, day, clv)
	s.SetCol(s.ROI, day, roi)
	s.SetCol(s.Sortino, day, sortino)
	s.SetCol(s.Entropy, day, entropyScores)

	UpdateComposite(s, day, clv, roi, sortino, entropyScores)

	total := 0.0
	for _, w := range newWagered {
		total += w
	}
	log.Printf("[scoring] day %d: total wager %.2f, average wager per miner %.2f", day, total, total/float64(m))
}

func oddsOf(rows []models.ClosingOddsRow, gameID int) []float64 {
	for _, row := range rows {
		if row.ExternalGameID == gameID {
			return row.Odds
		}
	}
	return nil
}

func uidMask(m int, uids []models.UID) []bool {
	mask := make([]bool, m)
	for _, uid := range uids {
		if int(uid) >= 0 && int(uid) < m {
			mask[uid] = true
		}
	}
	return mask
}

// Reset wipes every score array, tier assignment, and the entropy engine
// back to a blank slate, starting the engine over as if freshly built.
func (e *Engine) Reset() {
	e.Store = store.New(e.Store.M, e.Store.D)
	e.Entropy = entropy.New()
	e.init = true
	e.invalidUIDs = nil
	e.validUIDs = nil
	log.Println("[scoring] full reset complete")
}

// ResetMiner re-initializes a single UID's entire history, used when a
// miner's on-chain identity changes. The miner lands on TierT1 unless it is
// currently flagged invalid, in which case it lands on TierInvalid.
func (e *Engine) ResetMiner(uid models.UID) error {
	s := e.Store
	if int(uid) < 0 || int(uid) >= s.M {
		return fmt.Errorf("uid %d out of range [0, %d)", uid, s.M)
	}

	isInvalid := false
	for _, u := range e.invalidUIDs {
		if u == uid {
			isInvalid = true
			break
		}
	}

	for day := 0; day < s.D; day++ {
		s.Set(s.CLV, int(uid), day, 0)
		s.Set(s.ROI, int(uid), day, 0)
		s.Set(s.Sortino, int(uid), day, 0)
		s.Set(s.Entropy, int(uid), day, 0)
		s.Set(s.AmountWagered, int(uid), day, 0)
		for slot := 0; slot < 6; slot++ {
			s.SetComposite(int(uid), day, slot, 0)
		}
		if isInvalid {
			s.SetTier(int(uid), day, models.TierInvalid)
		} else {
			s.SetTier(int(uid), day, models.TierT1)
		}
	}
	log.Printf("[scoring] miner %d reset", uid)
	return nil
}

// History returns a single UID's recorded values for one metric over the
// most recent days days ending at the current day, oldest-first; days
// outside (0, D] means the full D-day window. metric must be one of "clv",
// "roi", "sortino", "entropy", "wagered", or "composite" (the daily
// composite, slot 0).
func (e *Engine) History(uid models.UID, metric string, days int) ([]float64, error) {
	s := e.Store
	if int(uid) < 0 || int(uid) >= s.M {
		return nil, fmt.Errorf("uid %d out of range [0, %d)", uid, s.M)
	}

	var arr []float64
	switch metric {
	case "clv":
		arr = s.CLV
	case "roi":
		arr = s.ROI
	case "sortino":
		arr = s.Sortino
	case "entropy":
		arr = s.Entropy
	case "wagered":
		arr = s.AmountWagered
	case "composite":
		arr = nil
	default:
		return nil, fmt.Errorf("unknown metric type: %s", metric)
	}

	if days <= 0 || days > s.D {
		days = s.D
	}

	out := make([]float64, days)
	startDay := s.CurrentDay - days + 1
	for i := 0; i < days; i++ {
		day := startDay + i
		if metric == "composite" {
			out[i] = s.GetComposite(int(uid), day, 0)
		} else {
			out[i] = s.Get(arr, int(uid), day)
		}
	}
	return out, nil
}
