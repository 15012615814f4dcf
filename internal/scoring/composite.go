// Package scoring aggregates the four raw per-day metrics into a single
// composite score and maintains each tier's rolling average of that
// composite, ready for the tier manager and weight synthesizer to consume.
package scoring

import (
	"github.com/bettensor-sim/reputation-engine/internal/store"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

const (
	clvWeight     = 0.30
	roiWeight     = 0.30
	sortinoWeight = 0.30
	entropyWeight = 0.10
)

// UpdateComposite blends clv, roi, sortino, and entropy (each length m,
// indexed by UID) into the day's composite slot 0, then recomputes each
// active tier's (T1..T5) rolling average into composite slots 1..5 using
// that tier's configured window.
func UpdateComposite(s *store.Store, day int, clv, roi, sortino, entropy []float64) {
	m := s.M
	for uid := 0; uid < m; uid++ {
		daily := clvWeight*clv[uid] + roiWeight*roi[uid] + sortinoWeight*sortino[uid] + entropyWeight*entropy[uid]
		s.SetComposite(uid, day, 0, daily)
	}

	cfgs := models.DefaultTierConfigs()
	for tier := models.TierT1; tier <= models.TierT5; tier++ {
		window := cfgs[tier].Window
		slot := int(tier) - 1 // T1 -> slot 1, ..., T5 -> slot 5
		for uid := 0; uid < m; uid++ {
			avg := s.RollingComposite(uid, day, window)
			s.SetComposite(uid, day, slot, avg)
		}
	}
}
