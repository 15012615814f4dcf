// Package tiers implements the daily tier-management pass: demotion of
// miners who no longer meet their tier's cumulative-wager requirement,
// promotion (and swapping) of eligible lower-tier miners into open slots
// above them, and a final pass that fills any slots still open from the
// lowest active tier upward.
package tiers

import (
	"log"
	"sort"

	"github.com/bettensor-sim/reputation-engine/internal/store"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

// slot returns the composite-score slot holding a tier's own rolling
// average: slot 0 is the raw daily composite, slots 1..5 belong to T1..T5.
func slot(t models.Tier) int {
	return int(t) - 1
}

// Manage runs the full three-step tier management pass for the given day
// and writes the resulting tier column back into the store. invalidUIDs are
// re-stamped to TierEmpty after every other step, matching the source
// system's final "set invalid UIDs to tier 0" pass. validUIDs determines the
// demotion floor: a miner in validUIDs never cascades below TierT1.
func Manage(s *store.Store, day int, invalidUIDs, validUIDs []models.UID, cfgs [models.NumTiers]models.TierConfig) {
	current := s.GetTierCol(day)

	valid := make([]bool, s.M)
	for _, uid := range validUIDs {
		if int(uid) >= 0 && int(uid) < s.M {
			valid[uid] = true
		}
	}

	demotionPass(s, day, current, valid, cfgs)
	promoteAndSwap(s, day, current, cfgs)
	fillEmptySlots(s, day, current, cfgs)

	s.SetTierCol(day, current)

	for _, uid := range invalidUIDs {
		if int(uid) < 0 || int(uid) >= s.M {
			continue
		}
		s.SetTier(int(uid), day, models.TierEmpty)
	}
}

func meetsTierRequirements(s *store.Store, uid, day int, tier models.Tier, cfgs [models.NumTiers]models.TierConfig) bool {
	cfg := cfgs[tier]
	return s.CumulativeWager(uid, day, cfg.Window) >= cfg.MinWager
}

// demotionPass walks tiers from highest to lowest (T5 down to T1) and
// cascades any miner who no longer meets their current tier's requirement
// down until they land on a tier they qualify for (or its floor).
func demotionPass(s *store.Store, day int, current []models.Tier, valid []bool, cfgs [models.NumTiers]models.TierConfig) {
	for tier := models.TierT5; tier >= models.TierT1; tier-- {
		for uid := 0; uid < s.M; uid++ {
			if current[uid] != tier {
				continue
			}
			if !meetsTierRequirements(s, uid, day, tier, cfgs) {
				cascadeDemotion(s, day, uid, tier, current, valid, cfgs)
			}
		}
	}
}

func cascadeDemotion(s *store.Store, day int, uid int, currentTier models.Tier, tiers []models.Tier, valid []bool, cfgs [models.NumTiers]models.TierConfig) {
	isValid := valid[uid]

	newTier := currentTier - 1
	if isValid {
		if newTier < models.TierT1 {
			newTier = models.TierT1
		}
	} else {
		if newTier < models.TierInvalid {
			newTier = models.TierInvalid
		}
	}

	tiers[uid] = newTier
	log.Printf("[tiers] miner %d demoted to tier %d", uid, newTier)

	if newTier > models.TierInvalid && !meetsTierRequirements(s, uid, day, newTier, cfgs) {
		cascadeDemotion(s, day, uid, newTier, tiers, valid, cfgs)
	}
}

// promoteAndSwap walks tiers T1..T4 as the "current" tier and, for each,
// either promotes eligible miners into T(current+1)'s open slots, or — when
// that tier is full — pairs current-tier and next-tier miners, each sorted
// by ascending score, and swaps each pair while the current-tier miner's
// score strictly beats the incumbent's and it meets the next tier's wager
// requirement, stopping at the first pair that does not.
func promoteAndSwap(s *store.Store, day int, current []models.Tier, cfgs [models.NumTiers]models.TierConfig) {
	for tier := models.TierT1; tier <= models.TierT4; tier++ {
		nextTier := tier + 1

		var currentMiners, nextMiners []int
		for uid := 0; uid < s.M; uid++ {
			switch current[uid] {
			case tier:
				currentMiners = append(currentMiners, uid)
			case nextTier:
				nextMiners = append(nextMiners, uid)
			}
		}

		capacity := int(cfgs[nextTier].Capacity * float64(s.M))
		openSlots := capacity - len(nextMiners)

		if openSlots > 0 {
			var eligible []int
			for _, uid := range currentMiners {
				if meetsTierRequirements(s, uid, day, nextTier, cfgs) {
					eligible = append(eligible, uid)
				}
			}
			sort.SliceStable(eligible, func(i, j int) bool {
				return s.GetComposite(eligible[i], day, slot(tier)) > s.GetComposite(eligible[j], day, slot(tier))
			})
			if openSlots > len(eligible) {
				openSlots = len(eligible)
			}
			for _, uid := range eligible[:openSlots] {
				current[uid] = nextTier
				log.Printf("[tiers] miner %d promoted to tier %d", uid, nextTier)
			}
			continue
		}

		if len(nextMiners) == 0 {
			continue
		}

		sortedCurrent := append([]int(nil), currentMiners...)
		sort.SliceStable(sortedCurrent, func(i, j int) bool {
			return s.GetComposite(sortedCurrent[i], day, slot(tier)) < s.GetComposite(sortedCurrent[j], day, slot(tier))
		})
		sortedNext := append([]int(nil), nextMiners...)
		sort.SliceStable(sortedNext, func(i, j int) bool {
			return s.GetComposite(sortedNext[i], day, slot(nextTier)) < s.GetComposite(sortedNext[j], day, slot(nextTier))
		})

		n := len(sortedCurrent)
		if len(sortedNext) < n {
			n = len(sortedNext)
		}
		for i := 0; i < n; i++ {
			promoting := sortedCurrent[i]
			demoting := sortedNext[i]
			promotingScore := s.GetComposite(promoting, day, slot(tier))
			demotingScore := s.GetComposite(demoting, day, slot(nextTier))

			if promotingScore > demotingScore && meetsTierRequirements(s, promoting, day, nextTier, cfgs) {
				current[promoting], current[demoting] = current[demoting], current[promoting]
				log.Printf("[tiers] swapped miner %d (promoted to tier %d) with miner %d (demoted to tier %d)", promoting, nextTier, demoting, tier)
			} else {
				break
			}
		}
	}
}

// fillEmptySlots walks tiers T1..T5 and, for any tier still under capacity
// after promotion/swap, fills it from the pool of eligible miners sitting
// in any lower active tier (T1 and above), highest composite first.
func fillEmptySlots(s *store.Store, day int, current []models.Tier, cfgs [models.NumTiers]models.TierConfig) {
	for tier := models.TierT1; tier <= models.TierT5; tier++ {
		cfg := cfgs[tier]
		capacity := int(cfg.Capacity * float64(s.M))

		var tierMiners []int
		for uid := 0; uid < s.M; uid++ {
			if current[uid] == tier {
				tierMiners = append(tierMiners, uid)
			}
		}
		openSlots := capacity - len(tierMiners)
		if openSlots <= 0 {
			continue
		}

		inTier := make(map[int]bool, len(tierMiners))
		for _, uid := range tierMiners {
			inTier[uid] = true
		}

		var eligible []int
		for uid := 0; uid < s.M; uid++ {
			if current[uid] < models.TierT1 || current[uid] >= tier {
				continue
			}
			if inTier[uid] {
				continue
			}
			if meetsTierRequirements(s, uid, day, tier, cfgs) {
				eligible = append(eligible, uid)
			}
		}

		sort.SliceStable(eligible, func(i, j int) bool {
			return s.GetComposite(eligible[i], day, slot(tier)) > s.GetComposite(eligible[j], day, slot(tier))
		})
		if openSlots > len(eligible) {
			openSlots = len(eligible)
		}
		for _, uid := range eligible[:openSlots] {
			preTier := current[uid]
			current[uid] = tier
			log.Printf("[tiers] miner %d promoted to tier %d from tier %d to fill empty slot", uid, tier, preTier)
		}
	}
}
