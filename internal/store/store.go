// Package store implements the fixed-width circular buffer that backs
// the scoring engine's per-day history: a bounded window of D days over
// M participants, holding raw metrics, composite scores, and tier
// assignments. Writing day d+D overwrites the slot for day d.
package store

import (
	"time"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

// Store is the M x D (and M x D x 6 for composites) circular buffer. All
// arrays are flattened row-major (uid*D + day) and pre-allocated at
// construction — no per-tick heap growth.
type Store struct {
	M int // number of participant slots
	D int // day-window width

	CurrentDay     int
	LastUpdateDate *time.Time

	CLV           []float64 // M x D
	ROI           []float64 // M x D
	Sortino       []float64 // M x D
	Entropy       []float64 // M x D
	AmountWagered []float64 // M x D

	Composite []float64 // M x D x 6

	Tiers []models.Tier // M x D
}

// New allocates a Store with M participant slots and a D-day window. All
// tier cells start at TierInvalid (1), per spec.md §3 "initial value 1".
func New(m, d int) *Store {
	s := &Store{
		M:             m,
		D:             d,
		CLV:           make([]float64, m*d),
		ROI:           make([]float64, m*d),
		Sortino:       make([]float64, m*d),
		Entropy:       make([]float64, m*d),
		AmountWagered: make([]float64, m*d),
		Composite:     make([]float64, m*d*6),
		Tiers:         make([]models.Tier, m*d),
	}
	for i := range s.Tiers {
		s.Tiers[i] = models.TierInvalid
	}
	return s
}

func (s *Store) idx(uid int, day int) int {
	return uid*s.D + s.physicalDay(day)
}

func (s *Store) compositeIdx(uid int, day int, slot int) int {
	return (uid*s.D+s.physicalDay(day))*6 + slot
}

func (s *Store) physicalDay(day int) int {
	d := day % s.D
	if d < 0 {
		d += s.D
	}
	return d
}

// GetCol returns a copy of array's column for the given logical day,
// length M, indexed by UID.
func (s *Store) GetCol(array []float64, day int) []float64 {
	out := make([]float64, s.M)
	pd := s.physicalDay(day)
	for uid := 0; uid < s.M; uid++ {
		out[uid] = array[uid*s.D+pd]
	}
	return out
}

// SetCol writes values (length M, indexed by UID) into array's column for
// the given logical day.
func (s *Store) SetCol(array []float64, day int, values []float64) {
	pd := s.physicalDay(day)
	for uid := 0; uid < s.M; uid++ {
		array[uid*s.D+pd] = values[uid]
	}
}

// Get returns a single cell.
func (s *Store) Get(array []float64, uid, day int) float64 {
	return array[s.idx(uid, day)]
}

// Set writes a single cell.
func (s *Store) Set(array []float64, uid, day int, v float64) {
	array[s.idx(uid, day)] = v
}

// GetComposite returns composite[uid, day, slot].
func (s *Store) GetComposite(uid, day, slot int) float64 {
	return s.Composite[s.compositeIdx(uid, day, slot)]
}

// SetComposite writes composite[uid, day, slot].
func (s *Store) SetComposite(uid, day, slot int, v float64) {
	s.Composite[s.compositeIdx(uid, day, slot)] = v
}

// GetTier returns the tier of uid on the given logical day.
func (s *Store) GetTier(uid, day int) models.Tier {
	return s.Tiers[s.idx(uid, day)]
}

// SetTier writes the tier of uid on the given logical day.
func (s *Store) SetTier(uid, day int, t models.Tier) {
	s.Tiers[s.idx(uid, day)] = t
}

// GetTierCol returns the full tier column for a logical day.
func (s *Store) GetTierCol(day int) []models.Tier {
	out := make([]models.Tier, s.M)
	pd := s.physicalDay(day)
	for uid := 0; uid < s.M; uid++ {
		out[uid] = s.Tiers[uid*s.D+pd]
	}
	return out
}

// SetTierCol writes a full tier column for a logical day.
func (s *Store) SetTierCol(day int, values []models.Tier) {
	pd := s.physicalDay(day)
	for uid := 0; uid < s.M; uid++ {
		s.Tiers[uid*s.D+pd] = values[uid]
	}
}

// AdvanceDay implements spec.md §4.A: if LastUpdateDate is unset, record
// today and return without advancing. Otherwise compute the elapsed whole
// days; if none have passed, do nothing. Else move CurrentDay forward by
// that many days (mod D), zero the new day's amount-wagered column, carry
// the tier column forward from the previous day, and for any intermediate
// downtime days carry raw metrics, composites, and tiers forward so no
// day in the window is left stale.
func (s *Store) AdvanceDay(today time.Time) {
	if s.LastUpdateDate == nil {
		t := today
		s.LastUpdateDate = &t
		return
	}

	delta := daysBetween(*s.LastUpdateDate, today)
	if delta <= 0 {
		return
	}

	oldDay := s.CurrentDay
	for i := 1; i <= delta; i++ {
		prevDay := oldDay + i - 1
		newDay := oldDay + i
		s.carryDayForward(prevDay, newDay)
	}

	s.CurrentDay = s.physicalDay(oldDay + delta)
	t := today
	s.LastUpdateDate = &t

	// Zero the wager column on the freshly-advanced day — every other
	// array was already carried forward by carryDayForward.
	newPd := s.physicalDay(oldDay + delta)
	for uid := 0; uid < s.M; uid++ {
		s.AmountWagered[uid*s.D+newPd] = 0
	}
}

// carryDayForward copies raw metrics, composite scores, and tiers from
// prevDay into newDay (both logical day indices), implementing the
// "downtime carry-forward" behavior of spec.md §4.A.
func (s *Store) carryDayForward(prevDay, newDay int) {
	prevPd := s.physicalDay(prevDay)
	newPd := s.physicalDay(newDay)
	if prevPd == newPd {
		return
	}
	for uid := 0; uid < s.M; uid++ {
		pi := uid*s.D + prevPd
		ni := uid*s.D + newPd
		s.CLV[ni] = s.CLV[pi]
		s.ROI[ni] = s.ROI[pi]
		s.Sortino[ni] = s.Sortino[pi]
		s.Entropy[ni] = s.Entropy[pi]
		s.AmountWagered[ni] = s.AmountWagered[pi]
		s.Tiers[ni] = s.Tiers[pi]
		for slot := 0; slot < 6; slot++ {
			s.Composite[ni*6+slot] = s.Composite[pi*6+slot]
		}
	}
}

func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// CumulativeWager sums AmountWagered[uid, d] over the most recent window
// days ending at (and including) the given logical day, wrapping around
// the circular buffer as needed (spec.md §4.E). A window longer than D is
// clamped to D, so each stored day is counted at most once.
func (s *Store) CumulativeWager(uid, day, window int) float64 {
	if window <= 0 {
		return 0
	}
	if window > s.D {
		window = s.D
	}
	total := 0.0
	for i := 0; i < window; i++ {
		total += s.Get(s.AmountWagered, uid, day-i)
	}
	return total
}

// RollingComposite computes the mean of Composite[uid, ., 0] over the most
// recent window days ending at (and including) day, wrapping the circular
// buffer (spec.md §4.D). A window longer than D is clamped to D, so each
// stored day is counted at most once.
func (s *Store) RollingComposite(uid, day, window int) float64 {
	if window <= 0 {
		return 0
	}
	if window > s.D {
		window = s.D
	}
	total := 0.0
	for i := 0; i < window; i++ {
		total += s.GetComposite(uid, day-i, 0)
	}
	return total / float64(window)
}
