package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bettensor-sim/reputation-engine/internal/entropy"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

func TestEntropyStore_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entropy.json")
	s := NewEntropyStore(path)

	e := entropy.New()
	e.AddNewGame(1, []float64{2.0, 3.5, 0})
	e.AddPrediction(1, 0, entropy.PoolEntry{MinerUID: 0, Odds: 2.0, Wager: 100, Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	if err := s.Save(e); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	restored := entropy.New()
	s.Load(restored)

	before := e.Snapshot()
	after := restored.Snapshot()

	if len(after.Pools) != len(before.Pools) {
		t.Fatalf("expected %d pools restored, got %d", len(before.Pools), len(after.Pools))
	}
	if len(after.Pools[1][0].Predictions) != 1 {
		t.Fatalf("expected 1 prediction restored in game 1 outcome 0, got %d", len(after.Pools[1][0].Predictions))
	}
}

func TestEntropyStore_LoadMissingFileLeavesEngineFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.json")
	s := NewEntropyStore(path)

	e := entropy.New()
	s.Load(e)

	scores := e.GetCurrentEBDRScores(3, nil, time.Now())
	for uid, v := range scores {
		if v != 0 {
			t.Fatalf("uid %d: expected fresh engine with zero scores, got %v", uid, v)
		}
	}
}

func TestUIDJSONRoundTrip(t *testing.T) {
	orig := []models.UID{1, 2, 3}
	restored := uidsFromJSON(uidsToJSON(orig))
	if len(restored) != len(orig) {
		t.Fatalf("expected %d uids, got %d", len(orig), len(restored))
	}
	for i := range orig {
		if restored[i] != orig[i] {
			t.Fatalf("index %d: expected %v, got %v", i, orig[i], restored[i])
		}
	}
}

func TestUIDJSONRoundTrip_EmptyIsNil(t *testing.T) {
	if got := uidsFromJSON(uidsToJSON(nil)); len(got) != 0 {
		t.Fatalf("expected empty round trip, got %v", got)
	}
}
