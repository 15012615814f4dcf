package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/bettensor-sim/reputation-engine/internal/entropy"
)

// EntropyStore persists an entropy.Engine's pools to a JSON file,
// independent of the Postgres-backed ScoreStore.
type EntropyStore struct {
	path string
}

// NewEntropyStore returns a store that reads and writes the given file path.
func NewEntropyStore(path string) *EntropyStore {
	return &EntropyStore{path: path}
}

// Save writes the engine's current snapshot to disk, overwriting any
// previous file.
func (s *EntropyStore) Save(e *entropy.Engine) error {
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal entropy snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write entropy snapshot: %w", err)
	}
	return nil
}

// Load restores e from disk. A missing or unreadable file is not an error —
// the engine is left at its fresh (empty) state and a warning is logged, so
// callers never need to special-case first-run.
func (s *EntropyStore) Load(e *entropy.Engine) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		log.Printf("[persistence] no entropy snapshot found at %s, starting fresh: %v", s.path, err)
		return
	}

	var snap entropy.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[persistence] entropy snapshot at %s is corrupt, starting fresh: %v", s.path, err)
		return
	}

	e.Restore(snap)
}
