// Package persistence holds the two state-saving collaborators: ScoreStore,
// a pgx-backed transactional writer for the scoring-state row and the full
// scores table, and EntropyStore, a best-effort JSON snapshot for the
// entropy engine's in-memory pools.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bettensor-sim/reputation-engine/internal/store"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS score_state (
	state_id         SERIAL PRIMARY KEY,
	current_day      INT NOT NULL,
	current_date     TIMESTAMPTZ,
	last_update_date TIMESTAMPTZ,
	invalid_uids     JSONB NOT NULL DEFAULT '[]',
	valid_uids       JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS scores (
	miner_uid        INT NOT NULL,
	day_id           INT NOT NULL,
	score_type       TEXT NOT NULL,
	clv_score        DOUBLE PRECISION,
	roi_score        DOUBLE PRECISION,
	entropy_score    DOUBLE PRECISION,
	composite_score  DOUBLE PRECISION,
	sortino_score    DOUBLE PRECISION,
	tier             INT,
	PRIMARY KEY (miner_uid, day_id, score_type)
);
`

// tierScoreType maps composite slots 1..5 (T1..T5) to the score_type label
// the 'daily' row's sibling rows use for each tier's rolling average.
var tierScoreType = map[int]string{
	1: "tier_1",
	2: "tier_2",
	3: "tier_3",
	4: "tier_4",
	5: "tier_5",
}

// ScoreStore persists scoring-engine state to Postgres.
type ScoreStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and pings it.
func Connect(ctx context.Context, connStr string) (*ScoreStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	log.Println("[persistence] connected to postgres")
	return &ScoreStore{pool: pool}, nil
}

// Close releases the pool.
func (s *ScoreStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates score_state and scores if they do not already exist.
func (s *ScoreStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	log.Println("[persistence] schema initialized")
	return nil
}

// SaveTick persists one day's full state: the scoring-state row (current
// day, dates, UID partitions) and every miner's score row for that day, all
// within a single transaction.
func (s *ScoreStore) SaveTick(ctx context.Context, st *store.Store, date time.Time, invalidUIDs, validUIDs []models.UID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lastUpdate *time.Time
	if st.LastUpdateDate != nil {
		lastUpdate = st.LastUpdateDate
	}

	insertState := `
		INSERT INTO score_state (current_day, current_date, last_update_date, invalid_uids, valid_uids)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, insertState, st.CurrentDay, date, lastUpdate, uidsToJSON(invalidUIDs), uidsToJSON(validUIDs)); err != nil {
		return fmt.Errorf("insert score_state: %w", err)
	}

	upsertScore := `
		INSERT INTO scores (miner_uid, day_id, score_type, clv_score, roi_score, entropy_score, composite_score, sortino_score, tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (miner_uid, day_id, score_type) DO UPDATE SET
			clv_score = EXCLUDED.clv_score,
			roi_score = EXCLUDED.roi_score,
			entropy_score = EXCLUDED.entropy_score,
			composite_score = EXCLUDED.composite_score,
			sortino_score = EXCLUDED.sortino_score,
			tier = EXCLUDED.tier
	`

	day := st.CurrentDay
	for uid := 0; uid < st.M; uid++ {
		tier := int(st.GetTier(uid, day))
		_, err := tx.Exec(ctx, upsertScore,
			uid, day, "daily",
			st.Get(st.CLV, uid, day),
			st.Get(st.ROI, uid, day),
			st.Get(st.Entropy, uid, day),
			st.GetComposite(uid, day, 0),
			st.Get(st.Sortino, uid, day),
			tier,
		)
		if err != nil {
			return fmt.Errorf("upsert daily score for miner %d: %w", uid, err)
		}

		for slot, scoreType := range tierScoreType {
			_, err := tx.Exec(ctx, upsertScore,
				uid, day, scoreType,
				nil, nil, nil,
				st.GetComposite(uid, day, slot),
				nil,
				tier,
			)
			if err != nil {
				return fmt.Errorf("upsert %s score for miner %d: %w", scoreType, uid, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// LoadLatest restores the most recent score_state row and every persisted
// score row into st. Returns (false, nil) when no state exists yet, which
// callers should treat as "start fresh", matching the source system's
// behavior on an empty database.
func (s *ScoreStore) LoadLatest(ctx context.Context, st *store.Store) (bool, []models.UID, []models.UID, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT current_day, last_update_date, invalid_uids, valid_uids
		FROM score_state
		ORDER BY state_id DESC
		LIMIT 1
	`)

	var currentDay int
	var lastUpdate *time.Time
	var invalidJSON, validJSON []byte
	if err := row.Scan(&currentDay, &lastUpdate, &invalidJSON, &validJSON); err != nil {
		log.Printf("[persistence] no prior state found, starting fresh: %v", err)
		return false, nil, nil, nil
	}

	st.CurrentDay = currentDay
	st.LastUpdateDate = lastUpdate
	invalidUIDs := uidsFromJSON(invalidJSON)
	validUIDs := uidsFromJSON(validJSON)

	rows, err := s.pool.Query(ctx, `
		SELECT miner_uid, day_id, score_type, clv_score, roi_score, entropy_score, composite_score, sortino_score, tier
		FROM scores
	`)
	if err != nil {
		return false, nil, nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid, day, tier int
		var scoreType string
		var clv, roi, entropy, composite, sortino *float64
		if err := rows.Scan(&uid, &day, &scoreType, &clv, &roi, &entropy, &composite, &sortino, &tier); err != nil {
			return false, nil, nil, fmt.Errorf("scan score row: %w", err)
		}
		if uid < 0 || uid >= st.M {
			continue
		}

		st.SetTier(uid, day, models.Tier(tier))
		if scoreType == "daily" {
			st.Set(st.CLV, uid, day, deref(clv))
			st.Set(st.ROI, uid, day, deref(roi))
			st.Set(st.Entropy, uid, day, deref(entropy))
			st.Set(st.Sortino, uid, day, deref(sortino))
			st.SetComposite(uid, day, 0, deref(composite))
			continue
		}
		for slot, label := range tierScoreType {
			if label == scoreType {
				st.SetComposite(uid, day, slot, deref(composite))
			}
		}
	}

	return true, invalidUIDs, validUIDs, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func uidsToJSON(uids []models.UID) []byte {
	ints := make([]int, len(uids))
	for i, u := range uids {
		ints[i] = int(u)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return []byte("[]")
	}
	return b
}

func uidsFromJSON(b []byte) []models.UID {
	if len(b) == 0 {
		return nil
	}
	var ints []int
	if err := json.Unmarshal(b, &ints); err != nil {
		return nil
	}
	uids := make([]models.UID, len(ints))
	for i, v := range ints {
		uids[i] = models.UID(v)
	}
	return uids
}
