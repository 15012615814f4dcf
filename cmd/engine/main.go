package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/bettensor-sim/reputation-engine/internal/api"
	"github.com/bettensor-sim/reputation-engine/internal/chain"
	"github.com/bettensor-sim/reputation-engine/internal/feed"
	"github.com/bettensor-sim/reputation-engine/internal/persistence"
	"github.com/bettensor-sim/reputation-engine/internal/scheduler"
	"github.com/bettensor-sim/reputation-engine/internal/scoring"
)

func main() {
	log.Println("Starting Reputation Engine (prediction-market scoring service)...")
	log.Println("Initializing circular buffer store and entropy engine...")

	// ─── Environment Variables ──────────────────────────────────────────
	// All configuration comes from environment variables; none is required.
	// Security-sensitive values (DATABASE_URL, API_AUTH_TOKEN) have no
	// fallback defaults.
	// ────────────────────────────────────────────────────────────────────

	m := getEnvIntOrDefault("REPUTATION_NUM_MINERS", 256)
	d := getEnvIntOrDefault("REPUTATION_WINDOW_DAYS", 45)

	engine := scoring.New(m, d)

	dbURL := os.Getenv("DATABASE_URL")
	var scoreStore *persistence.ScoreStore
	if dbURL == "" {
		log.Println("Warning: DATABASE_URL not set, continuing without persisting scoring state")
	} else {
		var err error
		scoreStore, err = persistence.Connect(context.Background(), dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting scoring state. Error: %v", err)
		} else {
			defer scoreStore.Close()
			if err := scoreStore.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: schema init failed: %v", err)
			}
			found, invalidUIDs, validUIDs, err := scoreStore.LoadLatest(context.Background(), engine.Store)
			if err != nil {
				log.Printf("Warning: failed to load prior scoring state: %v", err)
			} else if found {
				log.Printf("Restored scoring state: day %d, %d valid, %d invalid", engine.Store.CurrentDay, len(validUIDs), len(invalidUIDs))
			}
		}
	}

	entropyPath := getEnvOrDefault("REPUTATION_ENTROPY_SNAPSHOT", "entropy_state.json")
	entropyStore := persistence.NewEntropyStore(entropyPath)
	entropyStore.Load(engine.Entropy)

	// Setup WebSocket Hub
	wsHub := api.NewHub()
	go wsHub.Run()

	// GameFeed and ChainReporter are out-of-scope collaborators; a real
	// deployment wires HTTP/WebSocket ingestion and an on-chain client here.
	// Both default to in-memory test doubles so the engine still runs.
	gameFeed := feed.NewMemoryFeed()
	chainReporter := chain.NewMemoryReporter()
	log.Println("WARNING: running with in-memory GameFeed/ChainReporter — no live game data or chain publication")

	tickInterval := getEnvDurationOrDefault("REPUTATION_TICK_INTERVAL", 24*time.Hour)
	sched := scheduler.New(engine, gameFeed, chainReporter, wsHub, tickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	if scoreStore != nil {
		go persistOnInterval(ctx, scoreStore, sched, entropyStore)
	}

	rl := api.NewRateLimiter(60, 30)
	r := api.SetupRouter(engine, wsHub, rl)

	port := getEnvOrDefault("PORT", "8080")
	log.Printf("Engine running on :%s (%d miners, %d-day window)\n", port, m, d)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// persistOnInterval saves the scoring-state row, the current day's score
// rows, and the entropy snapshot every five minutes. Losing at most one
// interval's worth of state on a crash is acceptable; the engine recomputes
// forward from the last committed tick.
func persistOnInterval(ctx context.Context, scoreStore *persistence.ScoreStore, sched *scheduler.Scheduler, entropyStore *persistence.EntropyStore) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	engine := sched.Engine
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			date := time.Now()
			if engine.Store.LastUpdateDate != nil {
				date = *engine.Store.LastUpdateDate
			}
			if err := scoreStore.SaveTick(ctx, engine.Store, date, sched.InvalidUIDs, sched.ValidUIDs); err != nil {
				log.Printf("Warning: failed to persist scoring state: %v", err)
			}
			if err := entropyStore.Save(engine.Entropy); err != nil {
				log.Printf("Warning: failed to persist entropy snapshot: %v", err)
			}
		}
	}
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using default %s", key, val, fallback)
		return fallback
	}
	return d
}
