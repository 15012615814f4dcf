// Package scheduler drives the scoring engine's recurring jobs: the
// daily-equivalent scoring tick, the game-data refresh that feeds it, and
// weight emission to the chain reporter. Grounded on the teacher's
// ticker-plus-context.Done loop in internal/mempool/poller.go and
// internal/scanner/block_scanner.go, with per-operation-class
// singleflight guards modeled on neurons/validator.py's
// asyncio.Semaphore(1)-per-job-class pattern.
package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bettensor-sim/reputation-engine/internal/chain"
	"github.com/bettensor-sim/reputation-engine/internal/feed"
	"github.com/bettensor-sim/reputation-engine/internal/obsmetrics"
	"github.com/bettensor-sim/reputation-engine/internal/scoring"
	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

const (
	tickJob    = "tick"
	publishJob = "publish"

	tickTimeout    = 30 * time.Second
	publishTimeout = 10 * time.Second

	statusInterval = 30 * time.Second
)

// Broadcaster is the subset of *api.Hub the scheduler needs to push
// tick/tier events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Scheduler owns the Engine and drives its tick loop on a fixed interval,
// optionally publishing results to a ChainReporter and broadcasting
// tier/weight events over a websocket hub.
type Scheduler struct {
	Engine *scoring.Engine
	Feed   feed.GameFeed
	Chain  chain.ChainReporter
	Hub    Broadcaster

	interval time.Duration
	group    singleflight.Group

	lastTick time.Time
	nextTick time.Time

	// ValidUIDs/InvalidUIDs are supplied by the caller out-of-band (the
	// real network-membership source is out of scope here) and read
	// fresh on every tick.
	ValidUIDs   []models.UID
	InvalidUIDs []models.UID
}

// New builds a Scheduler that ticks the engine every interval.
func New(engine *scoring.Engine, gf feed.GameFeed, cr chain.ChainReporter, hub Broadcaster, interval time.Duration) *Scheduler {
	return &Scheduler{
		Engine:   engine,
		Feed:     gf,
		Chain:    cr,
		Hub:      hub,
		interval: interval,
	}
}

// Run blocks, driving the tick loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[scheduler] starting, tick interval %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()

	s.nextTick = time.Now().Add(s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[scheduler] stopping")
			return
		case <-statusTicker.C:
			s.logStatus()
		case now := <-ticker.C:
			s.nextTick = now.Add(s.interval)
			s.runTick(ctx, now)
		}
	}
}

// runTick executes one scoring tick, guarded by singleflight so a slow
// previous tick can never overlap with the next ticker fire.
func (s *Scheduler) runTick(ctx context.Context, now time.Time) {
	runID := uuid.New().String()
	_, _, _ = s.group.Do(tickJob, func() (interface{}, error) {
		tctx, cancel := context.WithTimeout(ctx, tickTimeout)
		defer cancel()

		start := time.Now()
		out, err := s.tick(tctx, now)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			obsmetrics.ObserveTick(elapsed, "error")
			log.Printf("[scheduler] tick %s failed: %v", runID, err)
			return nil, err
		}

		obsmetrics.ObserveTick(elapsed, "ok")
		log.Printf("[scheduler] tick %s completed for day %d in %.3fs", runID, out.Day, elapsed)
		s.lastTick = now
		s.publish(ctx, out)
		return out, nil
	})
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) (models.TickOutput, error) {
	predictions, closingOdds, results, err := s.Feed.FetchBatch(ctx, now)
	if err != nil {
		return models.TickOutput{}, err
	}

	tierBefore := s.Engine.Store.GetTierCol(s.Engine.Store.CurrentDay)

	in := models.TickInput{
		Date:        now,
		ValidUIDs:   s.ValidUIDs,
		InvalidUIDs: s.InvalidUIDs,
		Predictions: predictions,
		ClosingOdds: closingOdds,
		Results:     results,
	}

	out, err := s.Engine.Tick(in)
	if err != nil {
		return models.TickOutput{}, err
	}

	tierAfter := s.Engine.Store.GetTierCol(out.Day)

	obsmetrics.SetWeightSum(out.Weights)
	tierOf := make([]int, len(tierAfter))
	for i, t := range tierAfter {
		tierOf[i] = int(t)
	}
	obsmetrics.SetTierPopulation(tierOf)

	s.broadcastWeights(out)
	s.broadcastTierChanges(tierBefore, tierAfter)
	return out, nil
}

// publish hands the freshly synthesized weight vector to the chain
// reporter, guarded by its own singleflight key so a slow publish of one
// tick's weights can't pile up behind another.
func (s *Scheduler) publish(ctx context.Context, out models.TickOutput) {
	if s.Chain == nil {
		return
	}
	_, _, _ = s.group.Do(publishJob, func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := s.Chain.PublishWeights(pctx, out.Weights); err != nil {
			log.Printf("[scheduler] publish failed: %v", err)
			return nil, err
		}
		return nil, nil
	})
}

func (s *Scheduler) broadcastWeights(out models.TickOutput) {
	if s.Hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":    "weights_updated",
		"day":     out.Day,
		"date":    out.Date,
		"weights": out.Weights,
	})
	if err != nil {
		log.Printf("[scheduler] failed to marshal weights_updated payload: %v", err)
		return
	}
	s.Hub.Broadcast(payload)
}

// broadcastTierChanges diffs the tier column before and after a tick and
// emits a tier_promotion or tier_demotion event per UID whose tier moved.
// A swap (one miner up, another down within the same pass) surfaces as one
// promotion and one demotion event rather than a single combined event.
func (s *Scheduler) broadcastTierChanges(before, after []models.Tier) {
	if s.Hub == nil {
		return
	}
	for uid := 0; uid < len(after) && uid < len(before); uid++ {
		if after[uid] == before[uid] {
			continue
		}
		eventType := "tier_demotion"
		if after[uid] > before[uid] {
			eventType = "tier_promotion"
		}
		payload, err := json.Marshal(map[string]interface{}{
			"type":     eventType,
			"uid":      uid,
			"fromTier": int(before[uid]),
			"toTier":   int(after[uid]),
		})
		if err != nil {
			log.Printf("[scheduler] failed to marshal %s payload: %v", eventType, err)
			continue
		}
		s.Hub.Broadcast(payload)
	}
}

func (s *Scheduler) logStatus() {
	until := time.Until(s.nextTick).Round(time.Second)
	log.Printf("[scheduler] status: last tick %s ago, next tick in %s",
		sinceOrNever(s.lastTick), until)
}

func sinceOrNever(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Round(time.Second).String()
}
