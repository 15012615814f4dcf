package feed

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

// MemoryFeed is an in-memory GameFeed test double, keyed by the UTC
// midnight of the requested date.
type MemoryFeed struct {
	batches map[time.Time]batch
}

type batch struct {
	id          string
	predictions []models.PredictionRow
	closingOdds []models.ClosingOddsRow
	results     []models.Result
}

// NewMemoryFeed returns an empty MemoryFeed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{batches: make(map[time.Time]batch)}
}

// Stage registers the batch to be returned for the given date's FetchBatch
// call, tagging it with a fresh batch ID for ingestion log correlation.
func (f *MemoryFeed) Stage(date time.Time, predictions []models.PredictionRow, closingOdds []models.ClosingOddsRow, results []models.Result) {
	id := uuid.New().String()
	f.batches[dayKey(date)] = batch{id: id, predictions: predictions, closingOdds: closingOdds, results: results}
	log.Printf("[feed] staged batch %s for %s: %d predictions, %d games, %d results", id, dayKey(date).Format("2006-01-02"), len(predictions), len(closingOdds), len(results))
}

// FetchBatch implements GameFeed.
func (f *MemoryFeed) FetchBatch(_ context.Context, date time.Time) ([]models.PredictionRow, []models.ClosingOddsRow, []models.Result, error) {
	b, ok := f.batches[dayKey(date)]
	if !ok {
		return nil, nil, nil, nil
	}
	return b.predictions, b.closingOdds, b.results, nil
}

func dayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
