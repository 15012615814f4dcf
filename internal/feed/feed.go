// Package feed declares the boundary between the scoring engine and
// whatever ingests game data (predictions, closing lines, results) from the
// outside world. The engine only ever talks to this interface — live
// HTTP/WebSocket ingestion is out of scope here and left to the caller.
package feed

import (
	"context"
	"time"

	"github.com/bettensor-sim/reputation-engine/pkg/models"
)

// GameFeed fetches one day's settled batch of predictions, the closing-line
// odds table, and game results.
type GameFeed interface {
	FetchBatch(ctx context.Context, date time.Time) (predictions []models.PredictionRow, closingOdds []models.ClosingOddsRow, results []models.Result, err error)
}
