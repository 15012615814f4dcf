// Package chain declares the boundary between the scoring engine and
// whatever publishes weight vectors to the network. A live chain client is
// out of scope here; only the interface and an in-memory test double live
// in this module.
package chain

import "context"

// ChainReporter publishes a finalized weight vector (indexed by UID).
type ChainReporter interface {
	PublishWeights(ctx context.Context, weights []float64) error
}

// MemoryReporter is an in-memory ChainReporter test double that records
// every call it receives.
type MemoryReporter struct {
	Published [][]float64
}

// NewMemoryReporter returns an empty MemoryReporter.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{}
}

// PublishWeights implements ChainReporter.
func (r *MemoryReporter) PublishWeights(_ context.Context, weights []float64) error {
	cp := make([]float64, len(weights))
	copy(cp, weights)
	r.Published = append(r.Published, cp)
	return nil
}
