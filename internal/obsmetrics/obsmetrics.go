// Package obsmetrics exposes the reputation engine's Prometheus metrics:
//   - reputation_tick_duration_seconds        – tick latency histogram
//   - reputation_tick_total{result}           – ticks by result (ok|error|skipped)
//   - reputation_weight_sum                   – sum of the last published weight vector
//   - reputation_tier_population{tier}        – miner count per tier after the last tick
//   - reputation_miners_reset_total           – count of ResetMiner calls
//
// These are registered in init() and served over HTTP at /metrics in the
// Prometheus text exposition format.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reputation_tick_duration_seconds",
			Help:    "Duration of a full scoring tick.",
			Buckets: prometheus.DefBuckets,
		},
	)

	TickTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_tick_total",
			Help: "Ticks processed, by result.",
		},
		[]string{"result"}, // ok|error|skipped
	)

	WeightSum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reputation_weight_sum",
			Help: "Sum of the most recently synthesized weight vector.",
		},
	)

	TierPopulation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reputation_tier_population",
			Help: "Number of miners occupying each tier after the last tick.",
		},
		[]string{"tier"},
	)

	MinersReset = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reputation_miners_reset_total",
			Help: "Number of ResetMiner calls served.",
		},
	)
)

func init() {
	prometheus.MustRegister(TickDuration, TickTotal, WeightSum, TierPopulation, MinersReset)
}

var tierNames = map[int]string{
	0: "empty",
	1: "invalid",
	2: "t1",
	3: "t2",
	4: "t3",
	5: "t4",
	6: "t5",
}

// ObserveTick records a tick's duration and outcome.
func ObserveTick(seconds float64, result string) {
	TickDuration.Observe(seconds)
	TickTotal.WithLabelValues(result).Inc()
}

// SetWeightSum reports the sum of a freshly synthesized weight vector.
func SetWeightSum(weights []float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	WeightSum.Set(total)
}

// SetTierPopulation reports the per-tier miner counts from a tier column,
// where tierOf[uid] is a models.Tier value cast to int.
func SetTierPopulation(tierOf []int) {
	counts := make(map[int]int, len(tierNames))
	for _, t := range tierOf {
		counts[t]++
	}
	for t, name := range tierNames {
		TierPopulation.WithLabelValues(name).Set(float64(counts[t]))
	}
}

// IncMinersReset records a served ResetMiner call.
func IncMinersReset() {
	MinersReset.Inc()
}
