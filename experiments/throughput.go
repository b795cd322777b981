package experiments

import (
	"time"

	"lineup/experiments/metrics"
	"lineup/searcher"
)

// ThroughputSweep measures how many simulations each selection regime completes in a
// fixed time, with and without dedupe.
func ThroughputSweep(duration time.Duration, repeats int) *Sweep {
	if duration <= 0 {
		duration = 10 * time.Millisecond
	}

	configs := []metrics.RunConfig{}
	for _, dedupe := range []bool{false, true} {
		configs = append(configs,
			metrics.RunConfig{Policy: searcher.UCB1.String(), Update: searcher.MeanUpdate.String(), Dedupe: dedupe},
			metrics.RunConfig{Policy: searcher.UCBTuned.String(), Update: searcher.MeanUpdate.String(), Dedupe: dedupe},
			metrics.RunConfig{Policy: searcher.Uniform.String(), Update: searcher.MaxUpdate.String(), Dedupe: dedupe},
		)
	}
	for i := range configs {
		configs[i].Exploration = 100
		configs[i].Duration = duration
	}

	return &Sweep{
		Name:        "throughput",
		Repeats:     repeats,
		Concurrency: 1,
		Configs:     configs,
	}
}
