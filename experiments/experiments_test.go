package experiments

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lineup/experiments/metrics"
	"lineup/roster"
)

func catalog(t *testing.T) *roster.Catalog {
	t.Helper()
	c, err := roster.NewCatalog([]roster.Player{
		{Name: "Guard", Salary: 3000, Score: 20, Positions: []string{"PG"}},
		{Name: "Wing", Salary: 5000, Score: 30, Positions: []string{"SG", "SF"}},
		{Name: "Big", Salary: 9000, Score: 50, Positions: []string{"C"}},
		{Name: "Forward", Salary: 4000, Score: 25, Positions: []string{"PF"}},
		{Name: "Combo", Salary: 6000, Score: 33, Positions: []string{"PG", "SF"}},
	}, roster.BasketballRules())
	require.NoError(t, err)
	return c
}

const sweepYAML = `
name: exploration
budget: 14000
slots: [G, F, UTIL]
repeats: 2
concurrency: 3
seed: 17
grid:
  exploration: [1, 30]
  simulations: [200]
  policies: [ucb1, uniform]
  updates: [mean, max]
`

func writeSweep(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSweep(t *testing.T) {
	t.Run("grid expands into configs", func(t *testing.T) {
		sweep, err := LoadSweep(writeSweep(t, sweepYAML))

		require.NoError(t, err)
		require.Equal(t, "exploration", sweep.Name)
		require.Equal(t, []string{"G", "F", "UTIL"}, sweep.Slots)
		require.Nil(t, sweep.Grid, "Grid should be replaced by its configs")
		require.Len(t, sweep.Configs, 8)
		require.Equal(t, metrics.RunConfig{ID: 1, Exploration: 1, Simulations: 200, Policy: "ucb1", Update: "mean"}, sweep.Configs[0])
		require.Equal(t, metrics.RunConfig{ID: 8, Exploration: 30, Simulations: 200, Policy: "uniform", Update: "max"}, sweep.Configs[7])
	})

	t.Run("explicit configs get defaults", func(t *testing.T) {
		sweep, err := LoadSweep(writeSweep(t, "configs:\n  - exploration: 2\n    duration: 50ms\n"))

		require.NoError(t, err)
		require.Equal(t, 50000.0, *sweep.Budget)
		require.Len(t, sweep.Slots, 8)
		require.Equal(t, 1, sweep.Repeats)
		require.Positive(t, sweep.Concurrency)
		require.NotZero(t, sweep.Seed)
		require.Equal(t, metrics.RunConfig{ID: 1, Exploration: 2, Policy: "ucb1", Update: "mean", Duration: 50 * time.Millisecond}, sweep.Configs[0])
	})

	t.Run("invalid sweeps", func(t *testing.T) {
		for name, content := range map[string]string{
			"no configs":       "name: empty\n",
			"unknown policy":   "configs:\n  - simulations: 10\n    policy: greedy\n",
			"unknown update":   "configs:\n  - simulations: 10\n    update: median\n",
			"unbounded config": "configs:\n  - exploration: 1\n",
			"malformed yaml":   "configs: [\n",
		} {
			_, err := LoadSweep(writeSweep(t, content))
			require.Error(t, err, name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSweep(filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRun(t *testing.T) {
	sweep, err := LoadSweep(writeSweep(t, sweepYAML))
	require.NoError(t, err)

	result, err := Run(context.Background(), catalog(t), sweep)

	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Len(t, result.Records, 16, "8 configs x 2 repeats")
	seeds := map[uint64]bool{}
	for i, record := range result.Records {
		require.Equal(t, int64(i/2+1), record.Config, "Records should be ordered by config")
		require.Equal(t, int64(i%2), record.Repeat)
		require.Equal(t, result.ID, record.Sweep)
		require.True(t, record.Feasible)
		require.Equal(t, int64(200), record.Episodes)
		require.Positive(t, record.Nodes)
		require.LessOrEqual(t, record.BestSalary, 14000.0)
		require.Positive(t, record.BestValue)
		require.LessOrEqual(t, record.BestValue, 83.0, "Guard, Wing and Combo is the best lineup")
		require.NotEmpty(t, record.Lineup)
		seeds[record.Seed] = true
	}
	require.Len(t, seeds, 16, "Every run should have its own seed")
}

func TestRunDeterminism(t *testing.T) {
	run := func() []metrics.RunRecord {
		sweep, err := LoadSweep(writeSweep(t, sweepYAML))
		require.NoError(t, err)
		result, err := Run(context.Background(), catalog(t), sweep)
		require.NoError(t, err)
		return result.Records
	}

	first, second := run(), run()

	for i := range first {
		require.Equal(t, first[i].Seed, second[i].Seed)
		require.Equal(t, first[i].Lineup, second[i].Lineup)
		require.Equal(t, first[i].Nodes, second[i].Nodes)
	}
}

func TestRunInfeasible(t *testing.T) {
	t.Run("no affordable player", func(t *testing.T) {
		budget := 100.0
		sweep := &Sweep{Budget: &budget, Slots: []string{"C"}, Configs: []metrics.RunConfig{{Simulations: 10}}}
		require.NoError(t, sweep.Prepare())

		result, err := Run(context.Background(), catalog(t), sweep)

		require.NoError(t, err, "An infeasible slate is a result, not a failure")
		require.Len(t, result.Records, 1)
		require.False(t, result.Records[0].Feasible)
	})

	t.Run("explicit zero budget is kept", func(t *testing.T) {
		budget := 0.0
		sweep := &Sweep{Budget: &budget, Slots: []string{"G"}, Configs: []metrics.RunConfig{{Simulations: 10}}}
		require.NoError(t, sweep.Prepare())
		require.Equal(t, 0.0, *sweep.Budget, "Zero is a budget, not a missing one")

		result, err := Run(context.Background(), catalog(t), sweep)

		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		require.False(t, result.Records[0].Feasible)
		require.Empty(t, result.Records[0].Lineup)
	})

	t.Run("zero budget from yaml", func(t *testing.T) {
		sweep, err := LoadSweep(writeSweep(t, "budget: 0\nslots: [G]\nconfigs:\n  - simulations: 10\n"))
		require.NoError(t, err)
		require.Equal(t, 0.0, *sweep.Budget)

		result, err := Run(context.Background(), catalog(t), sweep)

		require.NoError(t, err)
		require.False(t, result.Records[0].Feasible)
	})
}

func TestRunExperiment(t *testing.T) {
	sweep, err := LoadSweep(writeSweep(t, sweepYAML))
	require.NoError(t, err)
	root := t.TempDir()

	dir, err := RunExperiment(context.Background(), catalog(t), sweep, root)

	require.NoError(t, err)
	for _, name := range []string{"setup.yaml", "run_configs.csv", "runs.csv", "runs.parquet"} {
		require.FileExists(t, filepath.Join(dir, name))
	}

	stored, err := LoadSweep(filepath.Join(dir, "setup.yaml"))
	require.NoError(t, err, "Stored setup should load back as a sweep")
	require.Equal(t, sweep.Configs, stored.Configs)
	require.Equal(t, sweep.Seed, stored.Seed)
}

func TestThroughputSweep(t *testing.T) {
	sweep := ThroughputSweep(5*time.Millisecond, 1)
	budget := 14000.0
	sweep.Budget = &budget
	sweep.Slots = []string{"G", "F", "UTIL"}
	require.NoError(t, sweep.Prepare())
	require.Len(t, sweep.Configs, 6)

	result, err := Run(context.Background(), catalog(t), sweep)

	require.NoError(t, err)
	for _, record := range result.Records {
		require.True(t, record.Feasible)
		require.Equal(t, int64(0), record.Simulations, "Throughput runs are bounded by duration only")
		require.Positive(t, record.Episodes)
	}
}
