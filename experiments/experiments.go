package experiments

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"lineup/experiments/metrics"
	"lineup/meta"
	"lineup/roster"
	"lineup/searcher"
)

// Sweep is a grid of search configurations run against one catalog.
type Sweep struct {
	Name        string              `yaml:"name"`
	Budget      *float64            `yaml:"budget,omitempty"` // Unset uses meta.BUDGET
	Slots       []string            `yaml:"slots"`
	Repeats     int                 `yaml:"repeats"`     // Runs per config, each with its own seed
	Concurrency int                 `yaml:"concurrency"` // Trees searched at once
	Seed        uint64              `yaml:"seed"`        // Base seed, 0 picks one from the clock
	Grid        *Grid               `yaml:"grid,omitempty"`
	Configs     []metrics.RunConfig `yaml:"configs,omitempty"`
}

// Grid expands into the cartesian product of its values.
type Grid struct {
	Exploration []float64 `yaml:"exploration"`
	Simulations []int     `yaml:"simulations"`
	Policies    []string  `yaml:"policies"`
	Updates     []string  `yaml:"updates"`
	Dedupe      []bool    `yaml:"dedupe"`
}

// Result holds every record of one sweep.
type Result struct {
	ID      string
	Records []metrics.RunRecord
}

// LoadSweep reads a sweep definition from a YAML file.
func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep: %w", err)
	}

	var sweep Sweep
	if err := yaml.Unmarshal(data, &sweep); err != nil {
		return nil, fmt.Errorf("failed to parse sweep %s: %w", path, err)
	}
	if err := sweep.Prepare(); err != nil {
		return nil, fmt.Errorf("invalid sweep %s: %w", path, err)
	}
	return &sweep, nil
}

// Prepare fills defaults, expands the grid and validates every config.
func (s *Sweep) Prepare() error {
	if s.Name == "" {
		s.Name = "sweep"
	}
	if s.Budget == nil {
		budget := meta.BUDGET
		s.Budget = &budget
	}
	if len(s.Slots) == 0 {
		s.Slots = meta.SLOTS
	}
	if s.Repeats <= 0 {
		s.Repeats = 1
	}
	if s.Concurrency <= 0 {
		s.Concurrency = runtime.GOMAXPROCS(0)
	}
	if s.Seed == 0 {
		s.Seed = uint64(time.Now().UnixNano())
	}

	if s.Grid != nil {
		s.Configs = append(s.Configs, s.Grid.expand()...)
		s.Grid = nil
	}
	if len(s.Configs) == 0 {
		return errors.New("sweep has no configs")
	}

	for i := range s.Configs {
		config := &s.Configs[i]
		config.ID = i + 1
		if config.Policy == "" {
			config.Policy = searcher.UCB1.String()
		}
		if config.Update == "" {
			config.Update = searcher.MeanUpdate.String()
		}
		if config.Simulations <= 0 && config.Duration <= 0 {
			return fmt.Errorf("config %d: must specify simulations or duration", config.ID)
		}
		if _, err := searcher.ParsePolicy(config.Policy); err != nil {
			return fmt.Errorf("config %d: %w", config.ID, err)
		}
		if _, err := searcher.ParseUpdate(config.Update); err != nil {
			return fmt.Errorf("config %d: %w", config.ID, err)
		}
	}
	return nil
}

func (g *Grid) expand() []metrics.RunConfig {
	explorations := g.Exploration
	if len(explorations) == 0 {
		explorations = []float64{meta.EXPLORATION}
	}
	simulations := g.Simulations
	if len(simulations) == 0 {
		simulations = []int{meta.SIMULATIONS}
	}
	policies := g.Policies
	if len(policies) == 0 {
		policies = []string{searcher.UCB1.String()}
	}
	updates := g.Updates
	if len(updates) == 0 {
		updates = []string{searcher.MeanUpdate.String()}
	}
	dedupes := g.Dedupe
	if len(dedupes) == 0 {
		dedupes = []bool{false}
	}

	var configs []metrics.RunConfig
	for _, c := range explorations {
		for _, n := range simulations {
			for _, p := range policies {
				for _, u := range updates {
					for _, d := range dedupes {
						configs = append(configs, metrics.RunConfig{
							Exploration: c,
							Simulations: n,
							Policy:      p,
							Update:      u,
							Dedupe:      d,
						})
					}
				}
			}
		}
	}
	return configs
}

// Run searches every config of a prepared sweep Repeats times. Independent trees run
// concurrently, each with its own seed.
func Run(ctx context.Context, catalog *roster.Catalog, sweep *Sweep) (Result, error) {
	result := Result{ID: uuid.NewString()}
	total := len(sweep.Configs) * sweep.Repeats

	log.Info().Msgf("starting %s sweep %s: %d configs x %d repeats", sweep.Name, result.ID, len(sweep.Configs), sweep.Repeats)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweep.Concurrency)
	for ci, config := range sweep.Configs {
		for repeat := 0; repeat < sweep.Repeats; repeat++ {
			seed := sweep.Seed + uint64(ci*sweep.Repeats+repeat)
			g.Go(func() error {
				record, err := runOne(ctx, catalog, sweep, config, repeat, seed)
				if err != nil {
					return fmt.Errorf("config %d repeat %d: %w", config.ID, repeat, err)
				}
				record.Sweep = result.ID

				mu.Lock()
				result.Records = append(result.Records, record)
				done := len(result.Records)
				mu.Unlock()

				log.Info().Msgf("completed run %d of %d (config %d repeat %d) with best value %.2f", done, total, config.ID, repeat+1, record.BestValue)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	slices.SortFunc(result.Records, func(a, b metrics.RunRecord) int {
		if c := cmp.Compare(a.Config, b.Config); c != 0 {
			return c
		}
		return cmp.Compare(a.Repeat, b.Repeat)
	})

	log.Info().Msgf("completed %s sweep", sweep.Name)
	return result, nil
}

func runOne(ctx context.Context, catalog *roster.Catalog, sweep *Sweep, config metrics.RunConfig, repeat int, seed uint64) (metrics.RunRecord, error) {
	tree, err := createTree(catalog, sweep, config, seed)
	if err != nil {
		return metrics.RunRecord{}, err
	}

	simulations := config.Simulations
	if simulations <= 0 { // Bounded by duration only
		simulations = int(^uint(0) >> 1)
	}

	record := metrics.RunRecord{
		Run:         uuid.NewString(),
		Config:      int64(config.ID),
		Repeat:      int64(repeat),
		Seed:        seed,
		Exploration: config.Exploration,
		Policy:      config.Policy,
		Update:      config.Update,
		Dedupe:      config.Dedupe,
		Simulations: int64(config.Simulations),
	}

	best, err := tree.RunContext(ctx, simulations)
	if errors.Is(err, searcher.ErrInfeasible) {
		return record, nil
	}
	if err != nil {
		return record, err
	}

	metric := tree.Metric()
	record.Episodes = int64(metric.Episodes)
	record.Nodes = int64(metric.Nodes)
	record.Improvements = int64(metric.Improvements)
	record.DurationMs = metric.Duration.Milliseconds()
	record.Feasible = true
	record.BestValue, err = best.Value()
	if err != nil {
		return record, err
	}
	record.BestSalary = *sweep.Budget - best.Budget()
	record.Lineup = formatLineup(best, sweep.Slots)
	return record, nil
}

func createTree(catalog *roster.Catalog, sweep *Sweep, config metrics.RunConfig, seed uint64) (*searcher.Tree, error) {
	policy, err := searcher.ParsePolicy(config.Policy)
	if err != nil {
		return nil, err
	}
	update, err := searcher.ParseUpdate(config.Update)
	if err != nil {
		return nil, err
	}

	options := []searcher.Option{
		searcher.WithExploration(config.Exploration),
		searcher.WithPolicy(policy),
		searcher.WithUpdate(update),
		searcher.WithDedupe(config.Dedupe),
		searcher.WithSeed(seed),
		searcher.WithMetrics(),
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}

	return searcher.NewTree(catalog, sweep.Slots, *sweep.Budget, options...)
}

func formatLineup(node *searcher.Node, slots []string) string {
	players := node.Players()
	parts := make([]string, len(players))
	for i, pick := range node.Lineup() {
		parts[i] = slots[pick.Slot] + ":" + players[i].Name
	}
	return strings.Join(parts, "|")
}

// RunExperiment runs a sweep and stores its setup and records under root.
func RunExperiment(ctx context.Context, catalog *roster.Catalog, sweep *Sweep, root string) (string, error) {
	result, err := Run(ctx, catalog, sweep)
	if err != nil {
		return "", err
	}

	// Store experiment metadata
	writer, err := metrics.NewWriter(root, sweep.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}

	err = writer.WriteSetup(sweep)
	if err != nil {
		return "", fmt.Errorf("failed to store setup: %w", err)
	}
	err = writer.WriteRunConfigs(sweep.Configs)
	if err != nil {
		return "", fmt.Errorf("failed to store run configs: %w", err)
	}
	log.Info().Msg("stored run configs")

	// Store experiment results
	err = writer.WriteRunRecords(result.Records)
	if err != nil {
		return "", fmt.Errorf("failed to write run records: %w", err)
	}
	log.Info().Str("dir", writer.Dir()).Msg("stored run records")

	return writer.Dir(), nil
}
