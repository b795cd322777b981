package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"lineup/experiments"
	"lineup/logx"
	"lineup/meta"
	"lineup/roster"
	"lineup/searcher"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "", "Path to player catalog (.csv, .csv.zst or .parquet)")
		budget      = flag.Float64("budget", meta.BUDGET, "Salary cap")
		slots       = flag.String("slots", strings.Join(meta.SLOTS, ","), "Comma separated slot types, in fill order")
		simulations = flag.Int("simulations", meta.SIMULATIONS, "Number of simulations")
		exploration = flag.Float64("exploration", meta.EXPLORATION, "Exploration coefficient")
		policy      = flag.String("policy", searcher.UCB1.String(), "Selection policy (ucb1, ucb-tuned, uniform)")
		update      = flag.String("update", searcher.MeanUpdate.String(), "Backup rule (mean, max)")
		dedupe      = flag.Bool("dedupe", false, "Share nodes between paths reaching the same lineup")
		seed        = flag.Uint64("seed", 0, "Random seed (0 = from clock)")
		duration    = flag.Duration("duration", 0, "Wall-clock bound on the search (0 = unlimited)")
		sweepPath   = flag.String("sweep", "", "Run the sweep defined in this YAML file instead of a single search")
		throughput  = flag.Duration("throughput", 0, "Run the throughput sweep with this duration per search")
		out         = flag.String("out", "results", "Output directory for sweep results")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *catalogPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: lineup -catalog <players.csv[.zst]|players.parquet> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Logger = logx.NewLogger(*debug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	catalog, err := roster.LoadCatalog(*catalogPath, roster.BasketballRules())
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}
	log.Info().Str("catalog", *catalogPath).Int("players", catalog.Len()).Msg("loaded catalog")

	slotList := parseSlots(*slots)

	if *sweepPath != "" || *throughput > 0 {
		var sweep *experiments.Sweep
		if *sweepPath != "" {
			sweep, err = experiments.LoadSweep(*sweepPath)
			if err != nil {
				log.Fatal().Err(err).Msg("load sweep")
			}
		} else {
			sweep = experiments.ThroughputSweep(*throughput, 5)
			sweep.Seed = *seed
		}
		if isFlagSet("budget") || sweep.Budget == nil {
			sweep.Budget = budget
		}
		if isFlagSet("slots") || len(sweep.Slots) == 0 {
			sweep.Slots = slotList
		}
		if err := sweep.Prepare(); err != nil {
			log.Fatal().Err(err).Msg("prepare sweep")
		}

		dir, err := experiments.RunExperiment(ctx, catalog, sweep, *out)
		if err != nil {
			log.Fatal().Err(err).Msg("run sweep")
		}
		log.Info().Str("dir", dir).Msg("sweep complete")
		return
	}

	selection, err := searcher.ParsePolicy(*policy)
	if err != nil {
		log.Fatal().Err(err).Msg("parse policy")
	}
	backup, err := searcher.ParseUpdate(*update)
	if err != nil {
		log.Fatal().Err(err).Msg("parse update")
	}

	options := []searcher.Option{
		searcher.WithExploration(*exploration),
		searcher.WithPolicy(selection),
		searcher.WithUpdate(backup),
		searcher.WithDedupe(*dedupe),
		searcher.WithDuration(*duration),
		searcher.WithLogger(log.Logger),
		searcher.WithMetrics(),
	}
	if *seed != 0 {
		options = append(options, searcher.WithSeed(*seed))
	}

	tree, err := searcher.NewTree(catalog, slotList, *budget, options...)
	if err != nil {
		log.Fatal().Err(err).Msg("create tree")
	}

	start := time.Now()
	best, err := tree.RunContext(ctx, *simulations)
	if errors.Is(err, searcher.ErrInfeasible) {
		log.Warn().Float64("budget", *budget).Strs("slots", slotList).Msg("no lineup fits the budget")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("search")
	}

	value, err := best.Value()
	if err != nil {
		log.Fatal().Err(err).Msg("evaluate best lineup")
	}
	metric := tree.Metric()
	log.Info().
		Float64("value", value).
		Float64("salary", *budget-best.Budget()).
		Int("simulations", metric.Episodes).
		Int("nodes", metric.Nodes).
		Dur("elapsed", time.Since(start)).
		Msg("search complete")
	for i, player := range best.Players() {
		log.Info().Msgf("%-5s %s", slotList[best.Lineup()[i].Slot], player)
	}
}

func parseSlots(raw string) []string {
	slots := []string{}
	for _, slot := range strings.Split(raw, ",") {
		if slot = strings.TrimSpace(slot); slot != "" {
			slots = append(slots, slot)
		}
	}
	return slots
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
