package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hysteria/communication"
	"hysteria/communication/client"
	"hysteria/communication/server"
	"hysteria/config"
	"hysteria/engine"
	"hysteria/experiments"
	"hysteria/experiments/metrics"
	"hysteria/render"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	scenario   string
	turns      int
	rollouts   int
	goroutines int
	seed       uint64
	warmStart  bool
	serve      string
	tick       time.Duration
	remote     string
	metricsDir string
	compress   bool
	experiment string
	logLevel   string
	noColor    bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.scenario, "scenario", "", "Scenario YAML file (default: built-in demo)")
	flag.IntVar(&o.turns, "turns", 0, "Turns to play (default: scenario max_turns)")
	flag.IntVar(&o.rollouts, "rollouts", 0, "Rollouts per agent per turn")
	flag.IntVar(&o.goroutines, "goroutines", 0, "Search goroutines per agent")
	flag.Uint64Var(&o.seed, "seed", 0, "Base random seed")
	flag.BoolVar(&o.warmStart, "warm-start", false, "Carry root statistics between turns")
	flag.StringVar(&o.serve, "serve", "", "Serve the engine over HTTP on this address, e.g. :8080")
	flag.DurationVar(&o.tick, "tick", 0, "With -serve, step the engine on this interval")
	flag.StringVar(&o.remote, "remote", "", "Drive and render an engine served at this URL")
	flag.StringVar(&o.metricsDir, "metrics-dir", "results", "Directory for experiment tables")
	flag.BoolVar(&o.compress, "compress", false, "Write experiment tables as zstd-compressed CSV")
	flag.StringVar(&o.experiment, "experiment", "", fmt.Sprintf("Run a built-in experiment %v", experiments.Names()))
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level")
	flag.BoolVar(&o.noColor, "no-color", false, "Disable coloured output")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", o.logLevel)
		os.Exit(2)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: o.noColor, TimeFormat: time.TimeOnly})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("failed")
	}
}

func run(ctx context.Context, o options) error {
	profile := termenv.EnvColorProfile()
	if o.noColor {
		profile = termenv.Ascii
	}

	if o.remote != "" {
		return play(ctx, client.NewClientCommunicator(o.remote), o.turns, profile)
	}

	scenario, err := loadScenario(o)
	if err != nil {
		return err
	}
	turns := o.turns
	if turns <= 0 {
		turns = scenario.Turns()
	}

	if o.experiment != "" {
		exp, ok := experiments.Lookup(o.experiment)
		if !ok {
			return fmt.Errorf("unknown experiment %q, want one of %v", o.experiment, experiments.Names())
		}
		writer, err := metrics.NewWriter(o.metricsDir, o.compress)
		if err != nil {
			return err
		}
		log.Info().Msgf("writing %s results to %s", exp.Name, writer.Dir())
		return experiments.RunExperiment(ctx, scenario, exp, turns, writer)
	}

	world, err := scenario.World()
	if err != nil {
		return err
	}
	e := engine.NewEngine(world, scenario.EngineConfig())
	defer e.Release()
	sc := server.NewServerCommunicator(e)

	if o.serve != "" {
		if o.tick > 0 {
			go autoStep(ctx, sc, o.tick, turns)
		}
		return sc.Start(ctx, o.serve)
	}
	return play(ctx, sc, turns, profile)
}

func loadScenario(o options) (*config.Scenario, error) {
	scenario := config.Default()
	if o.scenario != "" {
		var err error
		scenario, err = config.Load(o.scenario)
		if err != nil {
			return nil, err
		}
	}
	if o.rollouts > 0 {
		scenario.Planner.Rollouts = o.rollouts
	}
	if o.goroutines > 0 {
		scenario.Planner.Goroutines = o.goroutines
	}
	if o.seed != 0 {
		scenario.Planner.Seed = o.seed
	}
	if o.warmStart {
		scenario.Planner.WarmStart = true
	}
	return scenario, nil
}

// play steps comm for turns turns, rendering the world after each one.
func play(ctx context.Context, comm communication.Communicator, turns int, profile termenv.Profile) error {
	snap, err := comm.GetGameState(ctx)
	if err != nil {
		return err
	}
	if err := show(snap, profile); err != nil {
		return err
	}
	if turns <= 0 {
		turns = int(^uint(0) >> 1)
	}

	for i := 0; i < turns; i++ {
		if _, err := comm.Step(ctx); err != nil {
			return err
		}
		snap, err := comm.GetGameState(ctx)
		if err != nil {
			return err
		}
		if err := show(snap, profile); err != nil {
			return err
		}
	}
	return nil
}

func show(snap *communication.Snapshot, profile termenv.Profile) error {
	world, err := snap.World()
	if err != nil {
		return err
	}
	if err := render.Render(os.Stdout, world, profile); err != nil {
		return err
	}
	for i, plan := range snap.Plans {
		if len(plan) > 0 {
			fmt.Printf("plan %d: %s\n", i, render.Plan(plan))
		}
	}
	fmt.Println()
	return nil
}

func autoStep(ctx context.Context, sc *server.ServerCommunicator, tick time.Duration, turns int) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for played := 0; played < turns; played++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := sc.Step(ctx); err != nil {
			log.Warn().Msgf("step failed: %v", err)
			return
		}
	}
}
