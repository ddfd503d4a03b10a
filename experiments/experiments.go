package experiments

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hysteria/config"
	"hysteria/engine"
	"hysteria/experiments/metrics"

	"github.com/rs/zerolog/log"
)

const NumRuns = 3 // Per agent config

// Experiment plays a scenario once per run with each agent config.
type Experiment struct {
	Name    string
	Configs []metrics.AgentConfig
	Runs    int
}

var parallelConfigs = []metrics.AgentConfig{
	{ID: 1, Goroutines: 1, Rollouts: 1000},
	{ID: 2, Goroutines: 2, Rollouts: 1000},
	{ID: 3, Goroutines: 4, Rollouts: 1000},
	{ID: 4, Goroutines: 8, Rollouts: 1000},
	{ID: 5, Goroutines: 16, Rollouts: 1000},
}

var cutoffConfigs = []metrics.AgentConfig{
	{ID: 1, Goroutines: 4, Rollouts: 1000, Cutoff: 5},
	{ID: 2, Goroutines: 4, Rollouts: 1000, Cutoff: 10}, // Default
	{ID: 3, Goroutines: 4, Rollouts: 1000, Cutoff: 20},
	{ID: 4, Goroutines: 4, Rollouts: 1000, Cutoff: 40},
}

var explorationConfigs = []metrics.AgentConfig{
	{ID: 1, Goroutines: 4, Rollouts: 1000, Exploration: 0.5},
	{ID: 2, Goroutines: 4, Rollouts: 1000, Exploration: 1.0},
	{ID: 3, Goroutines: 4, Rollouts: 1000, Exploration: 1.4}, // Default
	{ID: 4, Goroutines: 4, Rollouts: 1000, Exploration: 2.0},
}

var experiments = map[string]Experiment{
	"parallelization": {Name: "parallelization", Configs: parallelConfigs, Runs: NumRuns},
	"cutoff":          {Name: "cutoff", Configs: cutoffConfigs, Runs: NumRuns},
	"exploration":     {Name: "exploration", Configs: explorationConfigs, Runs: NumRuns},
}

// Lookup returns the named built-in experiment.
func Lookup(name string) (Experiment, bool) {
	exp, ok := experiments[name]
	return exp, ok
}

// Names lists the built-in experiments.
func Names() []string {
	names := make([]string, 0, len(experiments))
	for name := range experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunExperiment plays scenario for turns turns per run and config, then
// stores the configs, run records and move records with writer.
func RunExperiment(ctx context.Context, scenario *config.Scenario, exp Experiment, turns int, writer *metrics.Writer) error {
	runs := exp.Runs
	if runs <= 0 {
		runs = 1
	}

	count := 0
	runRecords := []metrics.RunRecord{}
	moveRecords := []metrics.MoveRecord{}

	log.Info().Msgf("starting %s experiment...", exp.Name)

	for ci, agentConfig := range exp.Configs {
		log.Info().Msgf("starting config %d of %d: %+v", ci+1, len(exp.Configs), agentConfig)

		for i := 0; i < runs; i++ {
			runMetric, moveMetrics, err := runScenario(ctx, scenario, agentConfig, uint64(i), turns)
			if err != nil {
				return fmt.Errorf("failed to run config %d: %w", agentConfig.ID, err)
			}
			count++
			runRecords = append(runRecords, metrics.RunRecord{
				ID:        count,
				Agent:     agentConfig.ID,
				RunMetric: runMetric,
			})
			for _, mm := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Run:        count,
					Agent:      agentConfig.ID,
					MoveMetric: mm,
				})
			}

			log.Info().Msgf("completed config %d run %d of %d with scores %v", agentConfig.ID, i+1, runs, runMetric.Scores)
		}
	}

	log.Info().Msgf("completed %s experiment", exp.Name)

	// Store experiment metadata and results
	if err := writer.WriteAgentConfigs(exp.Configs); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteRunRecords(runRecords); err != nil {
		return fmt.Errorf("failed to write run records: %w", err)
	}
	log.Info().Msg("stored run records")

	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msg("stored move records")

	for _, summary := range Throughput(moveRecords) {
		log.Info().Msgf("config %d: %.0f rollouts/s over %d searches", summary.Agent, summary.RolloutsPerSecond, summary.Searches)
	}
	return nil
}

// runScenario plays one run of scenario with every agent using config.
func runScenario(ctx context.Context, scenario *config.Scenario, agentConfig metrics.AgentConfig, run uint64, turns int) (metrics.RunMetric, []metrics.MoveMetric, error) {
	world, err := scenario.World()
	if err != nil {
		return metrics.RunMetric{}, nil, err
	}
	e := engine.NewEngine(world, engineConfig(agentConfig, run))
	defer e.Release()

	start := time.Now()
	played, err := e.Run(ctx, turns)
	if err != nil {
		return metrics.RunMetric{}, nil, err
	}
	end := time.Now()

	scores := make([]int, world.AgentCount())
	for i := range scores {
		scores[i] = world.Score(i)
	}
	return metrics.RunMetric{
		Scenario:  scenario.Name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Turns:     played,
		Scores:    scores,
	}, e.Metrics(), nil
}

func engineConfig(agentConfig metrics.AgentConfig, run uint64) engine.Config {
	return engine.Config{
		Rollouts:    agentConfig.Rollouts,
		Goroutines:  agentConfig.Goroutines,
		Exploration: agentConfig.Exploration,
		Cutoff:      agentConfig.Cutoff,
		Seed:        agentConfig.Seed + run,
		Metrics:     true,
	}
}
