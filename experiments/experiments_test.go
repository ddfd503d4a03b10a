package experiments

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"hysteria/config"
	"hysteria/experiments/metrics"
	"hysteria/game"

	"github.com/stretchr/testify/require"
)

func readTable(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunExperiment(t *testing.T) {
	t.Run("writing every table", func(t *testing.T) {
		writer, err := metrics.NewWriter(t.TempDir(), false)
		require.NoError(t, err)
		exp := Experiment{
			Name: "small",
			Configs: []metrics.AgentConfig{
				{ID: 1, Goroutines: 1, Rollouts: 50},
				{ID: 2, Goroutines: 2, Rollouts: 50, Cutoff: 4},
			},
			Runs: 2,
		}

		err = RunExperiment(context.Background(), config.FromWorld("debug", game.DebugMap()), exp, 3, writer)
		require.NoError(t, err)

		require.Len(t, readTable(t, writer.Path("agent_configs")), 1+2)
		require.Len(t, readTable(t, writer.Path("run_records")), 1+4, "One record per config per run")
		require.Len(t, readTable(t, writer.Path("move_records")), 1+4*3, "One record per agent per turn")
	})

	t.Run("stopping on cancellation", func(t *testing.T) {
		writer, err := metrics.NewWriter(t.TempDir(), false)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = RunExperiment(ctx, config.Default(), Experiment{Name: "cancelled", Configs: parallelConfigs[:1]}, 5, writer)

		require.ErrorIs(t, err, context.Canceled)
		_, err = os.Stat(writer.Path("run_records"))
		require.ErrorIs(t, err, os.ErrNotExist, "Nothing is stored for an aborted experiment")
	})
}

func TestLookup(t *testing.T) {
	require.Equal(t, []string{"cutoff", "exploration", "parallelization"}, Names())
	for _, name := range Names() {
		exp, ok := Lookup(name)
		require.True(t, ok)
		require.Equal(t, name, exp.Name)
		require.NotEmpty(t, exp.Configs)
	}
	_, ok := Lookup("nope")
	require.False(t, ok)
}

func TestThroughput(t *testing.T) {
	record := func(agent, episodes, nodes int, d time.Duration) metrics.MoveRecord {
		return metrics.MoveRecord{
			Agent: agent,
			MoveMetric: metrics.MoveMetric{
				SearchMetric: metrics.SearchMetric{Episodes: episodes, Nodes: nodes, Duration: d},
			},
		}
	}

	summaries := Throughput([]metrics.MoveRecord{
		record(2, 100, 50, time.Second),
		record(1, 300, 10, time.Second),
		record(2, 300, 150, time.Second),
		record(3, 10, 1, 0),
	})

	require.Len(t, summaries, 3)
	require.Equal(t, ThroughputSummary{Agent: 1, Searches: 1, Rollouts: 300, Duration: time.Second, RolloutsPerSecond: 300, MeanNodes: 10}, summaries[0])
	require.Equal(t, ThroughputSummary{Agent: 2, Searches: 2, Rollouts: 400, Duration: 2 * time.Second, RolloutsPerSecond: 200, MeanNodes: 100}, summaries[1])
	require.Zero(t, summaries[2].RolloutsPerSecond, "Zero duration should not divide")
	require.Empty(t, Throughput(nil))
}
