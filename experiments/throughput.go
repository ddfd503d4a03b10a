package experiments

import (
	"sort"
	"time"

	"hysteria/experiments/metrics"
)

// ThroughputSummary aggregates the searches of one agent config.
type ThroughputSummary struct {
	Agent             int
	Searches          int
	Rollouts          int64
	Duration          time.Duration
	RolloutsPerSecond float64
	MeanNodes         float64
}

// Throughput summarises move records per agent config, ordered by config ID.
func Throughput(records []metrics.MoveRecord) []ThroughputSummary {
	byAgent := map[int]*ThroughputSummary{}
	nodes := map[int]int64{}
	for _, record := range records {
		summary, ok := byAgent[record.Agent]
		if !ok {
			summary = &ThroughputSummary{Agent: record.Agent}
			byAgent[record.Agent] = summary
		}
		summary.Searches++
		summary.Rollouts += int64(record.Episodes)
		summary.Duration += record.Duration
		nodes[record.Agent] += int64(record.Nodes)
	}

	summaries := make([]ThroughputSummary, 0, len(byAgent))
	for agent, summary := range byAgent {
		if summary.Duration > 0 {
			summary.RolloutsPerSecond = float64(summary.Rollouts) / summary.Duration.Seconds()
		}
		summary.MeanNodes = float64(nodes[agent]) / float64(summary.Searches)
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Agent < summaries[j].Agent })
	return summaries
}
