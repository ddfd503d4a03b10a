package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Agent        int
	Goroutines   int
	Duration     time.Duration
	Episodes     int
	Cutoff       int
	FullPlayouts int
	Nodes        int
	IsTreeReset  bool
}

type MoveMetric struct {
	Step   int // Turn the search was run for
	Player int // Agent index
	SearchMetric
}

type RunMetric struct {
	Scenario  string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Turns     int
	Scores    []int
}

type AgentConfig struct {
	ID          int
	Goroutines  int
	Rollouts    int
	Cutoff      int
	Exploration float64
	Seed        uint64
}

type Collector interface {
	Start(agent, goroutines, cutoff int)
	SetTreeReset(value bool)
	SetNodes(n int)
	AddFullPlayout()
	AddEpisode()
	Complete() SearchMetric
}

type collector struct {
	agent        int
	goroutines   int
	cutoff       int
	startTime    time.Time
	episodes     atomic.Int32
	fullPlayouts atomic.Int32
	nodes        atomic.Int32
	isTreeReset  atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

func (m *collector) SetNodes(n int) {
	m.nodes.Store(int32(n))
}

// Start begins a new measurement. Counters from the previous search are
// cleared so one collector can serve a tree for its whole lifetime.
func (m *collector) Start(agent, goroutines, cutoff int) {
	m.startTime = time.Now()
	m.agent = agent
	m.goroutines = goroutines
	m.cutoff = cutoff
	m.episodes.Store(0)
	m.fullPlayouts.Store(0)
	m.nodes.Store(0)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Agent:        m.agent,
		Goroutines:   m.goroutines,
		Duration:     time.Since(m.startTime),
		Episodes:     int(m.episodes.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Cutoff:       m.cutoff,
		Nodes:        int(m.nodes.Load()),
		IsTreeReset:  m.isTreeReset.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(agent, goroutines, cutoff int) {}
func (m *dummyCollector) SetTreeReset(value bool)             {}
func (m *dummyCollector) SetNodes(n int)                      {}
func (m *dummyCollector) AddFullPlayout()                     {}
func (m *dummyCollector) AddEpisode()                         {}
func (m *dummyCollector) Complete() SearchMetric              { return SearchMetric{} }
