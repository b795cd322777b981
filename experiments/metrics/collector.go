package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Exploration  float64
	Policy       string
	Update       string
	Dedupe       bool
	Duration     time.Duration
	Episodes     int
	Improvements int     // Times a new best lineup was found
	Nodes        int     // Nodes in the tree when the search completed
	BestValue    float64 // Projected score of the best lineup
}

type Collector interface {
	Start(exploration float64, policy, update string, dedupe bool)
	AddEpisode()
	AddImprovement(value float64)
	Complete(nodes int) SearchMetric
}

type collector struct {
	exploration  float64
	policy       string
	update       string
	dedupe       bool
	startTime    time.Time
	episodes     atomic.Int32
	improvements atomic.Int32
	bestValue    atomic.Uint64 // math.Float64bits
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(exploration float64, policy, update string, dedupe bool) {
	m.startTime = time.Now()
	m.exploration = exploration
	m.policy = policy
	m.update = update
	m.dedupe = dedupe
	m.episodes.Store(0)
	m.improvements.Store(0)
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) AddImprovement(value float64) {
	m.improvements.Add(1)
	m.bestValue.Store(math.Float64bits(value))
}

func (m *collector) Complete(nodes int) SearchMetric {
	return SearchMetric{
		Exploration:  m.exploration,
		Policy:       m.policy,
		Update:       m.update,
		Dedupe:       m.dedupe,
		Duration:     time.Since(m.startTime),
		Episodes:     int(m.episodes.Load()),
		Improvements: int(m.improvements.Load()),
		Nodes:        nodes,
		BestValue:    math.Float64frombits(m.bestValue.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(exploration float64, policy, update string, dedupe bool) {}
func (m *dummyCollector) AddEpisode()                                                   {}
func (m *dummyCollector) AddImprovement(value float64)                                  {}
func (m *dummyCollector) Complete(nodes int) SearchMetric                               { return SearchMetric{} }
