package searcher

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"

	"lineup/utils"
)

// Policy picks the edge to descend through at a fully explored node.
type Policy interface {
	Choose(n *Node, exploration float64, rng *rand.Rand) int
	String() string
}

// Scorer is a policy that ranks edges by an upper confidence bound.
type Scorer interface {
	Policy
	Scores(n *Node, exploration float64) []float64
}

var (
	UCB1     Scorer = ucbPolicy{name: "ucb1", bound: ucb1}
	UCBTuned Scorer = ucbPolicy{name: "ucb-tuned", bound: ucbTuned}
	Uniform  Policy = uniformPolicy{}
)

var policies = []Policy{UCB1, UCBTuned, Uniform}

// ParsePolicy looks a policy up by name.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range policies {
		if strings.EqualFold(p.String(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown selection policy %q", name)
}

// bound computes the score of one edge. stats describe every edge of the node.
type bound func(value float64, visits int, lnN float64, c float64, stats edgeStats) float64

type edgeStats struct {
	variance float64
}

type ucbPolicy struct {
	name  string
	bound bound
}

func (p ucbPolicy) String() string { return p.name }

func (p ucbPolicy) Scores(n *Node, exploration float64) []float64 {
	lnN := math.Log(float64(n.TotalVisits()))
	stats := edgeStats{variance: variance(n.values)}

	scores := make([]float64, len(n.actions))
	for i := range scores {
		scores[i] = p.bound(n.values[i], n.visits[i], lnN, exploration, stats)
	}
	return scores
}

func (p ucbPolicy) Choose(n *Node, exploration float64, _ *rand.Rand) int {
	return utils.ArgMax(p.Scores(n, exploration))
}

type uniformPolicy struct{}

func (uniformPolicy) String() string { return "uniform" }

func (uniformPolicy) Choose(n *Node, _ float64, rng *rand.Rand) int {
	return rng.Intn(len(n.actions))
}

func ucb1(value float64, visits int, lnN float64, c float64, _ edgeStats) float64 {
	// Prioritize unexplored edges
	if visits == 0 {
		return math.Inf(1)
	}

	return value + c*math.Sqrt(lnN/float64(visits))
}

// ucbTuned replaces the exploration constant with a variance estimate capped at 1/4.
func ucbTuned(value float64, visits int, lnN float64, _ float64, stats edgeStats) float64 {
	if visits == 0 {
		return math.Inf(1)
	}

	n := float64(visits)
	second := math.Min(0.25, stats.variance+2*lnN/n)
	return value + math.Sqrt(lnN/n*second)
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}
