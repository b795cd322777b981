package searcher

import (
	"fmt"
	"math"
	"strings"
)

// Update folds a new reward into an edge's value estimate. visits already counts the
// current reward.
type Update interface {
	Apply(value, reward float64, visits int) float64
	String() string
}

var (
	// MeanUpdate keeps the running mean of the rewards seen through an edge.
	MeanUpdate Update = meanUpdate{}
	// MaxUpdate keeps the best reward seen through an edge.
	MaxUpdate Update = maxUpdate{}
)

var updates = []Update{MeanUpdate, MaxUpdate}

func ParseUpdate(name string) (Update, error) {
	for _, u := range updates {
		if strings.EqualFold(u.String(), name) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unknown update rule %q", name)
}

type meanUpdate struct{}

func (meanUpdate) String() string { return "mean" }

func (meanUpdate) Apply(value, reward float64, visits int) float64 {
	return value + (reward-value)/float64(visits)
}

type maxUpdate struct{}

func (maxUpdate) String() string { return "max" }

func (maxUpdate) Apply(value, reward float64, visits int) float64 {
	if visits <= 1 {
		return reward
	}
	return math.Max(value, reward)
}
