package roster

import (
	"fmt"
	"math"
	"strings"
)

// Player is one entry of the catalog. Players are immutable once the catalog is built.
type Player struct {
	Name      string
	Salary    float64
	Score     float64  // Projected fantasy points
	Positions []string // Raw position labels, e.g. ["PG", "SG"]
}

func (p Player) String() string {
	return fmt.Sprintf("%s(%s, $%g, %g)", p.Name, strings.Join(p.Positions, "/"), p.Salary, p.Score)
}

// Catalog is the read-only player pool shared by every search node.
type Catalog struct {
	Players     []Player
	Eligibility Eligibility
	salaries    []float64
	scores      []float64
}

// NewCatalog validates players and encodes their eligibility with rules.
func NewCatalog(players []Player, rules Rules) (*Catalog, error) {
	labels := make([][]string, len(players))
	salaries := make([]float64, len(players))
	scores := make([]float64, len(players))
	for i, p := range players {
		if p.Salary < 0 || math.IsNaN(p.Salary) {
			return nil, fmt.Errorf("player %q: invalid salary %v", p.Name, p.Salary)
		}
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
			return nil, fmt.Errorf("player %q: invalid score %v", p.Name, p.Score)
		}
		labels[i] = p.Positions
		salaries[i] = p.Salary
		scores[i] = p.Score
	}

	eligibility, err := Encode(labels, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode eligibility: %w", err)
	}

	return &Catalog{
		Players:     players,
		Eligibility: eligibility,
		salaries:    salaries,
		scores:      scores,
	}, nil
}

func (c *Catalog) Len() int { return len(c.Players) }

func (c *Catalog) Salaries() []float64 { return c.salaries }

func (c *Catalog) Scores() []float64 { return c.scores }

func (c *Catalog) Names() []string {
	names := make([]string, len(c.Players))
	for i, p := range c.Players {
		names[i] = p.Name
	}
	return names
}

// Resolve maps slot labels onto the catalog's slot types. Labels no player is eligible for
// resolve to -1 and can never be filled.
func (c *Catalog) Resolve(labels []string) []int {
	slots := make([]int, len(labels))
	for i, label := range labels {
		slots[i] = c.Eligibility.SlotType(label)
	}
	return slots
}

// LegalActions is LegalActions over this catalog.
func (c *Catalog) LegalActions(slots []int, slot int, picked []int, budgetLeft float64) []int {
	return LegalActions(c.salaries, c.Eligibility, slots, slot, picked, budgetLeft)
}
