package searcher

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"lineup/roster"
)

// Pick assigns a catalog player to a roster slot.
type Pick struct {
	Slot   int
	Player int
}

// space holds what every node of one tree shares: the read-only catalog and slot layout,
// and the per-depth registry of built nodes.
type space struct {
	catalog *roster.Catalog
	slots   []int // Slot type per slot
	budget  float64
	levels  [][]*Node
	index   []map[string]*Node // Per-depth lineup index, nil without dedupe
}

func newSpace(catalog *roster.Catalog, slots []int, budget float64, dedupe bool) *space {
	s := &space{
		catalog: catalog,
		slots:   slots,
		budget:  budget,
		levels:  make([][]*Node, len(slots)+1),
	}
	if dedupe {
		s.index = make([]map[string]*Node, len(slots)+1)
		for i := range s.index {
			s.index[i] = make(map[string]*Node)
		}
	}
	return s
}

// key identifies a lineup independently of the order its players were picked in. Slots
// of the same type are interchangeable, so the key is over sorted (slot type, player) pairs.
func (s *space) key(lineup []Pick) string {
	pairs := make([][2]int, len(lineup))
	for i, p := range lineup {
		pairs[i] = [2]int{s.slots[p.Slot], p.Player}
	}
	slices.SortFunc(pairs, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(strconv.Itoa(p[0]))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p[1]))
		b.WriteByte(',')
	}
	return b.String()
}

func (s *space) newNode(lineup []Pick, budget float64) *Node {
	depth := len(lineup)
	picked := make([]int, depth)
	for i, p := range lineup {
		picked[i] = p.Player
	}
	actions := s.catalog.LegalActions(s.slots, depth, picked, budget)

	n := &Node{
		space:    s,
		depth:    depth,
		lineup:   lineup,
		budget:   budget,
		actions:  actions,
		children: make([]*Node, len(actions)),
		visits:   make([]int, len(actions)),
		values:   make([]float64, len(actions)),
	}
	s.levels[depth] = append(s.levels[depth], n)
	if s.index != nil {
		s.index[depth][s.key(lineup)] = n
	}
	return n
}

// Node is one partial lineup of the search tree. Statistics are kept per edge: visits[i]
// and values[i] describe the child reached by legal action i.
type Node struct {
	space    *space
	depth    int
	lineup   []Pick
	budget   float64
	actions  []int
	children []*Node
	visits   []int
	values   []float64
}

// Child returns the node reached by legal action id, building it on first use.
func (n *Node) Child(id int) *Node {
	if id < 0 || id >= len(n.actions) {
		panic(fmt.Sprintf("action %d out of range for %d legal actions", id, len(n.actions)))
	}
	child := n.children[id]
	if child == nil {
		child = n.buildChild(id)
		n.children[id] = child
	}
	return child
}

func (n *Node) buildChild(id int) *Node {
	player := n.actions[id]
	salary := n.space.catalog.Salaries()[player]

	lineup := make([]Pick, len(n.lineup), len(n.lineup)+1)
	copy(lineup, n.lineup)
	lineup = append(lineup, Pick{Slot: n.depth, Player: player})
	budget := n.budget - salary

	if budget < 0 {
		panic(fmt.Sprintf("lineup %v exceeds the budget by %g", lineup, -budget))
	}
	for _, p := range n.lineup {
		if p.Player == player {
			panic(fmt.Sprintf("player %d picked twice in lineup %v", player, lineup))
		}
	}

	if n.space.index != nil {
		if existing, ok := n.space.index[n.depth+1][n.space.key(lineup)]; ok {
			return existing
		}
	}
	return n.space.newNode(lineup, budget)
}

// IsTerminal reports whether no player can fill the next slot.
func (n *Node) IsTerminal() bool {
	return len(n.actions) == 0
}

// IsLeaf reports whether selection should stop here: the node is terminal or has an
// edge that was never visited.
func (n *Node) IsLeaf() bool {
	if n.IsTerminal() {
		return true
	}
	for _, v := range n.visits {
		if v == 0 {
			return true
		}
	}
	return false
}

// Value is the projected score of a terminal lineup.
func (n *Node) Value() (float64, error) {
	if !n.IsTerminal() {
		return 0, fmt.Errorf("%w: value of non-terminal %s", ErrInvalidState, n)
	}
	scores := n.space.catalog.Scores()
	value := 0.0
	for _, p := range n.lineup {
		value += scores[p.Player]
	}
	return value, nil
}

func (n *Node) Depth() int { return n.depth }

func (n *Node) Budget() float64 { return n.budget }

// Lineup returns a copy of the picks, sorted by slot.
func (n *Node) Lineup() []Pick {
	return append([]Pick(nil), n.lineup...)
}

// Players returns the catalog players of the lineup in slot order.
func (n *Node) Players() []roster.Player {
	players := make([]roster.Player, len(n.lineup))
	for i, p := range n.lineup {
		players[i] = n.space.catalog.Players[p.Player]
	}
	return players
}

// LegalActions returns the catalog indices of the players that can fill the next slot.
func (n *Node) LegalActions() []int {
	return append([]int(nil), n.actions...)
}

func (n *Node) Visits(id int) int { return n.visits[id] }

func (n *Node) Estimate(id int) float64 { return n.values[id] }

// TotalVisits sums the visits of every edge.
func (n *Node) TotalVisits() int {
	total := 0
	for _, v := range n.visits {
		total += v
	}
	return total
}

func (n *Node) String() string {
	names := make([]string, len(n.lineup))
	for i, p := range n.lineup {
		slotType := "?"
		if t := n.space.slots[p.Slot]; t >= 0 {
			slotType = n.space.catalog.Eligibility.SlotTypes[t]
		}
		names[i] = slotType + ":" + n.space.catalog.Players[p.Player].Name
	}
	return fmt.Sprintf("Node(%g$, [%s])", n.budget, strings.Join(names, " "))
}
