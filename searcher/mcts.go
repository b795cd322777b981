package searcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"lineup/experiments/metrics"
	"lineup/roster"
)

var (
	ErrInvalidState = errors.New("invalid search state")
	ErrInfeasible   = errors.New("no feasible lineup")
	ErrNoTerminal   = errors.New("no terminal lineup reached")
)

type Option func(t *Tree)

// step is one traversed edge: the node and the id of the action taken from it.
type step struct {
	node   *Node
	action int
}

type Tree struct {
	exploration float64
	policy      Policy
	update      Update
	dedupe      bool
	rng         *rand.Rand
	duration    time.Duration
	log         zerolog.Logger
	metrics     metrics.Collector
	space       *space
	root        *Node
	best        *Node
	bestValue   float64
	lastMetric  metrics.SearchMetric
}

func WithExploration(c float64) Option {
	return func(t *Tree) {
		if c >= 0 {
			t.exploration = c
		}
	}
}

func WithPolicy(policy Policy) Option {
	return func(t *Tree) {
		if policy != nil {
			t.policy = policy
		}
	}
}

func WithUpdate(update Update) Option {
	return func(t *Tree) {
		if update != nil {
			t.update = update
		}
	}
}

// WithDedupe shares one node between every path that reaches the same lineup.
func WithDedupe(dedupe bool) Option {
	return func(t *Tree) {
		t.dedupe = dedupe
	}
}

func WithSeed(seed uint64) Option {
	return func(t *Tree) {
		t.rng = rand.New(rand.NewSource(seed))
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(t *Tree) {
		if rng != nil {
			t.rng = rng
		}
	}
}

// WithDuration bounds every run by wall-clock time, checked between simulations.
func WithDuration(duration time.Duration) Option {
	return func(t *Tree) {
		if duration > 0 {
			t.duration = duration
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tree) {
		t.log = logger
	}
}

func WithMetrics() Option {
	return func(t *Tree) {
		t.metrics = metrics.NewCollector()
	}
}

// UCBMean selects with UCB1 and backs up running means.
func UCBMean() Option {
	return func(t *Tree) {
		t.policy = UCB1
		t.update = MeanUpdate
	}
}

// RandomMax selects uniformly at random and backs up the best reward per edge.
func RandomMax() Option {
	return func(t *Tree) {
		t.policy = Uniform
		t.update = MaxUpdate
	}
}

// NewTree builds the root of a search for the best lineup filling slots under budget.
func NewTree(catalog *roster.Catalog, slots []string, budget float64, options ...Option) (*Tree, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if budget < 0 || math.IsNaN(budget) {
		return nil, fmt.Errorf("invalid budget %v", budget)
	}

	t := &Tree{ // Default values
		exploration: 1.0,
		policy:      UCB1,
		update:      MeanUpdate,
		log:         zerolog.Nop(),
		metrics:     metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}

	t.space = newSpace(catalog, catalog.Resolve(slots), budget, t.dedupe)
	t.root = t.space.newNode(nil, budget)
	return t, nil
}

// Run performs n simulations and returns the best terminal node found so far.
func (t *Tree) Run(n int) (*Node, error) {
	return t.RunContext(context.Background(), n)
}

// RunContext is Run that also stops between simulations once ctx is done. The best node
// found before stopping is returned.
func (t *Tree) RunContext(ctx context.Context, n int) (*Node, error) {
	if t.root.IsTerminal() {
		return nil, ErrInfeasible
	}

	if t.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.duration)
		defer cancel()
	}

	t.metrics.Start(t.exploration, t.policy.String(), t.update.String(), t.dedupe)
	every := max(n/10, 1)
	for sim := 0; sim < n; sim++ {
		if ctx.Err() != nil {
			t.log.Debug().Int("simulations", sim).Msg("search stopped early")
			break
		}

		if err := t.simulate(); err != nil {
			return nil, err
		}
		t.metrics.AddEpisode()

		if sim == 0 || (sim+1)%every == 0 {
			t.log.Debug().Msgf("%d/%d - %d nodes", sim+1, n, t.Size())
		}
	}
	t.lastMetric = t.metrics.Complete(t.Size())

	if t.best == nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoTerminal, err)
		}
		return nil, ErrNoTerminal
	}
	return t.best, nil
}

func (t *Tree) simulate() error {
	leaf, path := t.selectLeaf()
	terminal, path := t.rollout(leaf, path)
	reward, err := t.evaluate(terminal)
	if err != nil {
		return err
	}
	t.backup(reward, path)
	return nil
}

// selectLeaf descends from the root through fully explored nodes.
func (t *Tree) selectLeaf() (*Node, []step) {
	node := t.root
	path := []step{}
	for !node.IsLeaf() {
		action := t.choose(node)
		path = append(path, step{node: node, action: action})
		node = node.Child(action)
	}
	return node, path
}

func (t *Tree) choose(node *Node) int {
	if len(node.actions) == 1 {
		return 0
	}
	return t.policy.Choose(node, t.exploration, t.rng)
}

// rollout completes the lineup with uniformly random picks.
func (t *Tree) rollout(node *Node, path []step) (*Node, []step) {
	for !node.IsTerminal() {
		action := t.rng.Intn(len(node.actions))
		path = append(path, step{node: node, action: action})
		node = node.Child(action)
	}
	return node, path
}

func (t *Tree) evaluate(node *Node) (float64, error) {
	if !node.IsTerminal() {
		return 0, fmt.Errorf("%w: non-terminal nodes should never be evaluated", ErrInvalidState)
	}
	value, err := node.Value()
	if err != nil {
		return 0, err
	}

	if t.best == nil || value > t.bestValue {
		t.best = node
		t.bestValue = value
		t.metrics.AddImprovement(value)
		t.log.Debug().Float64("value", value).Msgf("new best node: %s", node)
	}
	return value, nil
}

// backup folds reward into the statistics of every edge on the path.
func (t *Tree) backup(reward float64, path []step) {
	for _, s := range path {
		s.node.visits[s.action]++
		s.node.values[s.action] = t.update.Apply(s.node.values[s.action], reward, s.node.visits[s.action])
	}
}

func (t *Tree) Root() *Node { return t.root }

// Best returns the best terminal node seen so far, or nil.
func (t *Tree) Best() *Node { return t.best }

// Metric returns the metrics of the last run. It is empty unless WithMetrics was given.
func (t *Tree) Metric() metrics.SearchMetric { return t.lastMetric }

// NodeCounts returns the number of nodes built at each depth.
func (t *Tree) NodeCounts() []int {
	counts := make([]int, len(t.space.levels))
	for depth, nodes := range t.space.levels {
		counts[depth] = len(nodes)
	}
	return counts
}

// Size returns the number of nodes in the tree.
func (t *Tree) Size() int {
	size := 0
	for _, nodes := range t.space.levels {
		size += len(nodes)
	}
	return size
}
