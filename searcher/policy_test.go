package searcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestUCB1(t *testing.T) {
	t.Run("unvisited edge scores infinity and is chosen", func(t *testing.T) {
		root := newSlateTree(t).Root()
		root.visits = []int{1, 4, 0}
		root.values = []float64{10, 20, 5}

		scores := UCB1.Scores(root, 2)

		require.InDelta(t, 10+2*math.Sqrt(math.Log(5)), scores[0], 1e-9)
		require.InDelta(t, 20+2*math.Sqrt(math.Log(5)/4), scores[1], 1e-9)
		require.Equal(t, math.Inf(1), scores[2])
		require.Equal(t, 2, UCB1.Choose(root, 2, nil), "Unvisited edge should be explored first")
	})

	t.Run("exploration coefficient trades value for visits", func(t *testing.T) {
		root := newSlateTree(t).Root()
		root.visits = []int{1, 4, 3}
		root.values = []float64{10, 20, 5}

		require.Equal(t, 1, UCB1.Choose(root, 2, nil), "Low exploration should exploit the best value")
		require.Equal(t, 0, UCB1.Choose(root, 100, nil), "High exploration should favor the least visited edge")
		require.Equal(t, 1, UCB1.Choose(root, 0, nil), "No exploration is greedy")
	})
}

func TestUCBTuned(t *testing.T) {
	root := newSlateTree(t).Root()

	root.visits = []int{2, 0, 2}
	require.Equal(t, 1, UCBTuned.Choose(root, 1, nil), "Unvisited edge should be explored first")

	root.visits = []int{2, 2, 2}
	root.values = []float64{1, 1, 1}
	lnN := math.Log(6)
	want := 1 + math.Sqrt(lnN/2*0.25)

	scores := UCBTuned.Scores(root, 1)

	for _, score := range scores {
		require.InDelta(t, want, score, 1e-9, "Variance term should be capped at 1/4")
	}
}

func TestUniform(t *testing.T) {
	root := newSlateTree(t).Root()
	rng := rand.New(rand.NewSource(7))

	seen := map[int]int{}
	for i := 0; i < 300; i++ {
		id := Uniform.Choose(root, 0, rng)
		require.GreaterOrEqual(t, id, 0)
		require.Less(t, id, 3)
		seen[id]++
	}

	require.Len(t, seen, 3, "Every action should eventually be picked")
}

// panicPolicy fails any test that consults it.
type panicPolicy struct{}

func (panicPolicy) Choose(*Node, float64, *rand.Rand) int { panic("policy consulted") }
func (panicPolicy) String() string                        { return "panic" }

func TestForcedChoice(t *testing.T) {
	tree, err := NewTree(slate(t), []string{"G", "C"}, 6000, WithPolicy(panicPolicy{}))
	require.NoError(t, err)
	node := tree.Root().Child(0) // Guard leaves 3000 for a center

	require.Equal(t, []int{5}, node.LegalActions())
	require.NotPanics(t, func() {
		require.Equal(t, 0, tree.choose(node), "A single action should be taken without the policy")
	})
	require.Panics(t, func() { tree.choose(tree.Root()) }, "Real choices should still go to the policy")
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]Policy{"ucb1": UCB1, "UCB-Tuned": UCBTuned, "uniform": Uniform} {
		got, err := ParsePolicy(name)
		require.NoError(t, err)
		require.Equal(t, want.String(), got.String())
	}

	_, err := ParsePolicy("thompson")
	require.Error(t, err)
}
