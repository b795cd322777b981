// meta/meta.go
package meta

// EXPLORATION defines the default UCB exploration coefficient.
// Lineup values are fantasy points in the hundreds, so it is far above the usual sqrt(2).
const EXPLORATION = 100.0

// SIMULATIONS defines the default number of MCTS simulations per search.
const SIMULATIONS = 300000

// BUDGET defines the default salary cap.
const BUDGET = 50000.0

// UNIVERSAL is the slot type every player is eligible for.
const UNIVERSAL = "UTIL"

// SLOTS defines the default roster layout, one entry per slot in fill order.
var SLOTS = []string{"PG", "SG", "SF", "PF", "C", "F", "G", UNIVERSAL}
