package roster

import "lineup/utils"

// LegalActions returns the indices of the players that can fill slot, in catalog order.
// slots holds the slot type of every slot; a negative slot type matches no player.
// A slot past the end of slots has no legal action.
func LegalActions(salaries []float64, eligibility Eligibility, slots []int, slot int, picked []int, budgetLeft float64) []int {
	if slot < 0 || slot >= len(slots) {
		return nil
	}
	slotType := slots[slot]
	if slotType < 0 {
		return nil
	}

	var actions []int
	for player, salary := range salaries {
		if salary > budgetLeft {
			continue
		}
		if !eligibility.Eligible(player, slotType) {
			continue
		}
		if utils.Contains(picked, player) {
			continue
		}
		actions = append(actions, player)
	}
	return actions
}
