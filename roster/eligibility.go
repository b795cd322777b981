package roster

import (
	"fmt"
	"strings"

	"lineup/meta"
	"lineup/utils"
)

const MaxSlotTypes = 64

// Mask is a bitmask over a catalog's slot types. Bit i is set when the player may fill
// slot type i.
type Mask uint64

func (m Mask) Has(slotType int) bool {
	return slotType >= 0 && slotType < MaxSlotTypes && m&(1<<uint(slotType)) != 0
}

// Eligibility is the encoded eligibility table of a catalog.
type Eligibility struct {
	SlotTypes []string // Universe, in order of first appearance
	Masks     []Mask   // One per player
}

// Eligible reports whether player may fill slotType.
func (e Eligibility) Eligible(player, slotType int) bool {
	if player < 0 || player >= len(e.Masks) {
		return false
	}
	return e.Masks[player].Has(slotType)
}

// SlotType returns the index of label in the universe, or -1.
func (e Eligibility) SlotType(label string) int {
	return utils.FindIndex(e.SlotTypes, normalizeLabel(label))
}

// Rules describe how raw position labels expand into slot types.
type Rules struct {
	// Umbrellas maps a substring to the umbrella slot type it implies. Any label containing
	// the key also grants the value, e.g. "F" -> "F" makes SF and PF forward-eligible.
	Umbrellas map[string]string
	// Order in which umbrella keys are checked. Keys missing here are ignored.
	UmbrellaOrder []string
	// Universal is granted to every player. Empty disables it.
	Universal string
}

// BasketballRules expands guards into G, forwards into F and grants UTIL to everyone.
func BasketballRules() Rules {
	return Rules{
		Umbrellas:     map[string]string{"F": "F", "G": "G"},
		UmbrellaOrder: []string{"F", "G"},
		Universal:     meta.UNIVERSAL,
	}
}

// Expand returns the slot types implied by a player's raw labels, deduplicated in order.
func (r Rules) Expand(labels []string) []string {
	expanded := make([]string, 0, len(labels)+len(r.UmbrellaOrder)+1)
	add := func(label string) {
		if label != "" && !utils.Contains(expanded, label) {
			expanded = append(expanded, label)
		}
	}

	for _, raw := range labels {
		add(normalizeLabel(raw))
	}
	for _, label := range append([]string(nil), expanded...) {
		for _, key := range r.UmbrellaOrder {
			if umbrella, ok := r.Umbrellas[key]; ok && strings.Contains(label, key) {
				add(normalizeLabel(umbrella))
			}
		}
	}
	add(normalizeLabel(r.Universal))
	return expanded
}

// Encode builds the eligibility table for a catalog from each player's raw labels.
func Encode(labels [][]string, rules Rules) (Eligibility, error) {
	e := Eligibility{
		SlotTypes: []string{},
		Masks:     make([]Mask, len(labels)),
	}

	for player, raw := range labels {
		for _, label := range rules.Expand(raw) {
			slotType := utils.FindIndex(e.SlotTypes, label)
			if slotType < 0 {
				if len(e.SlotTypes) == MaxSlotTypes {
					return Eligibility{}, fmt.Errorf("player %d: slot type %q exceeds the limit of %d slot types", player, label, MaxSlotTypes)
				}
				e.SlotTypes = append(e.SlotTypes, label)
				slotType = len(e.SlotTypes) - 1
			}
			e.Masks[player] |= 1 << uint(slotType)
		}
	}
	return e, nil
}

// ParsePositions splits a raw eligibility string such as "PG/SG".
func ParsePositions(raw string) []string {
	parts := strings.Split(raw, "/")
	positions := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = normalizeLabel(p); p != "" {
			positions = append(positions, p)
		}
	}
	return positions
}

func normalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
