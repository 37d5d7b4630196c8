package game

import "math"

// Selector picks the next upgrade to buy.
type Selector struct {
	kinds []UpgradeKind
}

// NewSelector creates a Selector that considers kinds in the given order.
func NewSelector(kinds []UpgradeKind) *Selector {
	return &Selector{kinds: append([]UpgradeKind(nil), kinds...)}
}

// SelectCheapestAffordable returns the affordable kind with the lowest cost.
// Equal costs resolve to the kind declared first. Kinds without a cost in the
// table are ignored.
func (s *Selector) SelectCheapestAffordable(currency Currency, costs CostTable) (UpgradeKind, bool) {
	best := UpgradeKind("")
	found := false
	lowest := math.Inf(1)

	for _, kind := range s.kinds {
		cost, ok := costs[kind]
		if !ok || math.IsNaN(cost) {
			continue
		}
		// strict < keeps the first kind that reached the minimum
		if cost <= currency && cost < lowest {
			lowest = cost
			best = kind
			found = true
		}
	}
	return best, found
}
