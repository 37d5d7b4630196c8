package game

import (
	"fmt"
	"sort"
	"sync"
)

// UpgradeKind names a purchasable upgrade category of a game variant.
type UpgradeKind string

// Currency is the spendable balance read from the game.
type Currency = float64

// CostTable maps each upgrade kind to its current purchase cost.
// It is a snapshot; callers re-read it every tick.
type CostTable map[UpgradeKind]float64

// UpgradeSpec binds an upgrade kind to the fields and mutator of the game object.
type UpgradeSpec struct {
	Kind       UpgradeKind `json:"kind"`
	Label      string      `json:"label"`
	CostField  string      `json:"cost_field"`
	LevelField string      `json:"level_field"`
	Mutator    string      `json:"mutator"`
}

// Variant describes one supported game: where its currency lives and which
// upgrades it offers, in declaration order.
type Variant struct {
	Name           string        `json:"name"`
	CurrencyField  string        `json:"currency_field"`
	CurrencyLabel  string        `json:"currency_label"`
	ReadyField     string        `json:"ready_field"`
	TimeScaleField string        `json:"time_scale_field"`
	Upgrades       []UpgradeSpec `json:"upgrades"`
}

// Kinds returns the variant's upgrade kinds in declaration order.
func (v Variant) Kinds() []UpgradeKind {
	kinds := make([]UpgradeKind, 0, len(v.Upgrades))
	for _, u := range v.Upgrades {
		kinds = append(kinds, u.Kind)
	}
	return kinds
}

// Mutators returns the kind to mutator-name table used by the executor.
func (v Variant) Mutators() map[UpgradeKind]string {
	m := make(map[UpgradeKind]string, len(v.Upgrades))
	for _, u := range v.Upgrades {
		if u.Mutator != "" {
			m[u.Kind] = u.Mutator
		}
	}
	return m
}

// Spec returns the upgrade spec for kind.
func (v Variant) Spec(kind UpgradeKind) (UpgradeSpec, bool) {
	for _, u := range v.Upgrades {
		if u.Kind == kind {
			return u, true
		}
	}
	return UpgradeSpec{}, false
}

// Validate checks that the variant is usable by the scheduler.
func (v Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("variant name is not set")
	}
	if v.CurrencyField == "" {
		return fmt.Errorf("variant %s: currency_field is not set", v.Name)
	}
	if len(v.Upgrades) == 0 {
		return fmt.Errorf("variant %s: no upgrades declared", v.Name)
	}
	seen := make(map[UpgradeKind]bool)
	for i, u := range v.Upgrades {
		if u.Kind == "" {
			return fmt.Errorf("variant %s: upgrade #%d has no kind", v.Name, i)
		}
		if seen[u.Kind] {
			return fmt.Errorf("variant %s: duplicate upgrade kind %s", v.Name, u.Kind)
		}
		seen[u.Kind] = true
		if u.CostField == "" {
			return fmt.Errorf("variant %s: upgrade %s has no cost_field", v.Name, u.Kind)
		}
	}
	return nil
}

const (
	DroneCount    UpgradeKind = "DroneCount"
	DroneSpeed    UpgradeKind = "DroneSpeed"
	DroneCapacity UpgradeKind = "DroneCapacity"
	MiningPower   UpgradeKind = "MiningPower"

	Workers   UpgradeKind = "Workers"
	Conveyor  UpgradeKind = "Conveyor"
	Smelter   UpgradeKind = "Smelter"
	Warehouse UpgradeKind = "Warehouse"
	Marketing UpgradeKind = "Marketing"
)

var builtinVariants = map[string]Variant{
	"drones": {
		Name:           "drones",
		CurrencyField:  "money",
		CurrencyLabel:  "Money",
		ReadyField:     "ready",
		TimeScaleField: "timeScale",
		Upgrades: []UpgradeSpec{
			{Kind: DroneCount, Label: "Drones", CostField: "droneCost", LevelField: "droneCount", Mutator: "buyDrone"},
			{Kind: DroneSpeed, Label: "Drone Speed", CostField: "speedCost", LevelField: "droneSpeed", Mutator: "upgradeSpeed"},
			{Kind: DroneCapacity, Label: "Drone Capacity", CostField: "capacityCost", LevelField: "droneCapacity", Mutator: "upgradeCapacity"},
			{Kind: MiningPower, Label: "Mining Power", CostField: "miningCost", LevelField: "miningPower", Mutator: "upgradeMining"},
		},
	},
	"factory": {
		Name:           "factory",
		CurrencyField:  "gold",
		CurrencyLabel:  "Gold",
		ReadyField:     "initialized",
		TimeScaleField: "speed",
		Upgrades: []UpgradeSpec{
			{Kind: Workers, Label: "Workers", CostField: "workerCost", LevelField: "workers", Mutator: "hireWorker"},
			{Kind: Conveyor, Label: "Conveyor", CostField: "conveyorCost", LevelField: "conveyorLevel", Mutator: "upgradeConveyor"},
			{Kind: Smelter, Label: "Smelter", CostField: "smelterCost", LevelField: "smelterLevel", Mutator: "upgradeSmelter"},
			{Kind: Warehouse, Label: "Warehouse", CostField: "warehouseCost", LevelField: "warehouseLevel", Mutator: "upgradeWarehouse"},
			{Kind: Marketing, Label: "Marketing", CostField: "marketingCost", LevelField: "marketingLevel", Mutator: "runMarketing"},
		},
	},
}

// BuiltinVariant returns a copy of a built-in variant by name.
func BuiltinVariant(name string) (Variant, bool) {
	v, ok := builtinVariants[name]
	if !ok {
		return Variant{}, false
	}
	v.Upgrades = append([]UpgradeSpec(nil), v.Upgrades...)
	return v, true
}

// BuiltinVariantNames returns the sorted names of the built-in variants.
func BuiltinVariantNames() []string {
	names := make([]string, 0, len(builtinVariants))
	for name := range builtinVariants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Levels tracks how many times each upgrade kind was bought this session.
// Levels only ever go up.
type Levels struct {
	kinds  []UpgradeKind
	levels map[UpgradeKind]int
	lock   sync.Mutex
}

// NewLevels creates a zeroed level table for kinds.
func NewLevels(kinds []UpgradeKind) *Levels {
	l := &Levels{
		kinds:  append([]UpgradeKind(nil), kinds...),
		levels: make(map[UpgradeKind]int, len(kinds)),
	}
	for _, k := range kinds {
		l.levels[k] = 0
	}
	return l
}

// Increment raises the level of kind by one and returns the new level.
func (l *Levels) Increment(kind UpgradeKind) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.levels[kind]++
	return l.levels[kind]
}

// Get returns the current level of kind.
func (l *Levels) Get(kind UpgradeKind) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.levels[kind]
}

// Snapshot returns a copy of all levels.
func (l *Levels) Snapshot() map[UpgradeKind]int {
	l.lock.Lock()
	defer l.lock.Unlock()
	out := make(map[UpgradeKind]int, len(l.levels))
	for k, v := range l.levels {
		out[k] = v
	}
	return out
}

// Kinds returns the tracked kinds in declaration order.
func (l *Levels) Kinds() []UpgradeKind {
	return append([]UpgradeKind(nil), l.kinds...)
}
