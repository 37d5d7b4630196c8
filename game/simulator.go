package game

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Simulator is an in-process incremental game. It stands in for the real
// game object in dry-run mode and in tests.
type Simulator struct {
	variant         Variant
	currency        float64
	levels          map[UpgradeKind]int
	baseCosts       map[UpgradeKind]float64
	fixedCosts      map[UpgradeKind]float64
	growth          float64
	incomePerSecond float64
	timeScale       float64
	readyAfter      int
	readyChecks     int
	absent          bool
	missing         map[string]bool
	calls           []string
	lastAccrual     time.Time
	lock            sync.Mutex
}

// NewSimulator creates a ready simulator for variant with the given balance.
// Costs start at 10, 40, 85, ... in declaration order and grow 15% per level.
func NewSimulator(variant Variant, currency float64) *Simulator {
	sim := &Simulator{
		variant:     variant,
		currency:    currency,
		levels:      make(map[UpgradeKind]int),
		baseCosts:   make(map[UpgradeKind]float64),
		fixedCosts:  make(map[UpgradeKind]float64),
		growth:      1.15,
		timeScale:   1,
		missing:     make(map[string]bool),
		lastAccrual: timeNow(),
	}
	for i, u := range variant.Upgrades {
		sim.baseCosts[u.Kind] = 10 + 7.5*float64(i*(i+3))
	}
	return sim
}

// SetIncome sets the passive income per second at level zero.
// Every purchased level adds another unit of income.
func (sim *Simulator) SetIncome(perSecond float64) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	sim.accrue()
	sim.incomePerSecond = perSecond
}

// SetCost pins the cost of kind regardless of its level.
func (sim *Simulator) SetCost(kind UpgradeKind, cost float64) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	sim.fixedCosts[kind] = cost
}

// SetReadyAfter makes the game report not ready for the first n checks.
func (sim *Simulator) SetReadyAfter(n int) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	sim.readyAfter = n
	sim.readyChecks = 0
}

// SetAbsent simulates the game object disappearing from the page.
func (sim *Simulator) SetAbsent(absent bool) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	sim.absent = absent
}

// RemoveField makes reads of the named field fail.
func (sim *Simulator) RemoveField(field string) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	sim.missing[field] = true
}

// RestoreField undoes RemoveField.
func (sim *Simulator) RestoreField(field string) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	delete(sim.missing, field)
}

// Calls returns the mutators invoked so far, in order.
func (sim *Simulator) Calls() []string {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	return append([]string(nil), sim.calls...)
}

// Currency returns the balance without going through the adapter interface.
func (sim *Simulator) Currency() float64 {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	sim.accrue()
	return sim.currency
}

// Level returns the game-side level of kind.
func (sim *Simulator) Level(kind UpgradeKind) int {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	return sim.levels[kind]
}

// TimeScale returns the game speed multiplier.
func (sim *Simulator) TimeScale() float64 {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	return sim.timeScale
}

func (sim *Simulator) accrue() {
	now := timeNow()
	elapsed := now.Sub(sim.lastAccrual).Seconds()
	sim.lastAccrual = now
	if sim.incomePerSecond <= 0 || elapsed <= 0 || sim.currency >= UnlimitedCurrency {
		return
	}
	total := 1
	for _, l := range sim.levels {
		total += l
	}
	sim.currency += sim.incomePerSecond * float64(total) * sim.timeScale * elapsed
}

func (sim *Simulator) cost(kind UpgradeKind) float64 {
	if c, ok := sim.fixedCosts[kind]; ok {
		return c
	}
	return math.Round(sim.baseCosts[kind] * math.Pow(sim.growth, float64(sim.levels[kind])))
}

func (sim *Simulator) check(field string) error {
	if sim.absent {
		return ErrNotReady
	}
	if sim.missing[field] {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}

func (sim *Simulator) Ready(ctx context.Context) (bool, error) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	if sim.absent {
		return false, nil
	}
	sim.readyChecks++
	return sim.readyChecks > sim.readyAfter, nil
}

func (sim *Simulator) ReadCurrency(ctx context.Context) (Currency, error) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	if err := sim.check(sim.variant.CurrencyField); err != nil {
		return 0, err
	}
	sim.accrue()
	return sim.currency, nil
}

func (sim *Simulator) ReadCosts(ctx context.Context) (CostTable, error) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	costs := make(CostTable, len(sim.variant.Upgrades))
	for _, u := range sim.variant.Upgrades {
		if err := sim.check(u.CostField); err != nil {
			return nil, err
		}
		costs[u.Kind] = sim.cost(u.Kind)
	}
	return costs, nil
}

func (sim *Simulator) ReadLevels(ctx context.Context) (map[UpgradeKind]float64, error) {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	levels := make(map[UpgradeKind]float64, len(sim.variant.Upgrades))
	for _, u := range sim.variant.Upgrades {
		if u.LevelField == "" {
			continue
		}
		if err := sim.check(u.LevelField); err != nil {
			return nil, err
		}
		levels[u.Kind] = float64(sim.levels[u.Kind])
	}
	return levels, nil
}

// Apply buys one level of the upgrade behind mutator, if affordable.
func (sim *Simulator) Apply(ctx context.Context, mutator string) error {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	if err := sim.check(mutator); err != nil {
		return err
	}
	for _, u := range sim.variant.Upgrades {
		if u.Mutator != mutator {
			continue
		}
		sim.accrue()
		cost := sim.cost(u.Kind)
		if cost > sim.currency {
			return fmt.Errorf("cannot afford %s: %.0f > %.0f", u.Kind, cost, sim.currency)
		}
		sim.currency -= cost
		sim.levels[u.Kind]++
		sim.calls = append(sim.calls, mutator)
		return nil
	}
	return fmt.Errorf("%w: game has no method %s()", ErrMissingField, mutator)
}

func (sim *Simulator) SetCurrency(ctx context.Context, amount Currency) error {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	if err := sim.check(sim.variant.CurrencyField); err != nil {
		return err
	}
	sim.accrue()
	sim.currency = amount
	return nil
}

func (sim *Simulator) SetTimeScale(ctx context.Context, scale float64) error {
	sim.lock.Lock()
	defer sim.lock.Unlock()
	if err := sim.check(sim.variant.TimeScaleField); err != nil {
		return err
	}
	sim.accrue()
	sim.timeScale = scale
	return nil
}
