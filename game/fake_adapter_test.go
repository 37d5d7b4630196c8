package game

import (
	"context"
	"fmt"
	"sync"
)

const (
	kindA UpgradeKind = "A"
	kindB UpgradeKind = "B"
	kindC UpgradeKind = "C"
)

func testVariant() Variant {
	return Variant{
		Name:          "test",
		CurrencyField: "money",
		CurrencyLabel: "Money",
		ReadyField:    "ready",
		Upgrades: []UpgradeSpec{
			{Kind: kindA, Label: "Alpha", CostField: "aCost", LevelField: "aLevel", Mutator: "buyA"},
			{Kind: kindB, Label: "Beta", CostField: "bCost", LevelField: "bLevel", Mutator: "buyB"},
			{Kind: kindC, Label: "Gamma", CostField: "cCost", LevelField: "cLevel", Mutator: "buyC"},
		},
	}
}

// fakeAdapter is a game object whose numbers only change when a test says so.
type fakeAdapter struct {
	ready       bool
	currency    Currency
	costs       CostTable
	readErr     error
	applyErr    error
	applied     []string
	setCurrency []Currency
	timeScales  []float64
	lock        sync.Mutex
}

func newFakeAdapter(currency Currency, costs CostTable) *fakeAdapter {
	return &fakeAdapter{ready: true, currency: currency, costs: costs}
}

func (f *fakeAdapter) set(currency Currency, costs CostTable) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.currency = currency
	f.costs = costs
}

func (f *fakeAdapter) Applied() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.applied...)
}

func (f *fakeAdapter) Ready(ctx context.Context) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.ready, nil
}

func (f *fakeAdapter) ReadCurrency(ctx context.Context) (Currency, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.currency, nil
}

func (f *fakeAdapter) ReadCosts(ctx context.Context) (CostTable, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	costs := make(CostTable, len(f.costs))
	for k, v := range f.costs {
		costs[k] = v
	}
	return costs, nil
}

func (f *fakeAdapter) ReadLevels(ctx context.Context) (map[UpgradeKind]float64, error) {
	return nil, fmt.Errorf("%w: levels", ErrMissingField)
}

func (f *fakeAdapter) Apply(ctx context.Context, mutator string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, mutator)
	return nil
}

func (f *fakeAdapter) SetCurrency(ctx context.Context, amount Currency) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.currency = amount
	f.setCurrency = append(f.setCurrency, amount)
	return nil
}

func (f *fakeAdapter) SetTimeScale(ctx context.Context, scale float64) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.timeScales = append(f.timeScales, scale)
	return nil
}
