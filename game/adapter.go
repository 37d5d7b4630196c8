package game

import "context"

// GameStateAdapter gives access to an externally owned game object.
// The bot never holds an authoritative copy of anything it reads here.
type GameStateAdapter interface {
	// Ready reports whether the game object exists and is flagged ready.
	Ready(ctx context.Context) (bool, error)
	// ReadCurrency returns the current balance.
	ReadCurrency(ctx context.Context) (Currency, error)
	// ReadCosts returns a fresh snapshot of the upgrade costs.
	ReadCosts(ctx context.Context) (CostTable, error)
	// ReadLevels returns the game's own per-upgrade level or value fields.
	ReadLevels(ctx context.Context) (map[UpgradeKind]float64, error)
	// Apply calls the named zero-argument mutator on the game object.
	Apply(ctx context.Context, mutator string) error
	// SetCurrency overwrites the balance.
	SetCurrency(ctx context.Context, amount Currency) error
	// SetTimeScale sets the game's global speed multiplier.
	SetTimeScale(ctx context.Context, scale float64) error
}

// Refresher is implemented by adapters that reuse one read of the game for
// several calls. Refresh drops that read; the scheduler calls it at the
// start of every tick so costs are never carried over between ticks.
type Refresher interface {
	Refresh()
}
