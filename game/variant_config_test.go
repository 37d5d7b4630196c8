package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlebot/core"
)

func TestResolveVariant_Builtin(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Game.Variant = "factory"

	v, err := ResolveVariant(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gold", v.CurrencyField)
	assert.Equal(t, []UpgradeKind{Workers, Conveyor, Smelter, Warehouse, Marketing}, v.Kinds())
}

func TestResolveVariant_FromConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Game.Variant = "bakery"
	cfg.Variants = map[string]core.VariantConfig{
		"bakery": {
			CurrencyField: "cookies",
			Upgrades: []core.UpgradeConfig{
				{Kind: "Oven", CostField: "ovenCost", Mutator: "buyOven"},
				{Kind: "Baker", CostField: "bakerCost", Mutator: "hireBaker"},
			},
		},
	}

	v, err := ResolveVariant(cfg)
	require.NoError(t, err)
	assert.Equal(t, "bakery", v.Name)
	assert.Equal(t, []UpgradeKind{"Oven", "Baker"}, v.Kinds())
	assert.Equal(t, map[UpgradeKind]string{"Oven": "buyOven", "Baker": "hireBaker"}, v.Mutators())
}

func TestResolveVariant_Invalid(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Game.Variant = "drone"
	_, err := ResolveVariant(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "drones"`)

	cfg.Game.Variant = "broken"
	cfg.Variants = map[string]core.VariantConfig{
		"broken": {CurrencyField: "x", Upgrades: []core.UpgradeConfig{{Kind: "A", CostField: "a"}, {Kind: "A", CostField: "b"}}},
	}
	_, err = ResolveVariant(cfg)
	assert.ErrorContains(t, err, "duplicate")
}

func TestBuiltinVariant_ReturnsCopy(t *testing.T) {
	v, ok := BuiltinVariant("drones")
	require.True(t, ok)
	v.Upgrades[0].Mutator = "changed"

	again, _ := BuiltinVariant("drones")
	assert.Equal(t, "buyDrone", again.Upgrades[0].Mutator)
	assert.Equal(t, []string{"drones", "factory"}, BuiltinVariantNames())
}

func TestSchedulerConfigFrom(t *testing.T) {
	bot := core.DefaultConfig().Bot
	bot.Mode = core.ModeExperimental
	cfg := SchedulerConfigFrom(bot)

	assert.Equal(t, ModeExperimental, cfg.Mode)
	assert.Equal(t, 10*time.Minute, cfg.SessionDuration)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.NoError(t, cfg.Validate())
}
