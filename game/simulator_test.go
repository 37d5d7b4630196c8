package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_ApplyAndCosts(t *testing.T) {
	v, _ := BuiltinVariant("drones")
	sim := NewSimulator(v, 100)
	ctx := context.Background()

	costs, err := sim.ReadCosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, CostTable{DroneCount: 10, DroneSpeed: 40, DroneCapacity: 85, MiningPower: 145}, costs)

	require.NoError(t, sim.Apply(ctx, "buyDrone"))
	assert.Equal(t, 1, sim.Level(DroneCount))
	assert.Equal(t, 90.0, sim.Currency())

	costs, err = sim.ReadCosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.0, costs[DroneCount], "cost grows with the level")

	assert.Error(t, sim.Apply(ctx, "upgradeMining"), "cannot afford")
	assert.Equal(t, 0, sim.Level(MiningPower))
	assert.ErrorIs(t, sim.Apply(ctx, "selfDestruct"), ErrMissingField)
	assert.Equal(t, []string{"buyDrone"}, sim.Calls())
}

func TestSimulator_Income(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	v, _ := BuiltinVariant("factory")
	sim := NewSimulator(v, 0)
	sim.SetIncome(2)
	require.NoError(t, sim.SetTimeScale(context.Background(), 3))

	now = now.Add(10 * time.Second)
	assert.Equal(t, 60.0, sim.Currency())

	require.NoError(t, sim.SetCurrency(context.Background(), UnlimitedCurrency))
	now = now.Add(10 * time.Second)
	assert.Equal(t, float64(UnlimitedCurrency), sim.Currency())
}

func TestSimulator_NotReadyAndMissing(t *testing.T) {
	v, _ := BuiltinVariant("drones")
	sim := NewSimulator(v, 0)
	ctx := context.Background()

	sim.SetReadyAfter(2)
	for i := 0; i < 2; i++ {
		ready, err := sim.Ready(ctx)
		require.NoError(t, err)
		assert.False(t, ready)
	}
	ready, _ := sim.Ready(ctx)
	assert.True(t, ready)

	sim.RemoveField("money")
	_, err := sim.ReadCurrency(ctx)
	assert.ErrorIs(t, err, ErrMissingField)
	sim.RestoreField("money")
	_, err = sim.ReadCurrency(ctx)
	assert.NoError(t, err)

	sim.SetAbsent(true)
	ready, _ = sim.Ready(ctx)
	assert.False(t, ready)
	_, err = sim.ReadCosts(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
}
