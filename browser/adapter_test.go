package browser

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlebot/core"
	"idlebot/game"
)

var chromeURL = flag.String("chrome-url", "", "DevTools websocket URL of a running Chrome for integration tests")

func TestScripts(t *testing.T) {
	assert.Equal(t, `"a\"b"`, jsString(`a"b`))

	s := readyScript("window.game", "ready")
	assert.Contains(t, s, `g["ready"]`)
	assert.Contains(t, readyScript("window.game", ""), "!!(window.game)")

	s = readNumbersScript("window.game", []string{"money", "droneCost"})
	assert.Contains(t, s, `["money","droneCost"]`)
	assert.Contains(t, s, "absent: true")

	s = callScript("window.game", "buyDrone")
	assert.Contains(t, s, `typeof g["buyDrone"] !== "function"`)
	assert.Contains(t, s, `g["buyDrone"]()`)

	s = assignScript("window.game", "money", 1e300)
	assert.Contains(t, s, `g["money"] = 1e+300`)
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, statusError("ok", "buyDrone"))
	assert.ErrorIs(t, statusError("absent", "buyDrone"), game.ErrNotReady)
	assert.ErrorIs(t, statusError("missing", "buyDrone"), game.ErrMissingField)
	assert.EqualError(t, statusError("Error: not enough money", "buyDrone"), "buyDrone: Error: not enough money")
}

const gamePage = `<!doctype html>
<html><body><script>
setTimeout(function () {
	window.game = {
		ready: true, money: 100, timeScale: 1,
		droneCost: 10, droneCount: 0, speedCost: 40, droneSpeed: 0,
		capacityCost: 85, droneCapacity: 0, miningCost: 145, miningPower: 0,
		buyDrone: function () { this.money -= this.droneCost; this.droneCount++; this.droneCost = Math.round(this.droneCost * 1.15); },
		upgradeSpeed: function () { this.money -= this.speedCost; this.droneSpeed++; },
		upgradeCapacity: function () { this.money -= this.capacityCost; this.droneCapacity++; },
		upgradeMining: function () { throw new Error("not enough money"); }
	};
}, 200);
</script></body></html>`

func TestAdapter_Integration(t *testing.T) {
	if *chromeURL == "" {
		t.Skip("set -chrome-url to run against a real browser")
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gamePage)
	}))
	defer server.Close()

	v, _ := game.BuiltinVariant("drones")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := New(ctx, core.BrowserConfig{ChromeURL: *chromeURL, PageURL: server.URL}, v)
	require.NoError(t, err)
	defer a.Close()

	// The page publishes the game object after a delay.
	_, err = a.ReadCurrency(ctx)
	assert.ErrorIs(t, err, game.ErrNotReady)
	require.Eventually(t, func() bool {
		ready, err := a.Ready(ctx)
		return err == nil && ready
	}, 5*time.Second, 50*time.Millisecond)

	money, err := a.ReadCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, money)

	costs, err := a.ReadCosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.CostTable{game.DroneCount: 10, game.DroneSpeed: 40, game.DroneCapacity: 85, game.MiningPower: 145}, costs)

	require.NoError(t, a.Apply(ctx, "buyDrone"))
	levels, err := a.ReadLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, levels[game.DroneCount])

	err = a.Apply(ctx, "upgradeMining")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not enough money"))
	assert.ErrorIs(t, a.Apply(ctx, "teleport"), game.ErrMissingField)

	require.NoError(t, a.SetCurrency(ctx, game.UnlimitedCurrency))
	money, err = a.ReadCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(game.UnlimitedCurrency), money)
	require.NoError(t, a.SetTimeScale(ctx, 2))
}
