package core

import (
	"testing"
)

const testPage = `
<html>
<body>
	<form id="buy"><input type="hidden" name="h" value="a1b2c3"></form>
	<table id="upgrades">
		<tr><th>Upgrade</th><th>Level</th><th>Cost</th></tr>
		<tr data-upgrade="buyDrone">
			<td class="name">Drone</td>
			<td class="level">3</td>
			<td><span class="cost">1,250</span></td>
			<td><a class="btn-buy" href="/upgrade?method=buyDrone">Buy</a></td>
		</tr>
		<tr data-upgrade="upgradeSpeed">
			<td class="name">Speed</td>
			<td class="level">0</td>
			<td><span class="cost">40.5</span></td>
			<td><a class="btn-buy disabled" href="/upgrade?method=upgradeSpeed">Buy</a></td>
		</tr>
		<tr data-upgrade="">
			<td class="name">Broken</td>
		</tr>
	</table>
	<script>
		Game.updateData({
			"money": 1500.75,
			"ready": true,
			"droneCost": "1250",
			"speedCost": 40.5,
			"timeScale": 1
		});
	</script>
</body>
</html>
`

func TestExtractor_GameData(t *testing.T) {
	data, err := Extractor.GameData(testPage)
	if err != nil {
		t.Fatalf("GameData failed: %v", err)
	}

	if money, ok := data.Number("money"); !ok || money != 1500.75 {
		t.Errorf("Expected money to be 1500.75, got %v (%v)", money, ok)
	}
	if cost, ok := data.Number("droneCost"); !ok || cost != 1250 {
		t.Errorf("Expected string droneCost to parse as 1250, got %v (%v)", cost, ok)
	}
	if ready, ok := data.Bool("ready"); !ok || !ready {
		t.Errorf("Expected ready to be true, got %v (%v)", ready, ok)
	}
	if _, ok := data.Number("capacityCost"); ok {
		t.Error("Expected missing field to report false")
	}
}

func TestExtractor_GameDataMissing(t *testing.T) {
	if _, err := Extractor.GameData("<html><body>loading...</body></html>"); err == nil {
		t.Error("Expected error for page without game data")
	}
	if _, err := Extractor.GameData("<script>Game.updateData({broken);</script>"); err == nil {
		t.Error("Expected error for malformed game data")
	}
	if _, err := Extractor.GameData("<script>Game.updateData(null);</script>"); err == nil {
		t.Error("Expected error for null game data")
	}
}

func TestExtractor_GameDataStringWithCallEnd(t *testing.T) {
	page := `<script>
Game.updateData({"title": "Drones (beta);", "hint": "call buyDrone();", "money": 42, "ready": true});
</script>`
	data, err := Extractor.GameData(page)
	if err != nil {
		t.Fatalf("GameData failed: %v", err)
	}
	if title, _ := data["title"].(string); title != "Drones (beta);" {
		t.Errorf("Expected full title, got %q", title)
	}
	if money, ok := data.Number("money"); !ok || money != 42 {
		t.Errorf("Expected money after the string fields to be 42, got %v (%v)", money, ok)
	}
}

func TestExtractor_UpgradeRows(t *testing.T) {
	rows, err := Extractor.UpgradeRows(testPage)
	if err != nil {
		t.Fatalf("UpgradeRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	drone := rows["buyDrone"]
	if drone.Name != "Drone" || drone.Level != 3 || drone.Cost != 1250 {
		t.Errorf("Unexpected drone row: %+v", drone)
	}
	if !drone.CanBuy || drone.BuyLink != "/upgrade?method=buyDrone" {
		t.Errorf("Expected drone to be buyable, got %+v", drone)
	}

	speed := rows["upgradeSpeed"]
	if speed.Cost != 40.5 {
		t.Errorf("Expected speed cost 40.5, got %v", speed.Cost)
	}
	if speed.CanBuy {
		t.Error("Expected disabled buy link to mark the row as not buyable")
	}
}

func TestExtractor_Token(t *testing.T) {
	h, err := Extractor.Token(testPage)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if h != "a1b2c3" {
		t.Errorf("Expected token a1b2c3, got %s", h)
	}

	if _, err := Extractor.Token("<html></html>"); err == nil {
		t.Error("Expected error when token is missing")
	}
}
