package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GameData is the JSON object a game page publishes through Game.updateData(...).
type GameData map[string]interface{}

// Number returns the numeric field key.
func (d GameData) Number(key string) (float64, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Bool returns the boolean field key. Numbers are true when non-zero.
func (d GameData) Bool(key string) (bool, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}

// UpgradeRow is one row of a game page's upgrade table.
type UpgradeRow struct {
	Mutator string
	Name    string
	Level   float64
	Cost    float64
	CanBuy  bool
	BuyLink string
}

// Extractor provides methods for parsing game pages.
var Extractor = &extractor{}

type extractor struct{}

var gameDataRe = regexp.MustCompile(`Game\.updateData\(`)

// GameData extracts the published game object from the HTML. The object is
// decoded straight from the call's argument, so string values may contain
// any characters, including ");".
func (e *extractor) GameData(html string) (GameData, error) {
	loc := gameDataRe.FindStringIndex(html)
	if loc == nil {
		return nil, fmt.Errorf("game data not found in HTML")
	}

	var data GameData
	if err := json.NewDecoder(strings.NewReader(html[loc[1]:])).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game data: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("game data is empty")
	}
	return data, nil
}

// UpgradeRows extracts the upgrade table, keyed by mutator name.
func (e *extractor) UpgradeRows(html string) (map[string]UpgradeRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to create goquery document: %w", err)
	}

	rows := make(map[string]UpgradeRow)
	doc.Find("#upgrades tr[data-upgrade]").Each(func(i int, s *goquery.Selection) {
		mutator, _ := s.Attr("data-upgrade")
		mutator = strings.TrimSpace(mutator)
		if mutator == "" {
			return
		}

		row := UpgradeRow{
			Mutator: mutator,
			Name:    strings.TrimSpace(s.Find("td.name").Text()),
		}
		row.Level, _ = parseAmount(s.Find("td.level").Text())
		row.Cost, _ = parseAmount(s.Find("span.cost").Text())

		link := s.Find("a.btn-buy")
		if href, exists := link.Attr("href"); exists && !link.HasClass("disabled") {
			row.CanBuy = true
			row.BuyLink = href
		}
		rows[mutator] = row
	})

	return rows, nil
}

// Token extracts the anti-forgery token the game expects on purchases.
func (e *extractor) Token(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to create goquery document: %w", err)
	}

	h, exists := doc.Find("input[name=h]").Attr("value")
	if !exists {
		return "", fmt.Errorf("h token not found")
	}

	return h, nil
}

// parseAmount parses numbers as games print them: "1,234", "12.5", " 7 ".
func parseAmount(text string) (float64, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if text == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(text, 64)
}
