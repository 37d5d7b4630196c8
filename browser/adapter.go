// Package browser drives a game running in Chrome through the DevTools
// protocol. The game publishes itself as a JavaScript object (window.game by
// default) which this adapter reads and mutates.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"idlebot/core"
	"idlebot/game"
)

const callTimeout = 5 * time.Second

// Adapter implements game.GameStateAdapter on top of a chromedp tab.
type Adapter struct {
	tab     context.Context
	cancel  context.CancelFunc
	object  string
	variant game.Variant
}

// New opens a tab, either in a remote Chrome (chrome_url) or in a locally
// started one, and navigates it to page_url when set.
func New(parent context.Context, cfg core.BrowserConfig, variant game.Variant) (*Adapter, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.ChromeURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, cfg.ChromeURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", cfg.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, opts...)
	}

	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Printf),
		chromedp.WithErrorf(log.Printf),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	if cfg.PageURL != "" {
		if err := chromedp.Run(tab, chromedp.Navigate(cfg.PageURL)); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open %s: %w", cfg.PageURL, err)
		}
	} else if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	object := cfg.Object
	if object == "" {
		object = "window.game"
	}
	return &Adapter{
		tab:     tab,
		cancel:  cancel,
		object:  object,
		variant: variant,
	}, nil
}

// Close shuts the tab and, for a locally started browser, Chrome itself.
func (a *Adapter) Close() {
	a.cancel()
}

// eval runs expr in the tab. The call is bounded by callTimeout and by ctx.
func (a *Adapter) eval(ctx context.Context, expr string, res interface{}) error {
	callCtx, cancel := context.WithTimeout(a.tab, callTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(callCtx, chromedp.Evaluate(expr, res))
}

type numbersResult struct {
	Absent bool                `json:"absent"`
	Values map[string]*float64 `json:"values"`
}

func (a *Adapter) readNumbers(ctx context.Context, fields []string) (map[string]float64, error) {
	var res numbersResult
	if err := a.eval(ctx, readNumbersScript(a.object, fields), &res); err != nil {
		return nil, err
	}
	if res.Absent {
		return nil, game.ErrNotReady
	}
	out := make(map[string]float64, len(fields))
	for _, f := range fields {
		v := res.Values[f]
		if v == nil {
			return nil, fmt.Errorf("%w: %s", game.ErrMissingField, f)
		}
		out[f] = *v
	}
	return out, nil
}

func (a *Adapter) Ready(ctx context.Context) (bool, error) {
	var ready bool
	if err := a.eval(ctx, readyScript(a.object, a.variant.ReadyField), &ready); err != nil {
		return false, err
	}
	return ready, nil
}

func (a *Adapter) ReadCurrency(ctx context.Context) (game.Currency, error) {
	values, err := a.readNumbers(ctx, []string{a.variant.CurrencyField})
	if err != nil {
		return 0, err
	}
	return values[a.variant.CurrencyField], nil
}

func (a *Adapter) ReadCosts(ctx context.Context) (game.CostTable, error) {
	fields := make([]string, 0, len(a.variant.Upgrades))
	for _, u := range a.variant.Upgrades {
		fields = append(fields, u.CostField)
	}
	values, err := a.readNumbers(ctx, fields)
	if err != nil {
		return nil, err
	}
	costs := make(game.CostTable, len(a.variant.Upgrades))
	for _, u := range a.variant.Upgrades {
		costs[u.Kind] = values[u.CostField]
	}
	return costs, nil
}

func (a *Adapter) ReadLevels(ctx context.Context) (map[game.UpgradeKind]float64, error) {
	var fields []string
	for _, u := range a.variant.Upgrades {
		if u.LevelField != "" {
			fields = append(fields, u.LevelField)
		}
	}
	values, err := a.readNumbers(ctx, fields)
	if err != nil {
		return nil, err
	}
	levels := make(map[game.UpgradeKind]float64, len(fields))
	for _, u := range a.variant.Upgrades {
		if u.LevelField != "" {
			levels[u.Kind] = values[u.LevelField]
		}
	}
	return levels, nil
}

func (a *Adapter) Apply(ctx context.Context, mutator string) error {
	var status string
	if err := a.eval(ctx, callScript(a.object, mutator), &status); err != nil {
		return err
	}
	return statusError(status, mutator)
}

func (a *Adapter) SetCurrency(ctx context.Context, amount game.Currency) error {
	return a.assign(ctx, a.variant.CurrencyField, amount)
}

func (a *Adapter) SetTimeScale(ctx context.Context, scale float64) error {
	if a.variant.TimeScaleField == "" {
		return fmt.Errorf("%w: time scale", game.ErrMissingField)
	}
	return a.assign(ctx, a.variant.TimeScaleField, scale)
}

func (a *Adapter) assign(ctx context.Context, field string, value float64) error {
	var status string
	if err := a.eval(ctx, assignScript(a.object, field, value), &status); err != nil {
		return err
	}
	return statusError(status, field)
}

func statusError(status, name string) error {
	switch status {
	case "ok":
		return nil
	case "absent":
		return game.ErrNotReady
	case "missing":
		return fmt.Errorf("%w: %s", game.ErrMissingField, name)
	}
	return fmt.Errorf("%s: %s", name, status)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func readyScript(object, field string) string {
	if field == "" {
		return fmt.Sprintf(`(() => { try { return !!(%s); } catch (e) { return false; } })()`, object)
	}
	return fmt.Sprintf(`(() => { try { const g = %s; return !!g && !!g[%s]; } catch (e) { return false; } })()`,
		object, jsString(field))
}

func readNumbersScript(object string, fields []string) string {
	list, _ := json.Marshal(fields)
	return fmt.Sprintf(`(() => {
	let g;
	try { g = %s; } catch (e) { g = undefined; }
	if (!g) return {absent: true, values: {}};
	const values = {};
	for (const f of %s) {
		const v = Number(g[f]);
		values[f] = (g[f] === undefined || g[f] === null || Number.isNaN(v)) ? null : v;
	}
	return {absent: false, values: values};
})()`, object, list)
}

func callScript(object, method string) string {
	return fmt.Sprintf(`(() => {
	let g;
	try { g = %s; } catch (e) { g = undefined; }
	if (!g) return "absent";
	if (typeof g[%[2]s] !== "function") return "missing";
	try { g[%[2]s](); } catch (e) { return String(e); }
	return "ok";
})()`, object, jsString(method))
}

func assignScript(object, field string, value float64) string {
	return fmt.Sprintf(`(() => {
	let g;
	try { g = %s; } catch (e) { g = undefined; }
	if (!g) return "absent";
	if (!(%[2]s in g)) return "missing";
	g[%[2]s] = %[3]g;
	return "ok";
})()`, object, jsString(field), value)
}
