package game

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"idlebot/core"
)

// PageAdapter reads the game from its HTML page and buys upgrades with form
// posts. Reads share the last fetched page until Refresh is called or a form
// is posted; Ready always fetches.
type PageAdapter struct {
	wrapper core.WebWrapperInterface
	variant Variant
	path    string
	buyPath string
	token   string
	page    *pageState
	lock    sync.Mutex
}

// NewPageAdapter creates a PageAdapter for the page at path.
func NewPageAdapter(wrapper core.WebWrapperInterface, variant Variant, path, buyPath string) *PageAdapter {
	return &PageAdapter{
		wrapper: wrapper,
		variant: variant,
		path:    path,
		buyPath: buyPath,
	}
}

type pageState struct {
	data core.GameData
	rows map[string]core.UpgradeRow
}

func (pa *PageAdapter) fetch(ctx context.Context) (*pageState, error) {
	resp, err := pa.wrapper.GetURL(ctx, pa.path)
	if err != nil {
		return nil, fmt.Errorf("failed to get game page: %w", err)
	}
	body, err := core.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read game page: %w", err)
	}

	data, err := core.Extractor.GameData(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	rows, err := core.Extractor.UpgradeRows(body)
	if err != nil {
		return nil, err
	}
	state := &pageState{data: data, rows: rows}
	pa.lock.Lock()
	if token, err := core.Extractor.Token(body); err == nil {
		pa.token = token
	}
	pa.page = state
	pa.lock.Unlock()
	return state, nil
}

// current returns the cached page, fetching it if there is none.
func (pa *PageAdapter) current(ctx context.Context) (*pageState, error) {
	pa.lock.Lock()
	state := pa.page
	pa.lock.Unlock()
	if state != nil {
		return state, nil
	}
	return pa.fetch(ctx)
}

// Refresh drops the cached page.
func (pa *PageAdapter) Refresh() {
	pa.lock.Lock()
	pa.page = nil
	pa.lock.Unlock()
}

func (pa *PageAdapter) Ready(ctx context.Context) (bool, error) {
	state, err := pa.fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return false, nil
		}
		return false, err
	}
	if pa.variant.ReadyField == "" {
		return true, nil
	}
	ready, _ := state.data.Bool(pa.variant.ReadyField)
	return ready, nil
}

func (pa *PageAdapter) ReadCurrency(ctx context.Context) (Currency, error) {
	state, err := pa.current(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := state.data.Number(pa.variant.CurrencyField)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, pa.variant.CurrencyField)
	}
	return v, nil
}

// ReadCosts prefers the cost fields of the game data and falls back to the
// upgrade table row of the same mutator.
func (pa *PageAdapter) ReadCosts(ctx context.Context) (CostTable, error) {
	state, err := pa.current(ctx)
	if err != nil {
		return nil, err
	}
	costs := make(CostTable, len(pa.variant.Upgrades))
	for _, u := range pa.variant.Upgrades {
		if v, ok := state.data.Number(u.CostField); ok {
			costs[u.Kind] = v
			continue
		}
		if row, ok := state.rows[u.Mutator]; ok {
			costs[u.Kind] = row.Cost
			continue
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingField, u.CostField)
	}
	return costs, nil
}

func (pa *PageAdapter) ReadLevels(ctx context.Context) (map[UpgradeKind]float64, error) {
	state, err := pa.current(ctx)
	if err != nil {
		return nil, err
	}
	levels := make(map[UpgradeKind]float64, len(pa.variant.Upgrades))
	for _, u := range pa.variant.Upgrades {
		if v, ok := state.data.Number(u.LevelField); ok {
			levels[u.Kind] = v
		} else if row, ok := state.rows[u.Mutator]; ok {
			levels[u.Kind] = row.Level
		}
	}
	return levels, nil
}

// Apply posts the purchase form for mutator.
func (pa *PageAdapter) Apply(ctx context.Context, mutator string) error {
	return pa.post(ctx, url.Values{"method": {mutator}})
}

func (pa *PageAdapter) SetCurrency(ctx context.Context, amount Currency) error {
	return pa.post(ctx, url.Values{
		"method": {"set"},
		"field":  {pa.variant.CurrencyField},
		"value":  {fmt.Sprintf("%g", amount)},
	})
}

func (pa *PageAdapter) SetTimeScale(ctx context.Context, scale float64) error {
	if pa.variant.TimeScaleField == "" {
		return fmt.Errorf("%w: time scale", ErrMissingField)
	}
	return pa.post(ctx, url.Values{
		"method": {"set"},
		"field":  {pa.variant.TimeScaleField},
		"value":  {fmt.Sprintf("%g", scale)},
	})
}

func (pa *PageAdapter) post(ctx context.Context, data url.Values) error {
	pa.lock.Lock()
	if pa.token != "" {
		data.Set("h", pa.token)
	}
	pa.lock.Unlock()

	resp, err := pa.wrapper.PostURL(ctx, pa.buyPath, data)
	pa.Refresh()
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", data.Get("method"), err)
	}
	if _, err := core.ReadBody(resp); err != nil {
		return fmt.Errorf("%s rejected: %w", data.Get("method"), err)
	}
	return nil
}
