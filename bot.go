package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"idlebot/browser"
	"idlebot/core"
	"idlebot/export"
	"idlebot/game"
	"idlebot/telemetry"
	"idlebot/web"
)

const (
	stateTimeout  = 2 * time.Second
	recentEntries = 10
)

// Bot represents the main bot application.
type Bot struct {
	ConfigManager *core.ConfigManager
	Variant       game.Variant
	Adapter       game.GameStateAdapter
	Exporter      game.Exporter
	Hub           *web.Hub
	scheduler     *game.Scheduler
	closeAdapter  func()
}

// NewBot builds the adapter, exporter and dashboard hub named in the config.
func NewBot(ctx context.Context, cm *core.ConfigManager) (*Bot, error) {
	config := cm.GetConfig()

	variant, err := game.ResolveVariant(config)
	if err != nil {
		return nil, err
	}
	adapter, closeAdapter, err := newAdapter(ctx, config, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter: %w", config.Game.Adapter, err)
	}
	exporter, err := export.New(config.Export)
	if err != nil {
		closeAdapter()
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	bot, err := NewBotWithDeps(cm, variant, adapter, exporter, web.NewHub(nil))
	if err != nil {
		closeAdapter()
		export.Close(exporter)
		return nil, err
	}
	bot.closeAdapter = closeAdapter
	if config.Telemetry.Enabled {
		bot.scheduler.SetTracer(telemetry.Tracer("scheduler"))
	}
	return bot, nil
}

// NewBotWithDeps creates a new Bot with dependencies. hub may be nil.
func NewBotWithDeps(cm *core.ConfigManager, variant game.Variant, adapter game.GameStateAdapter, exporter game.Exporter, hub *web.Hub) (*Bot, error) {
	sink := game.MultiSink{game.LogSink{Prefix: "Bot"}}
	if hub != nil {
		sink = append(sink, hub)
	}

	scheduler, err := game.NewScheduler(game.SchedulerConfigFrom(cm.GetConfig().Bot), variant, adapter, sink, exporter)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	bot := &Bot{
		ConfigManager: cm,
		Variant:       variant,
		Adapter:       adapter,
		Exporter:      exporter,
		Hub:           hub,
		scheduler:     scheduler,
		closeAdapter:  func() {},
	}
	if hub != nil {
		hub.SetBot(bot)
		scheduler.OnStateChange(func(game.State) { hub.BroadcastFullState() })
	}
	return bot, nil
}

func newAdapter(ctx context.Context, config *core.Config, variant game.Variant) (game.GameStateAdapter, func(), error) {
	switch config.Game.Adapter {
	case core.AdapterBrowser:
		a, err := browser.New(ctx, config.Game.Browser, variant)
		if err != nil {
			return nil, nil, err
		}
		return a, a.Close, nil
	case core.AdapterPage:
		page := config.Game.Page
		wrapper, err := core.NewWebWrapper(page.Server, page.RandomDelay.MinDelay, page.RandomDelay.MaxDelay, page.Credentials)
		if err != nil {
			return nil, nil, err
		}
		return game.NewPageAdapter(wrapper, variant, page.Path, page.BuyPath), func() {}, nil
	case core.AdapterSimulator:
		sim := game.NewSimulator(variant, config.Game.Sim.StartCurrency)
		sim.SetIncome(config.Game.Sim.IncomePerSecond)
		return sim, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", config.Game.Adapter)
}

// Run runs one session and releases the bot's resources afterwards.
func (b *Bot) Run(ctx context.Context) error {
	defer b.Close()

	config := b.ConfigManager.GetConfig()
	if !config.Bot.Enabled {
		log.Println("[Bot] disabled in config, nothing to do")
		return nil
	}
	log.Printf("[Bot] starting session %s (%s, %s mode, %s adapter)",
		b.scheduler.SessionID(), b.Variant.Name, b.scheduler.Mode(), config.Game.Adapter)
	return b.scheduler.Run(ctx)
}

// Close releases the adapter and exporter.
func (b *Bot) Close() {
	b.closeAdapter()
	export.Close(b.Exporter)
}

// Scheduler returns the session scheduler.
func (b *Bot) Scheduler() *game.Scheduler {
	return b.scheduler
}

// Pause pauses the bot.
func (b *Bot) Pause() {
	b.scheduler.SetPaused(true)
	log.Println("[Bot] paused")
}

// Resume resumes the bot.
func (b *Bot) Resume() {
	b.scheduler.SetPaused(false)
	log.Println("[Bot] resumed")
}

// UpdateSetting saves one bot setting to the config file. The running
// session keeps its settings; the change applies from the next session.
func (b *Bot) UpdateSetting(key string, value any) error {
	if err := b.ConfigManager.UpdateBotConfig(key, value); err != nil {
		return err
	}
	log.Printf("[Bot] setting %s updated to %v", key, value)
	return nil
}

// IsPaused returns true if the bot is paused.
func (b *Bot) IsPaused() bool {
	return b.scheduler.IsPaused()
}

type botState struct {
	SessionID string                   `json:"session_id"`
	Variant   string                   `json:"variant"`
	Mode      string                   `json:"mode"`
	State     string                   `json:"state"`
	Paused    bool                     `json:"paused"`
	Ticks     int                      `json:"ticks"`
	Levels    map[game.UpgradeKind]int `json:"levels"`
	Purchases int                      `json:"purchases"`
	Recent    []game.PurchaseLogEntry  `json:"recent"`
	Stats     []game.Stat              `json:"stats"`
}

// State returns a JSON-encoded representation of the current bot state.
func (b *Bot) State() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()

	s := b.scheduler
	entries := s.Purchases().Entries()
	if len(entries) > recentEntries {
		entries = entries[len(entries)-recentEntries:]
	}
	return json.Marshal(botState{
		SessionID: s.SessionID(),
		Variant:   b.Variant.Name,
		Mode:      s.Mode(),
		State:     s.State().String(),
		Paused:    s.IsPaused(),
		Ticks:     s.Ticks(),
		Levels:    s.Levels().Snapshot(),
		Purchases: s.Purchases().Len(),
		Recent:    entries,
		Stats:     s.Snapshot(ctx),
	})
}
