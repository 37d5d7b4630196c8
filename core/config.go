package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// Operating modes.
const (
	ModeNormal       = "normal"
	ModeExperimental = "experimental"
)

// Adapter names.
const (
	AdapterBrowser   = "browser"
	AdapterPage      = "page"
	AdapterSimulator = "simulator"
)

// Export modes.
const (
	ExportMemory   = "memory"
	ExportJSON     = "json"
	ExportSQLite   = "sqlite"
	ExportPostgres = "postgres"
)

// Config corresponds to the structure of the YAML config file.
type Config struct {
	Bot        BotConfig                `yaml:"bot"`
	Game       GameConfig               `yaml:"game"`
	Export     ExportConfig             `yaml:"export"`
	WebManager WebManagerConfig         `yaml:"webmanager"`
	Telemetry  TelemetryConfig          `yaml:"telemetry"`
	Variants   map[string]VariantConfig `yaml:"variants,omitempty"`
}

// VariantConfig declares a game variant not built into the bot.
type VariantConfig struct {
	CurrencyField  string          `yaml:"currency_field"`
	CurrencyLabel  string          `yaml:"currency_label"`
	ReadyField     string          `yaml:"ready_field"`
	TimeScaleField string          `yaml:"time_scale_field"`
	Upgrades       []UpgradeConfig `yaml:"upgrades"`
}

// UpgradeConfig binds one upgrade kind to the game object's fields.
type UpgradeConfig struct {
	Kind       string `yaml:"kind"`
	Label      string `yaml:"label"`
	CostField  string `yaml:"cost_field"`
	LevelField string `yaml:"level_field"`
	Mutator    string `yaml:"mutator"`
}

// BotConfig holds the purchase loop settings.
type BotConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Mode              string        `yaml:"mode"`
	SessionDuration   time.Duration `yaml:"session_duration"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout"`
	GameSpeed         float64       `yaml:"game_speed"`
	Seed              int64         `yaml:"seed"`
}

// GameConfig selects the game variant and how to reach it.
type GameConfig struct {
	Variant string          `yaml:"variant"`
	Adapter string          `yaml:"adapter"`
	Browser BrowserConfig   `yaml:"browser"`
	Page    PageConfig      `yaml:"page"`
	Sim     SimulatorConfig `yaml:"simulator"`
}

// BrowserConfig holds settings for driving the game in Chrome.
type BrowserConfig struct {
	ChromeURL string `yaml:"chrome_url"`
	PageURL   string `yaml:"page_url"`
	Headless  bool   `yaml:"headless"`
	Object    string `yaml:"object"`
}

// PageConfig holds settings for the HTTP page adapter.
type PageConfig struct {
	Server      string            `yaml:"server"`
	Path        string            `yaml:"path"`
	BuyPath     string            `yaml:"buy_path"`
	RandomDelay RandomDelayConfig `yaml:"random_delay"`
	Credentials map[string]string `yaml:"credentials"`
}

// RandomDelayConfig specifies the min/max delay for requests.
type RandomDelayConfig struct {
	MinDelay int `yaml:"min_delay"`
	MaxDelay int `yaml:"max_delay"`
}

// SimulatorConfig holds settings for the dry-run simulator.
type SimulatorConfig struct {
	StartCurrency   float64 `yaml:"start_currency"`
	IncomePerSecond float64 `yaml:"income_per_second"`
}

// ExportConfig selects where finished sessions are written.
type ExportConfig struct {
	Mode        string `yaml:"mode"`
	Dir         string `yaml:"dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// WebManagerConfig holds web UI related settings.
type WebManagerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the configuration written when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Enabled:           true,
			Mode:              ModeNormal,
			SessionDuration:   10 * time.Minute,
			TickInterval:      100 * time.Millisecond,
			ReadyPollInterval: 500 * time.Millisecond,
			ReadyTimeout:      2 * time.Minute,
			GameSpeed:         1,
		},
		Game: GameConfig{
			Variant: "drones",
			Adapter: AdapterBrowser,
			Browser: BrowserConfig{
				PageURL:  "http://127.0.0.1:8000/",
				Headless: true,
				Object:   "window.game",
			},
			Page: PageConfig{
				Path:    "index.html",
				BuyPath: "upgrade",
				RandomDelay: RandomDelayConfig{
					MinDelay: 0,
					MaxDelay: 0,
				},
			},
			Sim: SimulatorConfig{
				StartCurrency:   50,
				IncomePerSecond: 5,
			},
		},
		Export: ExportConfig{
			Mode:       ExportJSON,
			Dir:        "sessions",
			SQLitePath: "sessions/idlebot.db",
		},
		WebManager: WebManagerConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
		},
	}
}

// ConfigManager handles loading and saving of the bot's configuration.
type ConfigManager struct {
	configPath string
	config     *Config
	lock       sync.Mutex
}

// NewConfigManager loads the config at path, writing a default one first if
// the file does not exist. Environment overrides are applied after loading.
// The result is not validated; call Validate once all overrides are in.
func NewConfigManager(path string) (*ConfigManager, error) {
	cm := &ConfigManager{
		configPath: path,
	}

	exists, err := cm.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !exists {
		cm.config = DefaultConfig()
		if err := cm.SaveConfig(); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
	}
	ApplyEnv(cm.config)
	return cm, nil
}

// Overrides are command line settings that take precedence over the file.
type Overrides struct {
	DryRun   bool
	Mode     string
	Duration time.Duration
}

// ApplyOverrides writes the non-zero overrides into the loaded config.
func (cm *ConfigManager) ApplyOverrides(o Overrides) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	if o.DryRun {
		cm.config.Game.Adapter = AdapterSimulator
	}
	if o.Mode != "" {
		cm.config.Bot.Mode = o.Mode
	}
	if o.Duration > 0 {
		cm.config.Bot.SessionDuration = o.Duration
	}
}

// Validate checks that the configuration can drive a session.
func (cm *ConfigManager) Validate() error {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	if err := cm.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", cm.configPath, err)
	}
	return nil
}

// Validate checks the configured names and settings.
func (c *Config) Validate() error {
	if err := oneOf("mode", c.Bot.Mode, ModeNormal, ModeExperimental); err != nil {
		return err
	}
	if err := oneOf("adapter", c.Game.Adapter, AdapterBrowser, AdapterPage, AdapterSimulator); err != nil {
		return err
	}
	if err := oneOf("export mode", c.Export.Mode, ExportMemory, ExportJSON, ExportSQLite, ExportPostgres); err != nil {
		return err
	}
	if c.Game.Variant == "" {
		return fmt.Errorf("game variant is not set")
	}
	if c.Bot.SessionDuration <= 0 {
		return fmt.Errorf("session_duration must be positive")
	}
	if c.Bot.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.Bot.ReadyPollInterval <= 0 {
		return fmt.Errorf("ready_poll_interval must be positive")
	}
	switch c.Game.Adapter {
	case AdapterBrowser:
		if c.Game.Browser.PageURL == "" && c.Game.Browser.ChromeURL == "" {
			return fmt.Errorf("browser adapter needs page_url or chrome_url")
		}
	case AdapterPage:
		if c.Game.Page.Server == "" {
			return fmt.Errorf("page adapter server URL is not set")
		}
	}
	if c.Export.Mode == ExportPostgres && c.Export.PostgresDSN == "" {
		return fmt.Errorf("postgres export needs postgres_dsn")
	}
	return nil
}

func oneOf(what, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	if s := Suggest(value, allowed); s != "" {
		return fmt.Errorf("invalid %s %q, did you mean %q?", what, value, s)
	}
	return fmt.Errorf("invalid %s %q (supported: %v)", what, value, allowed)
}

// Suggest returns the candidate closest to name, or "" if none is close.
func Suggest(name string, candidates []string) string {
	best := ""
	bestDist := 0
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(name, c)
		if dist > suggestLimit(len(c)) {
			continue
		}
		if best == "" || dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}

func suggestLimit(n int) int {
	switch {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

// LoadConfig loads the configuration from the specified YAML file.
func (cm *ConfigManager) LoadConfig() (bool, error) {
	cm.lock.Lock()
	defer cm.lock.Unlock()

	file, err := os.ReadFile(cm.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(file, config); err != nil {
		return false, fmt.Errorf("failed to decode YAML from config file: %w", err)
	}
	cm.config = config
	return true, nil
}

// saveConfig is the internal, non-locking implementation of saving the configuration.
func (cm *ConfigManager) saveConfig() error {
	data, err := yaml.Marshal(cm.config)
	if err != nil {
		return fmt.Errorf("failed to encode config to YAML: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write to config file: %w", err)
	}
	return nil
}

// SaveConfig saves the current configuration to the YAML file.
func (cm *ConfigManager) SaveConfig() error {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	return cm.saveConfig()
}

// GetConfig returns the entire configuration.
func (cm *ConfigManager) GetConfig() *Config {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	return cm.config
}

// UpdateBotConfig updates a single bot setting and saves the config.
func (cm *ConfigManager) UpdateBotConfig(key string, value interface{}) error {
	cm.lock.Lock()
	defer cm.lock.Unlock()

	switch key {
	case "mode":
		mode, ok := value.(string)
		if !ok {
			return fmt.Errorf("mode must be a string")
		}
		if err := oneOf("mode", mode, ModeNormal, ModeExperimental); err != nil {
			return err
		}
		cm.config.Bot.Mode = mode
	case "enabled":
		enabled, ok := value.(bool)
		if !ok {
			return fmt.Errorf("enabled must be a bool")
		}
		cm.config.Bot.Enabled = enabled
	case "game_speed":
		speed, ok := value.(float64)
		if !ok || speed <= 0 {
			return fmt.Errorf("game_speed must be a positive number")
		}
		cm.config.Bot.GameSpeed = speed
	default:
		return fmt.Errorf("unknown bot setting %q", key)
	}
	return cm.saveConfig()
}
