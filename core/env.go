package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides config values from IDLEBOT_* environment variables.
// Unset or unparsable variables leave the config untouched.
func ApplyEnv(c *Config) {
	if val := getEnv("IDLEBOT_MODE"); val != "" {
		c.Bot.Mode = strings.ToLower(val)
	}
	if val := getEnv("IDLEBOT_ADAPTER"); val != "" {
		c.Game.Adapter = strings.ToLower(val)
	}
	if val := getEnv("IDLEBOT_VARIANT"); val != "" {
		c.Game.Variant = val
	}
	if val := getEnv("IDLEBOT_CHROME_URL"); val != "" {
		c.Game.Browser.ChromeURL = val
	}
	if val := getEnv("IDLEBOT_PAGE_URL"); val != "" {
		c.Game.Browser.PageURL = val
	}
	if val := getEnv("IDLEBOT_SERVER"); val != "" {
		c.Game.Page.Server = val
	}
	if val := getEnv("IDLEBOT_EXPORT_MODE"); val != "" {
		c.Export.Mode = strings.ToLower(val)
	}
	if val := getEnv("IDLEBOT_POSTGRES_DSN"); val != "" {
		c.Export.PostgresDSN = val
	}
	if val := getEnvDuration("IDLEBOT_SESSION_DURATION"); val > 0 {
		c.Bot.SessionDuration = val
	}
	if val := getEnvDuration("IDLEBOT_TICK_INTERVAL"); val > 0 {
		c.Bot.TickInterval = val
	}
	if val := getEnvFloat("IDLEBOT_GAME_SPEED"); val > 0 {
		c.Bot.GameSpeed = val
	}
	if val := getEnv("IDLEBOT_TELEMETRY"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Telemetry.Enabled = enabled
		}
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvDuration(key string) time.Duration {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0
	}
	return d
}

func getEnvFloat(key string) float64 {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return f
}
