package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"idlebot/core"
	"idlebot/telemetry"
	"idlebot/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	dryRun := flag.Bool("dry-run", false, "run against the built-in simulator instead of a real game")
	mode := flag.String("mode", "", "override bot.mode (normal or experimental)")
	duration := flag.Duration("duration", 0, "override bot.session_duration")
	flag.Parse()

	if err := run(*configPath, *dryRun, *mode, *duration); err != nil {
		log.Fatalf("idlebot: %v", err)
	}
}

func run(configPath string, dryRun bool, mode string, duration time.Duration) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm, err := core.NewConfigManager(configPath)
	if err != nil {
		return err
	}
	if dryRun {
		log.Println("Running in dry-run mode")
	}
	cm.ApplyOverrides(core.Overrides{DryRun: dryRun, Mode: mode, Duration: duration})
	if err := cm.Validate(); err != nil {
		return err
	}
	config := cm.GetConfig()

	if config.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Printf("telemetry shutdown: %v", err)
				}
			}()
		}
	}

	bot, err := NewBot(ctx, cm)
	if err != nil {
		return err
	}

	if config.WebManager.Enabled {
		go func() {
			if err := web.StartServer(ctx, config.WebManager.Host, config.WebManager.Port, bot.Hub); err != nil {
				log.Printf("dashboard stopped: %v", err)
			}
		}()
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
