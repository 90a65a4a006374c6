package app

import (
	"fmt"
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/observability"
	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

func chatTarget(cfg *config.Config) kit.ChatTarget {
	return kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	timeout, err := config.ParseDurationOrDefault("notifier.send_timeout", cfg.Notifier.SendTimeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	if cfg.Notifier.RatePerSec < 0 {
		return notifier.Config{}, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	return notifier.Config{
		Target:      chatTarget(cfg),
		RatePerSec:  cfg.Notifier.RatePerSec,
		SendTimeout: timeout,
		HistorySize: cfg.Notifier.HistorySize,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		if path == "" {
			path = "./data/hwbot"
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapObservabilityConfig(cfg *config.Config) observability.Config {
	return observability.Config{
		Addr:  cfg.Observability.Addr,
		Pprof: cfg.Observability.Pprof,
	}
}
