package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Env lists the environment variables that override file values.
// Unset variables leave the file value alone.
type Env struct {
	PracticumToken    string `env:"PRACTICUM_TOKEN" env-description:"OAuth token for the homework API"`
	PracticumEndpoint string `env:"PRACTICUM_ENDPOINT" env-description:"homework statuses endpoint URL"`
	TelegramToken     string `env:"TELEGRAM_TOKEN" env-description:"Telegram bot token"`
	TelegramChatID    string `env:"TELEGRAM_CHAT_ID" env-description:"chat id that receives notifications"`
	PollInterval      string `env:"POLL_INTERVAL" env-description:"poll cadence (duration, HH:MM or cron)"`
	LogLevel          string `env:"LOG_LEVEL" env-description:"debug|info|warn|error"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment,
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var e Env
	if err := cleanenv.ReadEnv(&e); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	return e.apply(cfg)
}

func (e Env) apply(cfg *Config) error {
	if v := strings.TrimSpace(e.PracticumToken); v != "" {
		cfg.Practicum.Token = v
	}
	if v := strings.TrimSpace(e.PracticumEndpoint); v != "" {
		cfg.Practicum.Endpoint = v
	}
	if v := strings.TrimSpace(e.TelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(e.TelegramChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: invalid chat id %q: %w", v, err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := strings.TrimSpace(e.PollInterval); v != "" {
		cfg.Poll.Interval = v
	}
	if v := strings.TrimSpace(e.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// EnvUsage returns a flag.Usage replacement that also lists the environment
// variables understood by the bot.
func EnvUsage(w io.Writer, header func()) func() {
	if w == nil {
		w = os.Stderr
	}
	var e Env
	if header == nil {
		return cleanenv.FUsage(w, &e, nil)
	}
	return cleanenv.FUsage(w, &e, nil, header)
}
