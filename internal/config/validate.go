package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrConfigMissing matches any *MissingError.
var ErrConfigMissing = errors.New("required configuration missing")

// MissingError names every required value that is absent.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigMissing.Error(), strings.Join(e.Names, ", "))
}

func (e *MissingError) Is(target error) bool { return target == ErrConfigMissing }

// CheckTokens verifies the three values the bot cannot run without:
// the homework API token, the bot token and the destination chat.
func CheckTokens(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	var missing []string
	if strings.TrimSpace(cfg.Practicum.Token) == "" {
		missing = append(missing, "PRACTICUM_TOKEN")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if cfg.Telegram.ChatID == 0 {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}
	return nil
}

// Validate checks the optional sections. It does not require credentials so a
// hot-reloaded file without secrets (they live in the environment) is accepted.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if ep := strings.TrimSpace(cfg.Practicum.Endpoint); ep != "" {
		u, err := url.Parse(ep)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("practicum.endpoint: invalid url %q", ep)
		}
	}
	if _, err := ParseDurationField("practicum.request_timeout", cfg.Practicum.RequestTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("notifier.send_timeout", cfg.Notifier.SendTimeout); err != nil {
		return err
	}
	if cfg.Notifier.RatePerSec < 0 {
		return errors.New("notifier.rate_per_sec must be >= 0")
	}
	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
