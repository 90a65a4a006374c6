package config

import (
	"strings"

	logx "hwbot/pkg/logx"
)

// SummarizeChange returns the changed sections and safe structured fields for
// logging. Secrets are reported only as "set"/"unset".
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var (
		changed []string
		fields  []logx.Field
	)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Poll.Interval) != strings.TrimSpace(newCfg.Poll.Interval) {
		changed = append(changed, "poll")
		fields = append(fields, logx.String("poll.interval", newCfg.Poll.Interval))
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		fields = append(fields,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.String("notifier.send_timeout", newCfg.Notifier.SendTimeout),
		)
		// the Telegram client's HTTP timeout is fixed at startup
		if strings.TrimSpace(oldCfg.Notifier.SendTimeout) != strings.TrimSpace(newCfg.Notifier.SendTimeout) {
			changed = append(changed, "notifier.send_timeout")
		}
	}

	if oldCfg.Practicum.Endpoint != newCfg.Practicum.Endpoint ||
		oldCfg.Practicum.RequestTimeout != newCfg.Practicum.RequestTimeout ||
		oldCfg.Practicum.Token != newCfg.Practicum.Token {
		changed = append(changed, "practicum")
		fields = append(fields,
			logx.String("practicum.endpoint", newCfg.Practicum.Endpoint),
			logx.Bool("practicum.token_set", strings.TrimSpace(newCfg.Practicum.Token) != ""),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.Int64("telegram.chat_id", newCfg.Telegram.ChatID),
		)
	}

	oldStore, newStore := StorageConfig{}, StorageConfig{}
	if oldCfg.Storage != nil {
		oldStore = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		newStore = *newCfg.Storage
	}
	if oldStore != newStore {
		changed = append(changed, "storage")
	}
	if oldCfg.Observability != newCfg.Observability {
		changed = append(changed, "observability")
	}
	return changed, fields
}

// RestartRequired lists changed sections that only take effect after a restart.
// Besides whole sections it reports "notifier.send_timeout".
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		switch s {
		case "logging", "poll", "notifier":
		default:
			out = append(out, s)
		}
	}
	return out
}
