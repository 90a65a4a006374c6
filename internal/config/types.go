package config

// Config is the bot configuration. It is read from an optional JSON/YAML file
// and then overlaid with environment variables (see env.go).
//
// Secrets (tokens) are normally provided through the environment or a .env file;
// the file fields exist so a single config file can describe a deployment.
type Config struct {
	Practicum     PracticumConfig     `json:"practicum"`
	Telegram      TelegramConfig      `json:"telegram"`
	Poll          PollConfig          `json:"poll"`
	Notifier      NotifierConfig      `json:"notifier"`
	Logging       LoggingConfig       `json:"logging"`
	Storage       *StorageConfig      `json:"storage,omitempty"`
	Observability ObservabilityConfig `json:"observability"`
}

// PracticumConfig points at the homework-review API.
type PracticumConfig struct {
	Token    string `json:"token,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	// RequestTimeout is a Go duration string. "0s" disables the per-request timeout.
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// PollConfig controls the polling cadence.
//
// Interval accepts a Go duration ("10m"), HH:MM ("00:10"), or a cron
// expression ("*/10 * * * *", "@every 10m"). Default: "10m".
type PollConfig struct {
	Interval string `json:"interval,omitempty"`
}

// NotifierConfig controls outgoing chat messages.
//
// Defaults (when fields are omitted/zero):
//   - rate_per_sec: 1
//   - send_timeout: "10s"
//   - history_size: 50
type NotifierConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors log lines at or above MinLevel into the bot chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional delivery journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/hwbot" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ObservabilityConfig controls the optional metrics/pprof HTTP listener.
//
// Prefer binding to localhost (default "127.0.0.1:9090").
type ObservabilityConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Pprof   bool   `json:"pprof,omitempty"`
}

const (
	DefaultEndpoint     = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultPollInterval = "10m"
	DefaultObsAddr      = "127.0.0.1:9090"
)

// Default returns a config with every optional field at its documented default.
func Default() *Config {
	return &Config{
		Practicum: PracticumConfig{
			Endpoint:       DefaultEndpoint,
			RequestTimeout: "30s",
		},
		Poll: PollConfig{Interval: DefaultPollInterval},
		Notifier: NotifierConfig{
			RatePerSec:  1,
			SendTimeout: "10s",
			HistorySize: 50,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Telegram: LoggingTelegram{
				MinLevel:   "error",
				RatePerSec: 1,
			},
		},
		Observability: ObservabilityConfig{Addr: DefaultObsAddr},
	}
}
