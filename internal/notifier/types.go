package notifier

import (
	"time"

	kit "hwbot/internal/transport"
)

type Config struct {
	Target      kit.ChatTarget
	RatePerSec  int
	SendTimeout time.Duration
	HistorySize int
}

type HistoryItem struct {
	At   time.Time
	Text string
}

// DeliveryEvent is the Data of notifier.sent / notifier.failed bus events.
type DeliveryEvent struct {
	ChatID    int64         `json:"chat_id"`
	ThreadID  int           `json:"thread_id,omitempty"`
	MessageID int           `json:"message_id,omitempty"`
	Text      string        `json:"text"`
	At        time.Time     `json:"at"`
	Took      time.Duration `json:"took"`
	Error     string        `json:"error,omitempty"`
}
