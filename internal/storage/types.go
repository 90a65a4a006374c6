package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file next to Path
//   - "sqlite": SQLite database file (build tag "sqlite")
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery records one attempt to send a chat message.
// Error is empty when the send succeeded.
type Delivery struct {
	At        time.Time `json:"at"`
	ChatID    int64     `json:"chat_id"`
	ThreadID  int       `json:"thread_id,omitempty"`
	MessageID int       `json:"message_id,omitempty"`
	Text      string    `json:"text"`
	Error     string    `json:"error,omitempty"`
	TookMS    int64     `json:"took_ms"`
}

// OK reports whether the delivery succeeded.
func (d Delivery) OK() bool { return d.Error == "" }
