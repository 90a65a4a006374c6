package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hwbot/internal/eventbus"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

var ErrEmptyMessage = errors.New("notifier: empty message")

// Service sends messages to one chat and remembers the last one delivered.
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender kit.Sender
	bus    eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	last    string
	history []HistoryItem
}

// New returns a Service sending through sender. bus may be nil.
func New(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log, bus: bus}
	s.applyLocked(cfg)
	return s
}

// Apply swaps rate limit, send timeout and history size. The last
// delivered message is kept.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	s.cfg = cfg
	// Burst = rate so a cycle with a few status changes goes out without waiting.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Notify delivers text to the configured chat. On success it becomes the
// message IsNew compares against; on failure the previous one is kept.
func (s *Service) Notify(ctx context.Context, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	// the Telegram HTTP call is bounded by the client's own timeout; sctx
	// stops multi-chunk sends between chunks
	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	ref, err := s.sender.SendText(sctx, cfg.Target, text, &kit.SendOptions{DisablePreview: true})
	cancel()

	ev := DeliveryEvent{
		ChatID:    cfg.Target.ChatID,
		ThreadID:  cfg.Target.ThreadID,
		MessageID: ref.MessageID,
		Text:      text,
		At:        start,
		Took:      time.Since(start),
	}
	if err != nil {
		ev.Error = err.Error()
		s.publish(eventbus.TypeMessageFailed, ev)
		return err
	}

	s.mu.Lock()
	s.last = text
	s.history = append(s.history, HistoryItem{At: start, Text: text})
	if n := len(s.history) - cfg.HistorySize; n > 0 {
		s.history = append([]HistoryItem(nil), s.history[n:]...)
	}
	s.mu.Unlock()

	s.log.Info("message sent to telegram", logx.Int64("chat_id", cfg.Target.ChatID), logx.Duration("took", ev.Took))
	s.publish(eventbus.TypeMessageSent, ev)
	return nil
}

// IsNew reports whether text differs from the last delivered message.
// Exact comparison, no expiry.
func (s *Service) IsNew(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return text != s.last
}

func (s *Service) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) History() []HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) publish(typ string, ev DeliveryEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}
