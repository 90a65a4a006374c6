package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "hwbot/internal/transport"
)

// telegramSink forwards log lines at or above minLevel to the bot chat.
// Writes never block: lines are queued and dropped when the queue is full
// or the rate limiter says no.
type telegramSink struct {
	sender kit.Sender
	target kit.ChatTarget

	mu       sync.Mutex
	minLevel zerolog.Level
	limiter  *rate.Limiter

	queue  chan string
	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTelegramSink(sender kit.Sender, target kit.ChatTarget) *telegramSink {
	return &telegramSink{
		sender:   sender,
		target:   target,
		minLevel: zerolog.WarnLevel,
		queue:    make(chan string, 64),
	}
}

func (t *telegramSink) configure(min zerolog.Level, lim *rate.Limiter) {
	t.mu.Lock()
	t.minLevel = min
	t.limiter = lim
	t.mu.Unlock()
}

func (t *telegramSink) start() {
	t.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		t.mu.Lock()
		t.cancel = cancel
		t.mu.Unlock()
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-t.queue:
					sctx, scancel := context.WithTimeout(ctx, 10*time.Second)
					_, _ = t.sender.SendText(sctx, t.target, msg, &kit.SendOptions{DisablePreview: true, Silent: true})
					scancel()
				}
			}
		}()
	})
}

func (t *telegramSink) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
}

func (t *telegramSink) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.InfoLevel, p)
}

func (t *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	t.mu.Lock()
	min := t.minLevel
	lim := t.limiter
	t.mu.Unlock()

	if t.target.IsZero() || level < min || lim == nil || !lim.Allow() {
		return len(p), nil
	}
	msg := formatTelegramJSON(p)
	if msg == "" {
		return len(p), nil
	}
	select {
	case t.queue <- msg:
	default:
	}
	return len(p), nil
}

// formatTelegramJSON renders a zerolog JSON line as "[LEVEL] message" followed
// by one "- key=value" line per field, keys sorted.
func formatTelegramJSON(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), 3500)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message", zerolog.CallerFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- " + k + "=")
		b.WriteString(truncate(fmt.Sprint(m[k]), 600))
	}
	return truncate(b.String(), 3500)
}

// truncate caps s at maxN bytes without splitting a UTF-8 sequence.
func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:runeStart(s, maxN)]
	}
	return s[:runeStart(s, maxN-3)] + "..."
}

// runeStart backs n off to the start of the rune containing s[n].
func runeStart(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
