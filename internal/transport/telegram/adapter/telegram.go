package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

// Config configures the Telegram bot client.
type Config struct {
	Token string
	// RequestTimeout bounds a single Bot API HTTP call. Zero keeps telebot's default.
	RequestTimeout time.Duration
	// URL overrides the Bot API endpoint (tests, local bot-api servers).
	URL string
	// Offline skips the getMe handshake on construction.
	Offline bool
}

// Adapter is a send-only Telegram client. It never starts the update poller.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	settings := tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.URL,
		Offline: cfg.Offline,
	}
	if cfg.RequestTimeout > 0 {
		settings.Client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, redactToken(err, cfg.Token)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	if b.Me != nil && b.Me.Username != "" {
		log.Info("telegram bot ready", logx.String("username", b.Me.Username))
	}
	return a, nil
}

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries and (best-effort) avoids splitting inside HTML tags when ParseMode is HTML.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		if strings.EqualFold(parseMode, "HTML") && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// SendText delivers text to the target chat, splitting it when it exceeds the
// Bot API message limit. The returned ref points at the first chunk.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	if to.IsZero() {
		return kit.MessageRef{}, errors.New("telegram: chat id is empty")
	}

	chunks := splitTelegramText(text, telegramTextLimit, opt.ParseMode)
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range chunks {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return first, err
			}
		}

		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             tele.ParseMode(opt.ParseMode),
			DisableWebPagePreview: opt.DisablePreview,
			DisableNotification:   opt.Silent,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, redactToken(err, a.cfg.Token)
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// telebot puts the token in every request URL, and transport errors quote
// that URL.
type redactedError struct{ msg string }

func (e *redactedError) Error() string { return e.msg }

func redactToken(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>")}
}
